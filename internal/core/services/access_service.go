package services

import (
	"context"

	"biligate/internal/core/domain"
	"biligate/internal/core/ports"
	"biligate/pkg/config"
	apperrors "biligate/pkg/errors"

	"go.uber.org/zap"
)

// AccessService classifies an opaque API key into an access grant.
// Static keys map to fixed ceilings; the single pro key is only valid
// while a live credential sits in the store, so its tier is re-derived
// on every request and never cached.
type AccessService struct {
	keys    map[string]config.TierConfig
	proKey  string
	proTier config.TierConfig
	creds   ports.CredentialRepository
	logger  *zap.SugaredLogger
}

func NewAccessService(cfg *config.Config, creds ports.CredentialRepository, logger *zap.SugaredLogger) *AccessService {
	return &AccessService{
		keys:    cfg.Access.Keys,
		proKey:  cfg.Access.ProKey,
		proTier: cfg.Access.ProTier,
		creds:   creds,
		logger:  logger,
	}
}

func (s *AccessService) Classify(ctx context.Context, key string) (domain.AccessGrant, error) {
	if key == "" {
		return domain.AccessGrant{}, apperrors.NewInvalidKeyError("missing key")
	}

	if tier, ok := s.keys[key]; ok {
		return domain.AccessGrant{
			Tier:           tier.Name,
			QualityCeiling: tier.MaxQuality,
		}, nil
	}

	if key == s.proKey {
		// A store outage presents as unauthenticated, not as a crash:
		// IsValid swallows store errors and reports absent.
		if s.creds.IsValid(ctx) {
			return domain.AccessGrant{
				Tier:           s.proTier.Name,
				QualityCeiling: s.proTier.MaxQuality,
				Elevated:       true,
			}, nil
		}
		s.logger.Debugw("pro key presented without an active session")
		return domain.AccessGrant{}, apperrors.NewSessionRequiredError()
	}

	return domain.AccessGrant{}, apperrors.NewInvalidKeyError("unrecognized key")
}
