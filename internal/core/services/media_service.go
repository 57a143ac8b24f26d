package services

import (
	"context"
	"time"

	"biligate/internal/core/domain"
	"biligate/internal/core/ports"
	"biligate/internal/infrastructure/monitoring"

	"go.uber.org/zap"
)

// MediaService runs the resolution chain: bvid -> content id -> signed
// stream URLs, with a best-effort metadata fetch alongside. Media URLs
// are upstream-signed and short-lived, so nothing here is ever cached.
type MediaService struct {
	platform ports.MediaPlatform
	creds    ports.CredentialRepository
	quality  ports.QualityService
	metrics  *monitoring.Collector
	logger   *zap.SugaredLogger
}

func NewMediaService(
	platform ports.MediaPlatform,
	creds ports.CredentialRepository,
	quality ports.QualityService,
	metrics *monitoring.Collector,
	logger *zap.SugaredLogger,
) *MediaService {
	return &MediaService{
		platform: platform,
		creds:    creds,
		quality:  quality,
		metrics:  metrics,
		logger:   logger,
	}
}

// credentialBlob fetches the cached session cookie for elevated grants.
// The credential can be deleted or overwritten between classification and
// resolution; on any miss the request degrades to anonymous access.
func (s *MediaService) credentialBlob(ctx context.Context, grant domain.AccessGrant) string {
	if !grant.Elevated {
		return ""
	}
	cred, err := s.creds.Get(ctx)
	if err != nil {
		s.logger.Warnw("credential unavailable during resolution, degrading to anonymous",
			"error", err,
		)
		return ""
	}
	return cred.Blob
}

func (s *MediaService) Resolve(ctx context.Context, bvid, requestedQuality string, grant domain.AccessGrant) (*domain.ResolveResult, error) {
	start := time.Now()
	quality := s.quality.Clamp(requestedQuality, grant.QualityCeiling)
	cookies := s.credentialBlob(ctx, grant)

	cid, err := s.platform.ResolveContentID(ctx, bvid, cookies)
	if err != nil {
		return nil, err
	}

	// Metadata is advisory; fetch it concurrently with media resolution
	// and swallow its failure.
	metaCh := make(chan *domain.VideoMetadata, 1)
	go func() {
		meta, err := s.platform.FetchMetadata(ctx, bvid, cookies)
		if err != nil {
			s.logger.Warnw("metadata fetch failed, continuing without it",
				"bvid", bvid,
				"error", err,
			)
			metaCh <- nil
			return
		}
		metaCh <- meta
	}()

	media, err := s.platform.ResolveMedia(ctx, bvid, cid, quality, cookies)
	if err != nil {
		<-metaCh
		return nil, err
	}
	meta := <-metaCh

	s.metrics.ObserveResolveDuration(time.Since(start))

	return &domain.ResolveResult{
		Bvid:      bvid,
		ContentID: cid,
		Media:     media,
		Metadata:  meta,
		Quality:   quality,
		Tier:      grant.Tier,
	}, nil
}

func (s *MediaService) Metadata(ctx context.Context, bvid string, grant domain.AccessGrant) (*domain.VideoMetadata, error) {
	cookies := s.credentialBlob(ctx, grant)
	return s.platform.FetchMetadata(ctx, bvid, cookies)
}
