package ports

import (
	"context"
	"time"

	"biligate/internal/core/domain"
)

// CredentialRepository is the single-slot store for the shared upstream
// session credential. Put overwrites unconditionally (last writer wins);
// Get applies lazy expiry and returns domain.ErrCredentialNotFound when
// the slot is empty or stale.
type CredentialRepository interface {
	Put(ctx context.Context, cred *domain.Credential, ttl time.Duration) error
	Get(ctx context.Context) (*domain.Credential, error)
	Delete(ctx context.Context) error
	IsValid(ctx context.Context) bool
}
