package memory

import (
	"context"
	"sync"
	"time"

	"biligate/internal/core/domain"
	"biligate/internal/core/ports"
)

// MemoryCredentialRepository keeps the single credential slot in process
// memory. Expiry is lazy: a stale entry is cleared on the read that
// observes it.
type MemoryCredentialRepository struct {
	mu        sync.RWMutex
	cred      *domain.Credential
	expiresAt time.Time
}

func NewMemoryCredentialRepository() ports.CredentialRepository {
	return &MemoryCredentialRepository{}
}

func (r *MemoryCredentialRepository) Put(ctx context.Context, cred *domain.Credential, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *cred
	r.cred = &stored
	r.expiresAt = time.Now().Add(ttl)
	return nil
}

func (r *MemoryCredentialRepository) Get(ctx context.Context) (*domain.Credential, error) {
	r.mu.RLock()
	cred := r.cred
	expiresAt := r.expiresAt
	r.mu.RUnlock()

	if cred == nil {
		return nil, domain.ErrCredentialNotFound
	}

	now := time.Now()
	if now.After(expiresAt) || cred.Expired(now) {
		r.mu.Lock()
		// Re-check under the write lock; another Put may have refreshed
		// the slot in between.
		if r.cred == cred {
			r.cred = nil
		}
		r.mu.Unlock()
		return nil, domain.ErrCredentialNotFound
	}

	copied := *cred
	return &copied, nil
}

func (r *MemoryCredentialRepository) Delete(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cred = nil
	return nil
}

func (r *MemoryCredentialRepository) IsValid(ctx context.Context) bool {
	_, err := r.Get(ctx)
	return err == nil
}
