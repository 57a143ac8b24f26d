package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"biligate/internal/core/domain"
	"biligate/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// credentialKey is a fixed key: the store holds exactly one credential
// slot for the whole deployment and every Put overwrites it.
const credentialKey = "biligate:credential"

type RedisCredentialRepository struct {
	client *redis.Client
}

func NewRedisCredentialRepository(client *redis.Client) ports.CredentialRepository {
	return &RedisCredentialRepository{client: client}
}

func (r *RedisCredentialRepository) Put(ctx context.Context, cred *domain.Credential, ttl time.Duration) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := r.client.Set(ctx, credentialKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set credential in Redis: %w", err)
	}
	return nil
}

func (r *RedisCredentialRepository) Get(ctx context.Context) (*domain.Credential, error) {
	data, err := r.client.Get(ctx, credentialKey).Result()
	if err == redis.Nil {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential from Redis: %w", err)
	}

	var cred domain.Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	// Redis expires the key itself, but the stored expiry is checked too
	// so a slot written with a longer TTL than intended still goes stale.
	if cred.Expired(time.Now()) {
		_ = r.client.Del(ctx, credentialKey).Err()
		return nil, domain.ErrCredentialNotFound
	}

	return &cred, nil
}

func (r *RedisCredentialRepository) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, credentialKey).Err(); err != nil {
		return fmt.Errorf("failed to delete credential from Redis: %w", err)
	}
	return nil
}

func (r *RedisCredentialRepository) IsValid(ctx context.Context) bool {
	_, err := r.Get(ctx)
	return err == nil
}
