package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brewline/console/internal/core/domain"
)

// CredentialStore keeps one profile's credential in Redis.
// Key format: console:credential:<profile>
type CredentialStore struct {
	client  *redis.Client
	profile string
	ttl     time.Duration
}

// NewCredentialStore creates a CredentialStore for profile. Entries expire
// after domain.CredentialTTL.
func NewCredentialStore(client *redis.Client, profile string) *CredentialStore {
	if profile == "" {
		profile = "default"
	}
	return &CredentialStore{client: client, profile: profile, ttl: domain.CredentialTTL}
}

// Load returns domain.ErrNoCredential when the key is missing or expired.
func (s *CredentialStore) Load(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) || (err == nil && v == "") {
		return "", domain.ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return v, nil
}

// Save stores credential, resetting its expiry.
func (s *CredentialStore) Save(ctx context.Context, credential string) error {
	if err := s.client.Set(ctx, s.key(), credential, s.ttl).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Clear deletes the entry. Deleting a missing key is not an error.
func (s *CredentialStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) key() string {
	return fmt.Sprintf("console:credential:%s", s.profile)
}
