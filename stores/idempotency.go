package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/malwarebo/rentops/cache"
	"github.com/malwarebo/rentops/models"
)

const (
	IdempotencyTTL         = 24 * time.Hour
	idempotencyPrefix      = "idempotency"
	PublicIdempotencyScope = "public"
)

// IdempotencyStore keeps idempotency records in Redis.
type IdempotencyStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
	now   func() time.Time
}

func CreateIdempotencyStore(c *cache.RedisCache) *IdempotencyStore {
	return &IdempotencyStore{cache: c, ttl: IdempotencyTTL, now: time.Now}
}

func IdempotencyCacheKey(scope, token string) string {
	if scope == "" {
		scope = PublicIdempotencyScope
	}
	return fmt.Sprintf("%s:%s:%s", idempotencyPrefix, scope, token)
}

// RequestFingerprint identifies the request a key was first used with.
func RequestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'|'})
	h.Write([]byte(path))
	h.Write([]byte{'|'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the record for key, or nil when there is none.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	raw, err := s.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency record: %w", err)
	}

	var record models.IdempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &record, nil
}

// Claim writes a processing record only if key is free and reports whether it won.
func (s *IdempotencyStore) Claim(ctx context.Context, key, fingerprint string) (bool, error) {
	startedAt := s.now().UTC()
	payload, err := json.Marshal(models.IdempotencyRecord{
		Status:      models.IdempotencyStatusProcessing,
		Fingerprint: fingerprint,
		StartedAt:   &startedAt,
	})
	if err != nil {
		return false, err
	}

	ok, err := s.cache.SetNX(ctx, key, payload, s.ttl)
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

// Complete replaces the processing record with the finished response and restarts the TTL.
func (s *IdempotencyStore) Complete(ctx context.Context, key, fingerprint string, response *models.IdempotentResponse) error {
	completedAt := s.now().UTC()
	payload, err := json.Marshal(models.IdempotencyRecord{
		Status:      models.IdempotencyStatusCompleted,
		Fingerprint: fingerprint,
		Response:    response,
		CompletedAt: &completedAt,
	})
	if err != nil {
		return err
	}

	if err := s.cache.SetWithTTL(ctx, key, payload, s.ttl); err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
