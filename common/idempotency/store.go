// Package idempotency remembers the outcome of non-idempotent requests
// keyed by a client-supplied Idempotency-Key, so retries replay the first
// response instead of duplicating data.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lyzr/coffeeroster/common/cache"
)

// ErrInFlight is returned by Begin when the same key is still being processed
var ErrInFlight = errors.New("request with this idempotency key is in progress")

// ErrKeyReused is returned by Begin when key was first used for a different request
var ErrKeyReused = errors.New("idempotency key was used with a different request")

const pendingTTL = 30 * time.Second

// Record is a stored response
type Record struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Store keeps idempotency records in a cache.Cache
type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewStore creates a store whose completed records live for ttl
func NewStore(c cache.Cache, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

func cacheKey(scope, key string) string {
	return "idem:" + scope + ":" + key
}

// Fingerprint identifies a request body
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Begin claims key for scope. It returns the stored record when the request
// already completed, ErrInFlight when another attempt holds the claim,
// ErrKeyReused when the key belongs to a request with another fingerprint,
// and (nil, nil) when the caller now owns the key and must Complete or Abort it.
func (s *Store) Begin(ctx context.Context, scope, key, fingerprint string) (*Record, error) {
	pending, err := json.Marshal(Record{Pending: true, Fingerprint: fingerprint})
	if err != nil {
		return nil, err
	}

	claimed, err := s.cache.SetNX(ctx, cacheKey(scope, key), pending, pendingTTL)
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	raw, found, err := s.cache.Get(ctx, cacheKey(scope, key))
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	if !found {
		// Expired between SetNX and Get; treat as still contended.
		return nil, ErrInFlight
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	if rec.Fingerprint != fingerprint {
		return nil, ErrKeyReused
	}
	if rec.Pending {
		return nil, ErrInFlight
	}
	return &rec, nil
}

// Complete stores the final response for key; rec must carry the
// fingerprint passed to Begin
func (s *Store) Complete(ctx context.Context, scope, key string, rec Record) error {
	rec.Pending = false
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, cacheKey(scope, key), raw, s.ttl); err != nil {
		return fmt.Errorf("store idempotency record: %w", err)
	}
	return nil
}

// Abort releases the claim so the request can be retried
func (s *Store) Abort(ctx context.Context, scope, key string) error {
	return s.cache.Delete(ctx, cacheKey(scope, key))
}
