package cache

import (
	"context"
	"fmt"
	"time"
)

const idempotencyPrefix = "idem:"

type idempotencyRecord struct {
	SchoolID string `json:"school_id"`
}

// Idempotency records registration keys in Redis. A claimed key holds an
// empty record until the school id is known.
type Idempotency struct {
	cache *Cache
	ttl   time.Duration
}

func NewIdempotency(c *Cache, ttl time.Duration) *Idempotency {
	return &Idempotency{cache: c, ttl: ttl}
}

func (i *Idempotency) Claim(ctx context.Context, key string) (string, bool, error) {
	ok, err := i.cache.SetNX(ctx, idempotencyPrefix+key, idempotencyRecord{}, i.ttl)
	if err != nil {
		return "", false, fmt.Errorf("claim %s: %w", key, err)
	}
	if ok {
		return "", true, nil
	}

	var rec idempotencyRecord
	if err := i.cache.Get(ctx, idempotencyPrefix+key, &rec); err != nil {
		if IsMiss(err) {
			// Expired between SETNX and GET; treat as in flight.
			return "", false, nil
		}
		return "", false, err
	}
	return rec.SchoolID, false, nil
}

// Complete stores the school id against a claimed key. The claim's TTL is
// kept; a claim that already expired is written afresh.
func (i *Idempotency) Complete(ctx context.Context, key, schoolID string) error {
	rec := idempotencyRecord{SchoolID: schoolID}
	ok, err := i.cache.Replace(ctx, idempotencyPrefix+key, rec)
	if err != nil {
		return fmt.Errorf("complete %s: %w", key, err)
	}
	if !ok {
		return i.cache.Set(ctx, idempotencyPrefix+key, rec, i.ttl)
	}
	return nil
}

func (i *Idempotency) Release(ctx context.Context, key string) error {
	return i.cache.Delete(ctx, idempotencyPrefix+key)
}
