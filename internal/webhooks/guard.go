package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/advancehq/reconciliation-backend/pkg/redis"
)

// EventGuard short-circuits redelivered webhook events before they reach
// the database. It is a fast path only: the Event Store's keyed upsert
// remains the source of truth for idempotency, so losing a guard entry
// is harmless.
type EventGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewEventGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*EventGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &EventGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark marks the event id as seen and reports whether it had
// already been processed.
func (g *EventGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// EventKey derives the guard key material for a delivery: the provider
// id plus a digest of the canonical payload. A conflicting reuse of an
// id hashes differently and still reaches the event store, which owns
// conflict detection.
func EventKey(id string, rawBody []byte) string {
	canonical, err := CanonicalJSON(rawBody)
	if err != nil {
		canonical = rawBody
	}
	sum := sha256.Sum256(canonical)
	return id + ":" + hex.EncodeToString(sum[:8])
}

// Delete clears the mark so a failed ingestion can be retried by the
// provider.
func (g *EventGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	return g.store.Del(ctx, key)
}
