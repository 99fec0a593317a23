package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/bazaar-checkout/internal/domain/cart"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
)

// Redis is a Store backed by a shared Redis instance, for deployments with
// more than one API instance. Cart and draft live under separate keys with
// the same TTL, refreshed on every write.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*Redis)(nil)

// NewRedis creates a Redis store with the given session TTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func cartKey(sessionID string) string  { return "session:" + sessionID + ":cart" }
func draftKey(sessionID string) string { return "session:" + sessionID + ":draft" }

// GetCart returns the session's cart lines.
func (r *Redis) GetCart(ctx context.Context, sessionID string) ([]cart.Line, error) {
	data, err := r.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCart
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get cart")
	}

	var lines []cart.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, errors.Wrap(err, "unmarshal cart")
	}
	if len(lines) == 0 {
		return nil, ErrNoCart
	}
	return lines, nil
}

// SetCart replaces the session's cart lines.
func (r *Redis) SetCart(ctx context.Context, sessionID string, lines []cart.Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return errors.Wrap(err, "marshal cart")
	}
	if err := r.client.Set(ctx, cartKey(sessionID), data, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set cart")
	}
	return nil
}

// ClearCart removes the session's cart.
func (r *Redis) ClearCart(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "redis del cart")
	}
	return nil
}

// SaveDraft overwrites the session's draft slot.
func (r *Redis) SaveDraft(ctx context.Context, sessionID string, draft *order.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return errors.Wrap(err, "marshal draft")
	}
	if err := r.client.Set(ctx, draftKey(sessionID), data, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set draft")
	}
	return nil
}

// LoadDraft returns the session's draft, or ErrNoDraft when the slot is empty.
func (r *Redis) LoadDraft(ctx context.Context, sessionID string) (*order.Draft, error) {
	data, err := r.client.Get(ctx, draftKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDraft
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get draft")
	}

	var d order.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(err, "unmarshal draft")
	}
	return &d, nil
}

// ClearDraft empties the session's draft slot.
func (r *Redis) ClearDraft(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, draftKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "redis del draft")
	}
	return nil
}
