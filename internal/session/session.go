// Package session holds per-session storefront state: the active cart and
// the single-slot draft order produced at checkout. State lives for one
// shopping session only; the durable order record is owned by the order
// repository. Concurrent tabs sharing a session race last-write-wins.
package session

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/bazaar-checkout/internal/domain/cart"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
)

var (
	// ErrNoDraft is returned by LoadDraft when the session has no draft in
	// progress. Callers redirect to checkout instead of failing.
	ErrNoDraft = errors.New("no draft order in progress")
	// ErrNoCart is returned by GetCart when the session has no cart.
	ErrNoCart = errors.New("no cart for session")
)

// CartStore persists the active cart per session.
type CartStore interface {
	GetCart(ctx context.Context, sessionID string) ([]cart.Line, error)
	SetCart(ctx context.Context, sessionID string, lines []cart.Line) error
	ClearCart(ctx context.Context, sessionID string) error
}

// DraftStore persists the single overwritable draft order per session.
// SaveDraft overwrites any existing draft; LoadDraft on an empty slot
// returns ErrNoDraft.
type DraftStore interface {
	SaveDraft(ctx context.Context, sessionID string, draft *order.Draft) error
	LoadDraft(ctx context.Context, sessionID string) (*order.Draft, error)
	ClearDraft(ctx context.Context, sessionID string) error
}

// Store combines the two per-session stores. Implementations: Memory
// (single process) and Redis (shared).
type Store interface {
	CartStore
	DraftStore
}
