package session

import (
	"context"
	"sync"
	"time"

	"github.com/xenking/bazaar-checkout/internal/domain/cart"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
)

// entry holds one session's state together with its last-touch time.
type entry struct {
	lines   []cart.Line
	draft   *order.Draft
	touched time.Time
}

// Memory is an in-process Store. Suitable for a single API instance; use
// Redis when more than one instance serves the same sessions.
type Memory struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*entry

	stop chan struct{}
	done chan struct{}
}

var _ Store = (*Memory)(nil)

// NewMemory creates a Memory store. Sessions untouched for longer than ttl
// are removed by a background sweeper; Close stops it.
func NewMemory(ttl time.Duration) *Memory {
	m := &Memory{
		ttl:      ttl,
		sessions: make(map[string]*entry),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Close stops the background sweeper.
func (m *Memory) Close() {
	close(m.stop)
	<-m.done
}

func (m *Memory) sweep() {
	defer close(m.done)

	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for id, e := range m.sessions {
				if now.Sub(e.touched) > m.ttl {
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

// get returns the entry for sessionID, creating it when create is set.
// Caller must hold m.mu.
func (m *Memory) get(sessionID string, create bool) *entry {
	e, ok := m.sessions[sessionID]
	if !ok {
		if !create {
			return nil
		}
		e = &entry{}
		m.sessions[sessionID] = e
	}
	e.touched = time.Now()
	return e
}

// GetCart returns a copy of the session's cart lines.
func (m *Memory) GetCart(_ context.Context, sessionID string) ([]cart.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.get(sessionID, false)
	if e == nil || len(e.lines) == 0 {
		return nil, ErrNoCart
	}

	out := make([]cart.Line, len(e.lines))
	copy(out, e.lines)
	return out, nil
}

// SetCart replaces the session's cart lines.
func (m *Memory) SetCart(_ context.Context, sessionID string, lines []cart.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.get(sessionID, true)
	e.lines = make([]cart.Line, len(lines))
	copy(e.lines, lines)
	return nil
}

// ClearCart removes the session's cart.
func (m *Memory) ClearCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.get(sessionID, false); e != nil {
		e.lines = nil
	}
	return nil
}

// SaveDraft overwrites the session's draft slot.
func (m *Memory) SaveDraft(_ context.Context, sessionID string, draft *order.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := *draft
	m.get(sessionID, true).draft = &d
	return nil
}

// LoadDraft returns the session's draft, or ErrNoDraft when the slot is empty.
func (m *Memory) LoadDraft(_ context.Context, sessionID string) (*order.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.get(sessionID, false)
	if e == nil || e.draft == nil {
		return nil, ErrNoDraft
	}

	d := *e.draft
	return &d, nil
}

// ClearDraft empties the session's draft slot.
func (m *Memory) ClearDraft(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.get(sessionID, false); e != nil {
		e.draft = nil
	}
	return nil
}
