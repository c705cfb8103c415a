package ledger

import (
	"context"
	"sync"

	"github.com/bobmcallan/folio/internal/models"
)

type lease struct {
	window  models.DateWindow
	groupBy models.GroupBy
	done    chan struct{}
}

func (l *lease) overlaps(w models.DateWindow, g models.GroupBy) bool {
	return l.groupBy == g && l.window.From <= w.To && w.From <= l.window.To
}

// Leases serializes recomputes whose windows overlap for the same grouping.
// Recomputes of disjoint windows or different groupings run concurrently.
type Leases struct {
	mu     sync.Mutex
	active map[*lease]struct{}
}

func NewLeases() *Leases {
	return &Leases{active: make(map[*lease]struct{})}
}

// Acquire blocks until no overlapping lease is held, then takes one.
// The returned release func must be called exactly once.
func (m *Leases) Acquire(ctx context.Context, window models.DateWindow, groupBy models.GroupBy) (func(), error) {
	for {
		m.mu.Lock()
		var blocker *lease
		for l := range m.active {
			if l.overlaps(window, groupBy) {
				blocker = l
				break
			}
		}
		if blocker == nil {
			l := &lease{window: window, groupBy: groupBy, done: make(chan struct{})}
			m.active[l] = struct{}{}
			m.mu.Unlock()
			return func() {
				m.mu.Lock()
				delete(m.active, l)
				m.mu.Unlock()
				close(l.done)
			}, nil
		}
		m.mu.Unlock()

		select {
		case <-blocker.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Held returns the number of leases currently held.
func (m *Leases) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
