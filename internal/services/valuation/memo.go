package valuation

import (
	"sync"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
)

// Memo is a caller-owned memo table of curve sets keyed by day count.
// It is safe for concurrent use; the Engine itself keeps no cache.
type Memo struct {
	e  *Engine
	mu sync.RWMutex
	m  map[int]models.CurveSet
}

// NewMemo creates an empty memo table over e.
func NewMemo(e *Engine) *Memo {
	return &Memo{e: e, m: make(map[int]models.CurveSet)}
}

// Evaluate returns the memoized curve set for t's day, computing it on a miss.
func (m *Memo) Evaluate(t time.Time) models.CurveSet {
	days := m.e.DayCount(t)

	m.mu.RLock()
	cs, ok := m.m[days]
	m.mu.RUnlock()
	if ok {
		return cs
	}

	cs = m.e.Evaluate(t)
	m.mu.Lock()
	m.m[days] = cs
	m.mu.Unlock()
	return cs
}

// Len returns the number of memoized days.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

// Reset drops all memoized entries.
func (m *Memo) Reset() {
	m.mu.Lock()
	m.m = make(map[int]models.CurveSet)
	m.mu.Unlock()
}
