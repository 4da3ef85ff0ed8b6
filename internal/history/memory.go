package history

import (
	"context"
	"sync"
	"time"
)

// DefaultMemoryCapacity is how many events Memory keeps.
const DefaultMemoryCapacity = 1000

// Memory keeps the most recent events in a ring buffer.
type Memory struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

// NewMemory returns a recorder holding up to capacity events.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{events: make([]Event, capacity)}
}

func (m *Memory) Record(ctx context.Context, e Event) error {
	e = normalize(e)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[m.next] = e
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

func (m *Memory) List(ctx context.Context, opts ListOptions) ([]Event, error) {
	limit := clampLimit(opts.Limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Event, 0, min(limit, m.lenLocked()))
	for i := 0; i < m.lenLocked() && len(out) < limit; i++ {
		idx := (m.next - 1 - i + len(m.events)) % len(m.events)
		e := m.events[idx]
		if opts.Source != "" && e.Source != opts.Source {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *Memory) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.lenLocked()
	kept := make([]Event, 0, n)
	for i := n - 1; i >= 0; i-- {
		e := m.events[(m.next-1-i+len(m.events))%len(m.events)]
		if !e.LoadedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}

	pruned := int64(n - len(kept))
	m.events = make([]Event, len(m.events))
	copy(m.events, kept)
	m.next = len(kept) % len(m.events)
	m.full = len(kept) == len(m.events)
	return pruned, nil
}

func (m *Memory) Close() {}

func (m *Memory) lenLocked() int {
	if m.full {
		return len(m.events)
	}
	return m.next
}
