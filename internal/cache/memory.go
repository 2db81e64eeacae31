package cache

import (
	"context"
	"sync"
)

// Memory is an in-process Store with per-key generation counters.
type Memory struct {
	prefix string

	mu      sync.RWMutex
	entries map[string][]byte
	gens    map[string]uint64
	subs    map[chan string]struct{}
}

// NewMemory creates an empty in-process cache.
func NewMemory(prefix string) *Memory {
	return &Memory{
		prefix:  prefix,
		entries: make(map[string][]byte),
		gens:    make(map[string]uint64),
		subs:    make(map[chan string]struct{}),
	}
}

// Set stores a payload for the tournament.
func (m *Memory) Set(_ context.Context, tournamentID string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[Key(m.prefix, tournamentID)] = append([]byte(nil), payload...)
	return nil
}

// Get returns the cached payload or ErrNotFound.
func (m *Memory) Get(_ context.Context, tournamentID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.entries[Key(m.prefix, tournamentID)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), payload...), nil
}

// Invalidate drops the entry, bumps its generation and notifies subscribers.
// Subscribers that are not keeping up miss the signal.
func (m *Memory) Invalidate(_ context.Context, tournamentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(m.prefix, tournamentID)
	delete(m.entries, key)
	m.gens[key]++

	for ch := range m.subs {
		select {
		case ch <- tournamentID:
		default:
		}
	}
	return nil
}

// Generation returns how many times the tournament has been invalidated.
func (m *Memory) Generation(tournamentID string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gens[Key(m.prefix, tournamentID)]
}

// Subscribe returns a channel of invalidated tournament ids and a function
// that ends the subscription and closes the channel.
func (m *Memory) Subscribe(buffer int) (<-chan string, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan string, buffer)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
