package calendar

import (
	"sync"
	"time"

	"taskcal/internal/parse"
)

type memoEntry struct {
	fingerprint string
	analysis    parse.Analysis
	lastUsed    time.Time
}

// parseMemo caches one parse result per item, valid while the item's text
// fingerprint is unchanged.
type parseMemo struct {
	mu      sync.Mutex
	entries map[string]*memoEntry
	now     func() time.Time
}

func newParseMemo() *parseMemo {
	return &parseMemo{
		entries: make(map[string]*memoEntry),
		now:     time.Now,
	}
}

func (m *parseMemo) get(itemID, fingerprint string, compute func() parse.Analysis) parse.Analysis {
	m.mu.Lock()
	if e, ok := m.entries[itemID]; ok && e.fingerprint == fingerprint {
		e.lastUsed = m.now()
		m.mu.Unlock()
		return e.analysis
	}
	m.mu.Unlock()

	// Parsing is pure, so two goroutines racing here compute the same value.
	a := compute()

	m.mu.Lock()
	m.entries[itemID] = &memoEntry{fingerprint: fingerprint, analysis: a, lastUsed: m.now()}
	m.mu.Unlock()
	return a
}

// sweep drops entries unused for longer than maxAge and returns how many
// were removed.
func (m *parseMemo) sweep(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxAge)
	n := 0
	for id, e := range m.entries {
		if e.lastUsed.Before(cutoff) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

func (m *parseMemo) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
