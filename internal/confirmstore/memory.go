package confirmstore

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/semfilter/internal/filterir"
)

type entry struct {
	conf      filterir.Confirmation
	expiresAt time.Time
}

// Memory is an in-process Store. Expired entries are evicted lazily on
// access.
type Memory struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string][]entry
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{now: o.now, sessions: make(map[string][]entry)}
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, session string, c filterir.Confirmation, expiresAt time.Time) error {
	if err := checkPut(session, c); err != nil {
		return err
	}
	c.Terms = append([]string(nil), c.Terms...)

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.live(session)
	kept := entries[:0]
	for _, e := range entries {
		if e.conf.Token != c.Token {
			kept = append(kept, e)
		}
	}
	m.sessions[session] = append(kept, entry{conf: c, expiresAt: expiresAt})
	return nil
}

// Snapshot implements Store.
func (m *Memory) Snapshot(_ context.Context, session string) ([]filterir.Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.live(session)
	out := make([]filterir.Confirmation, len(entries))
	for i, e := range entries {
		out[i] = filterir.Confirmation{
			Token: e.conf.Token,
			Terms: append([]string(nil), e.conf.Terms...),
		}
	}
	return out, nil
}

// Close implements Store. It drops every session.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string][]entry)
	return nil
}

// live evicts the session's expired entries and returns the rest.
// Caller must hold mu.
func (m *Memory) live(session string) []entry {
	now := m.now()
	entries := m.sessions[session]
	kept := entries[:0]
	for _, e := range entries {
		if now.Before(e.expiresAt) {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(m.sessions, session)
		return nil
	}
	m.sessions[session] = kept
	return kept
}
