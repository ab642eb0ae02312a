package testutil

// FixedSessionGenerator returns the same confirmation session ID every time.
//
// The same scenario with the same FixedSessionGenerator stores its
// confirmations under a predictable key, so tests can read them back.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a fixed generator.
// If id is empty, NewSessionID returns "test-session-default".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// NewSessionID returns the fixed session ID.
func (g *FixedSessionGenerator) NewSessionID() string {
	return g.id
}
