// Package confirmstore keeps the confirmations a user has given during a
// session, so later intents reusing a confirmed term resolve without asking
// again.
//
// Entries expire with the token they carry. Every read returns only live
// entries, in the order they were stored; the resolver treats the result as
// an immutable snapshot.
//
// Two implementations exist:
//   - Memory: process-local, for tests and one-shot CLI runs
//   - SQLite: durable across CLI invocations (WAL mode, single writer)
package confirmstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/semfilter/internal/filterir"
)

// Store holds confirmations per session.
//
// Implementations are safe for concurrent use.
type Store interface {
	// Put records c for session until expiresAt. Storing the same token
	// twice replaces the earlier entry.
	Put(ctx context.Context, session string, c filterir.Confirmation, expiresAt time.Time) error

	// Snapshot returns the session's unexpired confirmations in insertion
	// order. An unknown session has none.
	Snapshot(ctx context.Context, session string) ([]filterir.Confirmation, error)

	Close() error
}

var (
	// ErrNoSession is returned by Put for an empty session ID.
	ErrNoSession = errors.New("confirmstore: empty session id")

	// ErrNoToken is returned by Put for a confirmation without a token.
	ErrNoToken = errors.New("confirmstore: confirmation has no token")
)

// Option configures a Store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func checkPut(session string, c filterir.Confirmation) error {
	if session == "" {
		return ErrNoSession
	}
	if c.Token == "" {
		return ErrNoToken
	}
	return nil
}

// SessionGenerator creates session IDs.
// Implemented by UUIDv7Generator (production) and
// testutil.FixedSessionGenerator (tests).
type SessionGenerator interface {
	NewSessionID() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so sessions sort
// by creation time in the SQLite store.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewSessionID returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) NewSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}
