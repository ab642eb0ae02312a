package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedSessionGenerator(t *testing.T) {
	gen := NewFixedSessionGenerator("session-1")
	assert.Equal(t, "session-1", gen.NewSessionID())
	assert.Equal(t, "session-1", gen.NewSessionID())
}

func TestFixedSessionGenerator_Default(t *testing.T) {
	gen := NewFixedSessionGenerator("")
	assert.Equal(t, "test-session-default", gen.NewSessionID())
}
