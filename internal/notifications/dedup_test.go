package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecentSet_ClaimOnce(t *testing.T) {
	s := newRecentSet(3)
	assert.True(t, s.claim("a"))
	assert.False(t, s.claim("a"))
}

func TestRecentSet_EvictsOldest(t *testing.T) {
	s := newRecentSet(2)
	assert.True(t, s.claim("a"))
	assert.True(t, s.claim("b"))
	assert.True(t, s.claim("c"))

	assert.True(t, s.claim("a"), "a fell out of the window")
	assert.False(t, s.claim("c"))
}

func TestRecentSet_ForgetThenReclaim(t *testing.T) {
	s := newRecentSet(3)
	assert.True(t, s.claim("a"))
	s.forget("a")

	assert.True(t, s.claim("a"))
	assert.True(t, s.claim("b"))
	assert.True(t, s.claim("c"))

	// the retried key still owns a live slot inside the window
	assert.False(t, s.claim("a"))
	assert.False(t, s.claim("b"))
	assert.False(t, s.claim("c"))
}

func TestRecentSet_ForgetUnknown(t *testing.T) {
	s := newRecentSet(2)
	s.forget("missing")
	assert.True(t, s.claim("missing"))
}
