package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsScriptsKeepsNotation(t *testing.T) {
	out := Sanitize(`<p>E = mc<sup>2</sup></p><script>alert(1)</script>`)

	assert.Contains(t, out, "<sup>2</sup>")
	assert.NotContains(t, out, "script")
}

func TestUniqueUintPreservesFirstOccurrenceOrder(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, UniqueUint([]uint{3, 1, 3, 2, 1}))
	assert.Empty(t, UniqueUint(nil))
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("orbital-mechanics")
	assert.NoError(t, err)
	assert.True(t, CheckPassword(hash, "orbital-mechanics"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
