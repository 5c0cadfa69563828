package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	f := New("key")
	a := f.Of("S1234567A")
	assert.Len(t, a, 64)
	assert.Equal(t, a, f.Of(" s1234567a "), "normalized before hashing")
	assert.NotEqual(t, a, f.Of("T7654321J"))
	assert.NotEqual(t, a, New("other").Of("S1234567A"), "keyed")
	assert.NotContains(t, a, "1234567")
	assert.Empty(t, f.Of("  "))
}

func TestLongKey(t *testing.T) {
	f := New(strings.Repeat("k", 200))
	assert.Len(t, f.Of("S1234567A"), 64)
}
