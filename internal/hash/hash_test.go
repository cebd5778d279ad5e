package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSHA256_IsDeterministic(t *testing.T) {
	h := SHA256{}
	a := h.Hash([]byte("hello"))
	b := h.Hash([]byte("hello"))
	assert.Equal(t, a, b)
}

func TestSHA256_DiffersOnChangedInput(t *testing.T) {
	h := SHA256{}
	a := h.Hash([]byte("hello"))
	b := h.Hash([]byte("hello!"))
	assert.NotEqual(t, a, b)
}

func TestSHA256_IsLowerHex64Chars(t *testing.T) {
	h := SHA256{}
	digest := h.Hash([]byte("ixchel"))
	assert.Len(t, digest, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", digest)
}
