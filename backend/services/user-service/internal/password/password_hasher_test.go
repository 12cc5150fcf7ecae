package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 8)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.Error(t, h.Compare(hash, "wrong horse"))

	_, err = h.Hash("short")
	assert.ErrorIs(t, err, ErrTooShort)
	_, err = h.Hash("")
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestBcryptHasherCostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0, 0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99, 0).cost)
}
