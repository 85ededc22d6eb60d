package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	hash, err := h.Hash("sentosa123")
	require.NoError(t, err)
	assert.NotEqual(t, "sentosa123", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.NoError(t, h.Compare(hash, "sentosa123"))
	assert.ErrorIs(t, h.Compare(hash, "wrong-password"), ErrPasswordMismatch)
	assert.Error(t, h.Compare("not-a-hash", "sentosa123"))
}

func TestHashEnforcesLength(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	_, err := h.Hash("short")
	assert.ErrorIs(t, err, ErrPasswordLength)

	_, err = h.Hash(strings.Repeat("x", MaxPasswordLen+1))
	assert.ErrorIs(t, err, ErrPasswordLength)

	_, err = h.Hash(strings.Repeat("x", MaxPasswordLen))
	assert.NoError(t, err)
}

func TestOutOfRangeCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(bcrypt.MaxCost+1).cost)
}

func TestCompareMissingBuildsDecoyOnce(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)
	h.CompareMissing("sentosa123")
	first := h.decoy
	require.NotEmpty(t, first)

	h.CompareMissing("another")
	assert.Equal(t, first, h.decoy)
}
