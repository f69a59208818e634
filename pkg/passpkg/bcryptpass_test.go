package passpkg

import (
	"testing"

	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheck(t *testing.T) {
	password := randompkg.String(12)

	hashed1, err := Hash(password)
	require.NoError(t, err)
	require.NotEmpty(t, hashed1)
	require.NotEqual(t, password, hashed1)

	require.NoError(t, Check(password, hashed1))

	err = Check(randompkg.String(12), hashed1)
	require.ErrorIs(t, err, bcrypt.ErrMismatchedHashAndPassword)

	// salt differs between calls
	hashed2, err := Hash(password)
	require.NoError(t, err)
	require.NotEqual(t, hashed1, hashed2)
}

func TestHashTooLong(t *testing.T) {
	_, err := Hash(randompkg.String(100))
	require.Error(t, err)
}
