package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/kachraalert/kachra-auth"
)

func TestHashPassword(t *testing.T) {
	hash, err := auth.HashPassword("sekrit-password")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "sekrit-password", hash)

	require.NoError(t, auth.ComparePasswordAndHash("sekrit-password", hash))

	err = auth.ComparePasswordAndHash("wrong-password", hash)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := auth.HashPassword("")
	assert.Error(t, err)
}

func TestRandomPasswordHash(t *testing.T) {
	hash := auth.RandomPasswordHash()
	require.NotEmpty(t, hash)

	// No cleartext matches a throwaway hash.
	assert.Error(t, auth.ComparePasswordAndHash("anything", hash))
}
