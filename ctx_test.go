package auth_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/kachraalert/kachra-auth"
)

func TestUserContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.FromContext(ctx)
	assert.False(t, ok)

	user := &auth.User{Email: "ram@example.com"}
	ctx = auth.WithContext(ctx, user)

	got, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, user, got)
}

func TestClaimsContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.GetClaims(ctx)
	assert.False(t, ok)

	claims := &auth.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		AccountType:      auth.AccountTypeResident,
	}
	ctx = auth.WithClaimsContext(ctx, claims)

	got, ok := auth.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UserID())

	assert.True(t, auth.IsAccountType(ctx, auth.AccountTypeResident))
	assert.False(t, auth.IsAccountType(ctx, auth.AccountTypeAdminDriver))
	assert.False(t, auth.IsAccountType(context.Background(), auth.AccountTypeResident))
}
