package auth_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/kachraalert/kachra-auth"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ram@example.com", auth.NormalizeEmail("  Ram@Example.COM "))
	assert.Equal(t, "ram@example.com", auth.NormalizeEmail("ram@example.com"))
	assert.Equal(t, "", auth.NormalizeEmail("   "))
}

func TestParseAccountType(t *testing.T) {
	at, ok := auth.ParseAccountType("resident")
	assert.True(t, ok)
	assert.Equal(t, auth.AccountTypeResident, at)

	at, ok = auth.ParseAccountType("admin_driver")
	assert.True(t, ok)
	assert.Equal(t, auth.AccountTypeAdminDriver, at)

	_, ok = auth.ParseAccountType("astronaut")
	assert.False(t, ok)

	_, ok = auth.ParseAccountType("")
	assert.False(t, ok)
}

func TestNewUserView(t *testing.T) {
	id := uuid.New()
	user := &auth.User{
		ID:           id,
		AccountType:  auth.AccountTypeResident,
		Name:         "Ram Thapa",
		Email:        "ram@example.com",
		Phone:        "+9779841000000",
		PasswordHash: "$2a$12$secret",
		Society:      "Green Valley",
		Building:     "B",
		Apartment:    "4A",
	}

	view := auth.NewUserView(user)
	require.NotNil(t, view)
	assert.Equal(t, id.String(), view.ID)
	assert.Equal(t, "Ram Thapa", view.Name)
	assert.Equal(t, "ram@example.com", view.Email)
	assert.Equal(t, "Green Valley", view.Society)

	// The projection never carries the password hash.
	data, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "password")

	assert.Nil(t, auth.NewUserView(nil))
}

func TestUserJSONOmitsPasswordHash(t *testing.T) {
	user := &auth.User{
		ID:           uuid.New(),
		Email:        "ram@example.com",
		PasswordHash: "$2a$12$secret",
	}
	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password_hash")
	assert.NotContains(t, string(data), "secret")
}

func TestRefreshSessionActive(t *testing.T) {
	now := time.Now()
	session := &auth.RefreshSession{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, session.Active(now))

	expired := &auth.RefreshSession{ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, expired.Active(now))

	revokedAt := now.Add(-time.Minute)
	revoked := &auth.RefreshSession{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}
	assert.False(t, revoked.Active(now))
}
