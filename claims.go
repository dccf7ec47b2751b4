package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the claim set carried by short-lived access tokens.
// Subject is the user id; Email and AccountType let handlers authorize
// without a user lookup. Access claims never carry a session id.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	AccountType string `json:"account_type"`
}

// UserID returns the subject user id.
func (c *AccessClaims) UserID() string {
	return c.Subject
}

// HasAccountType reports whether the token was issued for the given
// account type.
func (c *AccessClaims) HasAccountType(accountType string) bool {
	return c.AccountType == accountType
}

// Identity converts the claims into the transport-neutral identity.
func (c *AccessClaims) Identity() Identity {
	return Identity{
		ID:          c.Subject,
		Email:       c.Email,
		AccountType: c.AccountType,
	}
}

// RefreshClaims is the claim set carried by refresh tokens. It is
// deliberately disjoint from AccessClaims: subject plus the session jti,
// nothing else. A refresh token is never accepted where an access token
// is expected and vice versa because each kind is signed with its own
// secret.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject user id.
func (c *RefreshClaims) UserID() string {
	return c.Subject
}

// SessionID returns the jti identifying the refresh session row.
func (c *RefreshClaims) SessionID() string {
	return c.ID
}

func newRegisteredClaims(subject, issuer, audience string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if issuer != "" {
		claims.Issuer = issuer
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return claims
}
