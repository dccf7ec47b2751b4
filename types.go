package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity struct {
	ID          string
	Email       string
	AccountType string
}

// Config holds auth options
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenDuration() time.Duration
	GetRefreshRememberDuration() time.Duration
	GetIssuer() string
	GetAudience() string
	GetCookieDomain() string
	GetCookiePath() string
	GetCookieSecure() bool
	GetEnvironment() string
}

// TokenCodec signs and verifies the two token kinds. Access and refresh
// tokens carry disjoint claim sets and are signed with independent secrets,
// so neither verifier will ever accept the other's output.
type TokenCodec interface {
	SignAccessToken(identity Identity) (string, error)
	SignRefreshToken(userID, sessionID string, ttl time.Duration) (token string, jti string, err error)
	VerifyAccessToken(token string) (*AccessClaims, error)
	VerifyRefreshToken(token string) (*RefreshClaims, error)
}

// RequestMeta carries per-request audit attributes into the session stores.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// SessionIssuer is the surface the transport layer needs from the lifecycle
// manager.
type SessionIssuer interface {
	Register(ctx context.Context, payload RegisterPayload, meta RequestMeta) (*AuthResult, error)
	Login(ctx context.Context, payload LoginPayload, meta RequestMeta) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResult, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	GetUser(ctx context.Context, userID string) (*UserView, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
