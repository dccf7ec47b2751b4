package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// WSTokenValidator implements go-router's WSTokenValidator interface on top
// of the access token codec so WebSocket upgrades share the HTTP auth path.
type WSTokenValidator struct {
	codec TokenCodec
}

// NewWSTokenValidator creates a new WebSocket token validator using the provided TokenCodec
func NewWSTokenValidator(codec TokenCodec) *WSTokenValidator {
	return &WSTokenValidator{
		codec: codec,
	}
}

// Validate validates a token string and returns WebSocket-compatible auth claims
func (w *WSTokenValidator) Validate(tokenString string) (router.WSAuthClaims, error) {
	claims, err := w.codec.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &WSAuthClaimsAdapter{claims: claims}, nil
}

// WSAuthClaimsAdapter adapts AccessClaims to go-router's WSAuthClaims interface.
// Account types stand in for roles: admin_driver accounts can mutate, every
// authenticated account can read.
type WSAuthClaimsAdapter struct {
	claims *AccessClaims
}

// Subject returns the subject claim
func (w *WSAuthClaimsAdapter) Subject() string {
	return w.claims.Subject
}

// UserID returns the user ID
func (w *WSAuthClaimsAdapter) UserID() string {
	return w.claims.UserID()
}

// Role returns the account type
func (w *WSAuthClaimsAdapter) Role() string {
	return w.claims.AccountType
}

// CanRead checks if the user can read a specific resource
func (w *WSAuthClaimsAdapter) CanRead(resource string) bool {
	return true
}

// CanEdit checks if the user can edit a specific resource
func (w *WSAuthClaimsAdapter) CanEdit(resource string) bool {
	return w.claims.HasAccountType(AccountTypeAdminDriver)
}

// CanCreate checks if the user can create a specific resource
func (w *WSAuthClaimsAdapter) CanCreate(resource string) bool {
	return w.claims.HasAccountType(AccountTypeAdminDriver)
}

// CanDelete checks if the user can delete a specific resource
func (w *WSAuthClaimsAdapter) CanDelete(resource string) bool {
	return w.claims.HasAccountType(AccountTypeAdminDriver)
}

// HasRole checks if the user has a specific account type
func (w *WSAuthClaimsAdapter) HasRole(role string) bool {
	return w.claims.HasAccountType(role)
}

// IsAtLeast checks if the account type meets the minimum required level
func (w *WSAuthClaimsAdapter) IsAtLeast(minRole string) bool {
	if minRole == AccountTypeAdminDriver {
		return w.claims.HasAccountType(AccountTypeAdminDriver)
	}
	return true
}

// NewWSAuthMiddleware creates a fully configured WebSocket authentication
// middleware sharing the HTTP access token codec.
func (a *RouteAuthenticator) NewWSAuthMiddleware(codec TokenCodec, config ...router.WSAuthConfig) router.WebSocketMiddleware {
	validator := NewWSTokenValidator(codec)

	var cfg router.WSAuthConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	cfg.TokenValidator = validator

	return router.NewWSAuth(cfg)
}

// WSAuthClaimsFromContext is a convenience function to retrieve auth claims from WebSocket context.
func WSAuthClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	wsAuthClaims, ok := router.WSAuthClaimsFromContext(ctx)
	if !ok {
		return nil, false
	}

	if adapter, ok := wsAuthClaims.(*WSAuthClaimsAdapter); ok {
		return adapter.claims, true
	}

	return nil, false
}
