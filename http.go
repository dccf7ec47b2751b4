package auth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/kachraalert/kachra-auth/middleware/jwtware"
)

// RefreshCookieName is the cookie the refresh token travels in.
const RefreshCookieName = "refreshToken"

// RouteAuthenticator wires the session manager into HTTP concerns: the
// refresh cookie, the access-token middleware and the error rendering.
type RouteAuthenticator struct {
	sessions       SessionIssuer
	cfg            Config
	tokenValidator jwtware.TokenValidator
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

func NewHTTPAuthenticator(sessions SessionIssuer, codec TokenCodec, cfg Config) (*RouteAuthenticator, error) {
	if sessions == nil {
		return nil, errors.New("http authenticator requires a session issuer", errors.CategoryInternal)
	}
	if codec == nil {
		return nil, errors.New("http authenticator requires a token codec", errors.CategoryInternal)
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		sessions:       sessions,
		tokenValidator: NewAccessTokenValidator(codec),
		Logger:         defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// ProtectedRoute validates the Authorization bearer token and stores the
// parsed claims under the "user" context key.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.AuthErrorHandler(false)
	}
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return jwtware.New(jwtware.Config{
			ErrorHandler: errorHandler,
			SigningKey: jwtware.SigningKey{
				Key:    []byte(a.cfg.GetAccessSigningKey()),
				JWTAlg: "HS256",
			},
			TokenValidator: a.tokenValidator,
			AuthScheme:     "Bearer",
			ContextKey:     "user",
			TokenLookup:    "header:Authorization",
		})
	}
}

// RequireAccountType gates a route to one or more account types. It must
// run after ProtectedRoute.
func (a *RouteAuthenticator) RequireAccountType(accountTypes ...string) router.MiddlewareFunc {
	allowed := map[string]bool{}
	for _, at := range accountTypes {
		allowed[at] = true
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			claims, ok := c.Locals("user").(*AccessClaims)
			if !ok || claims == nil {
				return a.ErrorHandler(c, ErrTokenMalformed)
			}

			if !allowed[claims.AccountType] {
				return a.ErrorHandler(c, errors.New("account type not allowed", errors.CategoryAuthz).
					WithCode(errors.CodeForbidden))
			}

			return hf(c)
		}
	}
}

// AuthErrorHandler maps middleware token failures to the JSON error shape.
// With optional set, failures fall through to the handler unauthenticated.
func (a *RouteAuthenticator) AuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// SetRefreshCookie scopes the refresh token cookie to the auth routes so it
// never rides along on other requests.
func (a *RouteAuthenticator) SetRefreshCookie(c router.Context, token string, ttl time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     a.cookiePath(),
		Domain:   a.cfg.GetCookieDomain(),
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl / time.Second),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

// ClearRefreshCookie expires the refresh cookie.
func (a *RouteAuthenticator) ClearRefreshCookie(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     a.cookiePath(),
		Domain:   a.cfg.GetCookieDomain(),
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookiePath() string {
	if p := a.cfg.GetCookiePath(); p != "" {
		return p
	}
	return "/api/v1/auth"
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Request error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := richErr.Code
	if status < http.StatusBadRequest || status > 599 {
		status = http.StatusInternalServerError
	}

	return c.JSON(status, map[string]any{
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
		},
	})
}
