package auth

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/kachraalert/kachra-auth/middleware/jwtware"
)

// DefaultPhoneRegion is the default region hint for phone validation.
const DefaultPhoneRegion = "NP"

// RegisterAuthRoutes mounts the auth API on a router group, normally
// rooted at /api/v1/auth so the refresh cookie path lines up.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.Register).SetName("auth.register")
	app.Post(controller.Routes.Login, controller.Login).SetName("auth.login")
	app.Post(controller.Routes.Refresh, controller.Refresh).SetName("auth.refresh")
	app.Post(controller.Routes.Logout, controller.Logout).SetName("auth.logout")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPassword).SetName("auth.forgot-password")
	app.Post(controller.Routes.ResetPassword, controller.ResetPassword).SetName("auth.reset-password")
	app.Get(controller.Routes.OAuth, controller.OAuthPlaceholder).SetName("auth.oauth")

	app.Get(controller.Routes.Me, controller.Me,
		controller.Auther.ProtectedRoute(controller.Auther.AuthErrorHandler(false)),
	).SetName("auth.me")
}

type AuthControllerRoutes struct {
	Register       string
	Login          string
	Refresh        string
	Logout         string
	Me             string
	ForgotPassword string
	ResetPassword  string
	OAuth          string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Sessions     SessionIssuer
	Routes       *AuthControllerRoutes
	Auther       *RouteAuthenticator
	PhoneRegion  string
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerSessions(sessions SessionIssuer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Sessions = sessions
		return c
	}
}

func WithControllerAuther(auther *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:      defLogger{},
		PhoneRegion: DefaultPhoneRegion,
		Routes: &AuthControllerRoutes{
			Register:       "/register",
			Login:          "/login",
			Refresh:        "/refresh",
			Logout:         "/logout",
			Me:             "/me",
			ForgotPassword: "/forgot-password",
			ResetPassword:  "/reset-password",
			OAuth:          "/oauth/:provider",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Sessions == nil {
		panic("Missing SessionIssuer in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.Auther.ErrorHandler
	}

	return c
}

// RegisterRequest payload
type RegisterRequest struct {
	AccountType string `form:"account_type" json:"account_type"`
	Name        string `form:"name" json:"name"`
	Email       string `form:"email" json:"email"`
	Phone       string `form:"phone" json:"phone"`
	Password    string `form:"password" json:"password"`
	Society     string `form:"society" json:"society"`
	Building    string `form:"building" json:"building"`
	Apartment   string `form:"apartment" json:"apartment"`
	Remember    bool   `form:"remember" json:"remember"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AccountType, validation.In(AccountTypeResident, AccountTypeAdminDriver)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber(DefaultPhoneRegion))),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Society, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Building, validation.Length(0, 100)),
		validation.Field(&r.Apartment, validation.Length(0, 100)),
	)
}

func (a *AuthController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload: %v", err)
		return a.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, FormatValidationErrorToMap(err))
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER =======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=============================")
	}

	result, err := a.Sessions.Register(ctx.Context(), RegisterPayload{
		AccountType: payload.AccountType,
		Name:        payload.Name,
		Email:       payload.Email,
		Phone:       NormalizePhone(payload.Phone, a.PhoneRegion),
		Password:    payload.Password,
		Society:     payload.Society,
		Building:    payload.Building,
		Apartment:   payload.Apartment,
		Remember:    payload.Remember,
	}, requestMeta(ctx))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.Auther.SetRefreshCookie(ctx, result.RefreshToken, result.RefreshTTL)

	return ctx.JSON(http.StatusCreated, map[string]any{
		"user":         result.User,
		"access_token": result.AccessToken,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Remember bool   `form:"remember" json:"remember"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, FormatValidationErrorToMap(err))
	}

	result, err := a.Sessions.Login(ctx.Context(), LoginPayload{
		Email:    payload.Email,
		Password: payload.Password,
		Remember: payload.Remember,
	}, requestMeta(ctx))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.Auther.SetRefreshCookie(ctx, result.RefreshToken, result.RefreshTTL)

	return ctx.JSON(router.StatusOK, map[string]any{
		"user":         result.User,
		"access_token": result.AccessToken,
	})
}

// Refresh rotates the session named by the refresh cookie. Any failure
// clears the cookie so clients fall back to a clean login.
func (a *AuthController) Refresh(ctx router.Context) error {
	token := ctx.Cookies(RefreshCookieName)
	if token == "" {
		a.Auther.ClearRefreshCookie(ctx)
		return a.ErrorHandler(ctx, ErrInvalidRefresh)
	}

	result, err := a.Sessions.Refresh(ctx.Context(), token, requestMeta(ctx))
	if err != nil {
		a.Auther.ClearRefreshCookie(ctx)
		return a.ErrorHandler(ctx, err)
	}

	a.Auther.SetRefreshCookie(ctx, result.RefreshToken, result.RefreshTTL)

	return ctx.JSON(router.StatusOK, map[string]any{
		"user":         result.User,
		"access_token": result.AccessToken,
	})
}

func (a *AuthController) Logout(ctx router.Context) error {
	if token := ctx.Cookies(RefreshCookieName); token != "" {
		if err := a.Sessions.Logout(ctx.Context(), token); err != nil {
			a.Logger.Warn("logout revoke failed: %v", err)
		}
	}

	a.Auther.ClearRefreshCookie(ctx)

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Logged out",
	})
}

func (a *AuthController) Me(ctx router.Context) error {
	claims, ok := ctx.Locals("user").(jwtware.AuthClaims)
	if !ok || claims == nil {
		return a.ErrorHandler(ctx, ErrTokenMalformed)
	}

	user, err := a.Sessions.GetUser(ctx.Context(), claims.UserID())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": user,
	})
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, FormatValidationErrorToMap(err))
	}

	result, err := a.Sessions.ForgotPassword(ctx.Context(), payload.Email)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	// The response is identical for known and unknown emails.
	body := map[string]any{
		"message": "If the account exists, reset instructions were sent",
	}
	if result.DevResetToken != "" {
		body["dev_reset_token"] = result.DevResetToken
	}

	return ctx.JSON(router.StatusOK, body)
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Token           string `form:"token" json:"token"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) ResetPassword(ctx router.Context) error {
	payload := new(ResetPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, FormatValidationErrorToMap(err))
	}

	if err := a.Sessions.ResetPassword(ctx.Context(), payload.Token, payload.Password); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Password updated",
	})
}

// OAuthPlaceholder reserves the provider routes until social login ships.
func (a *AuthController) OAuthPlaceholder(ctx router.Context) error {
	provider := ctx.Param("provider", "")

	return ctx.JSON(http.StatusNotImplemented, map[string]any{
		"error": map[string]any{
			"message":   fmt.Sprintf("OAuth provider %q is not available yet", provider),
			"text_code": "NOT_IMPLEMENTED",
		},
	})
}

func (a *AuthController) validationError(ctx router.Context, fields map[string]string) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"message":   "Validation failed",
			"text_code": "VALIDATION_ERROR",
			"fields":    fields,
		},
	})
}

func requestMeta(ctx router.Context) RequestMeta {
	return RequestMeta{
		IP:        ctx.IP(),
		UserAgent: ctx.GetString("User-Agent", ""),
	}
}
