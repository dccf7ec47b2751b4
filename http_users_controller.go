package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterUserRoutes mounts the users API on a router group, normally
// rooted at /api/v1/users. The directory routes require the admin/driver
// account type; the /me routes only need a valid bearer token.
func RegisterUserRoutes[T any](app router.Router[T], opts ...UserControllerOption) {
	controller := NewUserController(opts...)

	protected := controller.Auther.ProtectedRoute(nil)
	adminOnly := controller.Auther.RequireAccountType(AccountTypeAdminDriver)

	app.Get(controller.Routes.Me, controller.Me, protected).SetName("users.me")
	app.Patch(controller.Routes.Me, controller.UpdateProfile, protected).SetName("users.me.update")
	app.Post(controller.Routes.Avatar, controller.UploadAvatar, protected).SetName("users.me.avatar.upload")
	app.Get(controller.Routes.Avatar, controller.DownloadAvatar, protected).SetName("users.me.avatar")

	app.Get(controller.Routes.List, controller.ListUsers, protected, adminOnly).SetName("users.list")
	app.Get(controller.Routes.Detail, controller.GetUser, protected, adminOnly).SetName("users.detail")
}

type UserControllerRoutes struct {
	List   string
	Detail string
	Me     string
	Avatar string
}

type UserController struct {
	Logger       Logger
	Sessions     *SessionManager
	Auther       *RouteAuthenticator
	Routes       *UserControllerRoutes
	PhoneRegion  string
	ErrorHandler router.ErrorHandler
}

type UserControllerOption func(*UserController) *UserController

func WithUserControllerLogger(logger Logger) UserControllerOption {
	return func(c *UserController) *UserController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithUserControllerSessions(sessions *SessionManager) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Sessions = sessions
		return c
	}
}

func WithUserControllerAuther(auther *RouteAuthenticator) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Auther = auther
		return c
	}
}

func NewUserController(opts ...UserControllerOption) *UserController {
	c := &UserController{
		Logger:      defLogger{},
		PhoneRegion: DefaultPhoneRegion,
		Routes: &UserControllerRoutes{
			List:   "/",
			Detail: "/:id",
			Me:     "/me",
			Avatar: "/me/avatar",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Sessions == nil {
		panic("Missing SessionManager in users controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in users controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.Auther.ErrorHandler
	}

	return c
}

func (u *UserController) Me(ctx router.Context) error {
	userID, err := u.callerID(ctx)
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	user, err := u.Sessions.GetUser(ctx.Context(), userID.String())
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"user": user})
}

// UpdateProfileRequest payload. Absent fields are left untouched.
type UpdateProfileRequest struct {
	Name      *string `form:"name" json:"name"`
	Phone     *string `form:"phone" json:"phone"`
	Society   *string `form:"society" json:"society"`
	Building  *string `form:"building" json:"building"`
	Apartment *string `form:"apartment" json:"apartment"`
}

// Validate will run validation rules
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 200)),
		validation.Field(&r.Phone, validation.By(validateOptionalPhone)),
		validation.Field(&r.Society, validation.Length(1, 200)),
		validation.Field(&r.Building, validation.Length(0, 100)),
		validation.Field(&r.Apartment, validation.Length(0, 100)),
	)
}

func validateOptionalPhone(value any) error {
	phone, ok := value.(*string)
	if !ok || phone == nil {
		return nil
	}
	return ValidatePhoneNumber(DefaultPhoneRegion)(*phone)
}

func (u *UserController) UpdateProfile(ctx router.Context) error {
	userID, err := u.callerID(ctx)
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	payload := new(UpdateProfileRequest)
	if err := ctx.Bind(payload); err != nil {
		return u.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return u.validationError(ctx, FormatValidationErrorToMap(err))
	}

	if payload.Phone != nil {
		normalized := NormalizePhone(*payload.Phone, u.PhoneRegion)
		payload.Phone = &normalized
	}

	user, err := u.Sessions.UpdateProfile(ctx.Context(), userID, UpdateProfilePayload{
		Name:      payload.Name,
		Phone:     payload.Phone,
		Society:   payload.Society,
		Building:  payload.Building,
		Apartment: payload.Apartment,
	})
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"user": user})
}

// UploadAvatarRequest payload. Data is base64 in the JSON body.
type UploadAvatarRequest struct {
	Name     string `form:"name" json:"name"`
	MimeType string `form:"mime_type" json:"mime_type"`
	Data     []byte `form:"data" json:"data"`
}

// Validate will run validation rules
func (r UploadAvatarRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.MimeType, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Data, validation.Required),
	)
}

func (u *UserController) UploadAvatar(ctx router.Context) error {
	userID, err := u.callerID(ctx)
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	payload := new(UploadAvatarRequest)
	if err := ctx.Bind(payload); err != nil {
		return u.validationError(ctx, map[string]string{"payload": "Failed to parse body"})
	}

	if err := payload.Validate(); err != nil {
		return u.validationError(ctx, FormatValidationErrorToMap(err))
	}

	user, err := u.Sessions.SetProfileImage(ctx.Context(), userID, ProfileImageUpload{
		OriginalName: payload.Name,
		MimeType:     payload.MimeType,
		Data:         payload.Data,
	})
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"user": user})
}

func (u *UserController) DownloadAvatar(ctx router.Context) error {
	userID, err := u.callerID(ctx)
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	data, meta, err := u.Sessions.GetProfileImage(ctx.Context(), userID)
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"image": meta,
		"data":  data,
	})
}

func (u *UserController) ListUsers(ctx router.Context) error {
	users, err := u.Sessions.ListUsers(ctx.Context(), 100)
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"users": users})
}

func (u *UserController) GetUser(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return u.validationError(ctx, map[string]string{"id": "Invalid user id"})
	}

	user, err := u.Sessions.GetUser(ctx.Context(), id.String())
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"user": user})
}

func (u *UserController) callerID(ctx router.Context) (uuid.UUID, error) {
	claims, ok := GetRouterClaims(ctx, "")
	if !ok {
		return uuid.Nil, ErrTokenMalformed
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, ErrTokenMalformed
	}

	return id, nil
}

func (u *UserController) validationError(ctx router.Context, fields map[string]string) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"message":   "Validation failed",
			"text_code": "VALIDATION_ERROR",
			"fields":    fields,
		},
	})
}
