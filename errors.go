package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeAccountExists     = "ACCOUNT_EXISTS"
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeInvalidRefresh    = "INVALID_REFRESH"
	TextCodeTokenReused       = "TOKEN_REUSED"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeInvalidResetToken = "INVALID_RESET_TOKEN"
	TextCodeUserNotFound      = "USER_NOT_FOUND"
	TextCodeUnauthorized      = "UNAUTHORIZED"
	TextCodeImageTooLarge     = "PROFILE_IMAGE_TOO_LARGE"
)

// ErrAccountExists is returned when a registration collides with an email
// that is already taken.
var ErrAccountExists = errors.New("account already exists", errors.CategoryConflict).
	WithTextCode(TextCodeAccountExists).
	WithCode(errors.CodeConflict)

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password so callers cannot tell which part was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidRefresh is returned when a refresh token fails verification or
// has no matching session row.
var ErrInvalidRefresh = errors.New("invalid refresh token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidRefresh).
	WithCode(errors.CodeUnauthorized)

// ErrTokenReused is returned when a rotated-out or revoked refresh token is
// presented again. Surfacing it always follows a revoke-all for the user.
var ErrTokenReused = errors.New("refresh token reuse detected", errors.CategoryAuth).
	WithTextCode(TextCodeTokenReused).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a token is structurally valid but past
// its expiry.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token cannot be parsed or its
// signature does not verify.
var ErrTokenMalformed = errors.New("invalid or malformed token", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidResetToken is returned when a password reset token is unknown,
// already used, or expired.
var ErrInvalidResetToken = errors.New("invalid or expired reset token", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidResetToken).
	WithCode(errors.CodeBadRequest)

// ErrUserNotFound is returned when an operation references a user id that no
// longer resolves.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrProfileImageTooLarge is returned when an uploaded profile image
// exceeds the size cap.
var ErrProfileImageTooLarge = errors.New("profile image too large", errors.CategoryValidation).
	WithTextCode(TextCodeImageTooLarge).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for unparseable or badly signed tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeUnauthorized {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsReuseError reports whether the error is the reuse-detection failure.
func IsReuseError(err error) bool {
	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenReused
}
