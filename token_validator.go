package auth

import (
	"github.com/kachraalert/kachra-auth/middleware/jwtware"
)

// accessTokenValidator adapts the token codec to the middleware validator
// contract so jwtware never imports this package.
type accessTokenValidator struct {
	codec TokenCodec
}

// NewAccessTokenValidator wraps a TokenCodec for use by jwtware.
func NewAccessTokenValidator(codec TokenCodec) jwtware.TokenValidator {
	return &accessTokenValidator{codec: codec}
}

// Validate satisfies jwtware.TokenValidator.
func (v *accessTokenValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.codec.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
