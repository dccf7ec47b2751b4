package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenCodec interface. Access and refresh
// tokens are signed with independent secrets so a token of one kind can
// never verify as the other.
type TokenServiceImpl struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	issuer     string
	audience   string
	logger     Logger
}

// NewTokenService creates a new TokenCodec instance.
func NewTokenService(cfg Config, logger Logger) (TokenCodec, error) {
	if logger == nil {
		logger = defLogger{}
	}

	accessKey := []byte(cfg.GetAccessSigningKey())
	refreshKey := []byte(cfg.GetRefreshSigningKey())

	if len(accessKey) == 0 || len(refreshKey) == 0 {
		return nil, errors.New("token signing keys must not be empty", errors.CategoryInternal)
	}

	if string(accessKey) == string(refreshKey) {
		return nil, errors.New("access and refresh signing keys must differ", errors.CategoryInternal)
	}

	return &TokenServiceImpl{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  cfg.GetAccessTokenTTL(),
		issuer:     cfg.GetIssuer(),
		audience:   cfg.GetAudience(),
		logger:     logger,
	}, nil
}

// SignAccessToken mints a short-lived access token for the identity.
func (ts *TokenServiceImpl) SignAccessToken(identity Identity) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: newRegisteredClaims(identity.ID, ts.issuer, ts.audience, now, ts.accessTTL),
		Email:            identity.Email,
		AccountType:      identity.AccountType,
	}

	return ts.sign(claims, ts.accessKey)
}

// SignRefreshToken mints a refresh token bound to a session jti. The caller
// supplies the jti so the store row and the token always agree; an empty jti
// gets a fresh uuid.
func (ts *TokenServiceImpl) SignRefreshToken(userID, sessionID string, ttl time.Duration) (string, string, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	now := time.Now()
	registered := newRegisteredClaims(userID, ts.issuer, ts.audience, now, ttl)
	registered.ID = sessionID

	signed, err := ts.sign(&RefreshClaims{RegisteredClaims: registered}, ts.refreshKey)
	if err != nil {
		return "", "", err
	}

	return signed, sessionID, nil
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// VerifyAccessToken parses and validates an access token string.
func (ts *TokenServiceImpl) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ts.verify(tokenString, claims, ts.accessKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken parses and validates a refresh token string. Signature
// and expiry are checked here; session store state is the caller's problem.
// An expired token with a valid signature returns the parsed claims together
// with ErrTokenExpired so the caller can still revoke the session it names.
func (ts *TokenServiceImpl) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ts.verify(tokenString, claims, ts.refreshKey); err != nil {
		if IsTokenExpiredError(err) && claims.ID != "" {
			return claims, err
		}
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New(ErrInvalidRefresh.Message, ErrInvalidRefresh.Category).
			WithTextCode(ErrInvalidRefresh.TextCode).
			WithCode(ErrInvalidRefresh.Code)
	}
	return claims, nil
}

func (ts *TokenServiceImpl) verify(tokenString string, claims jwt.Claims, key []byte) error {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if ts.audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		ts.logger.Error("TokenService verify could not validate claims")
		return ErrTokenMalformed
	}

	return nil
}
