package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResetTokenTTL bounds the lifetime of a password reset token.
const ResetTokenTTL = 30 * time.Minute

const resetTokenBytes = 32

// RegisterPayload carries a new account request.
type RegisterPayload struct {
	AccountType string
	Name        string
	Email       string
	Phone       string
	Password    string
	Society     string
	Building    string
	Apartment   string
	Remember    bool
}

// LoginPayload carries a credential check request.
type LoginPayload struct {
	Email    string
	Password string
	Remember bool
}

// AuthResult is the outcome of any operation that mints a token pair.
type AuthResult struct {
	User         *UserView
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
	SessionID    string
}

// ForgotPasswordResult reports a reset request. DevResetToken is populated
// only in the development environment; every other environment delivers the
// token out of band.
type ForgotPasswordResult struct {
	DevResetToken string
}

// SessionManager orchestrates registration, login, refresh rotation, logout
// and password reset on top of the repositories and the token codec.
type SessionManager struct {
	repo    RepositoryManager
	codec   TokenCodec
	config  Config
	logger  Logger
	sink    ActivitySink
	avatars AvatarStore
}

var _ SessionIssuer = (*SessionManager)(nil)

type SessionManagerOption func(*SessionManager)

func WithSessionLogger(logger Logger) SessionManagerOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithActivitySink(sink ActivitySink) SessionManagerOption {
	return func(m *SessionManager) {
		m.sink = sink
	}
}

func WithAvatarStore(store AvatarStore) SessionManagerOption {
	return func(m *SessionManager) {
		m.avatars = store
	}
}

func NewSessionManager(repo RepositoryManager, codec TokenCodec, config Config, opts ...SessionManagerOption) (*SessionManager, error) {
	if repo == nil {
		return nil, errors.New("session manager requires a repository manager", errors.CategoryInternal)
	}
	if codec == nil {
		return nil, errors.New("session manager requires a token codec", errors.CategoryInternal)
	}
	if config == nil {
		return nil, errors.New("session manager requires a config", errors.CategoryInternal)
	}

	m := &SessionManager{
		repo:   repo,
		codec:  codec,
		config: config,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.sink = normalizeActivitySink(m.sink)

	return m, nil
}

// Register creates an account and signs the first token pair in.
func (m *SessionManager) Register(ctx context.Context, payload RegisterPayload, meta RequestMeta) (*AuthResult, error) {
	email := NormalizeEmail(payload.Email)

	if _, err := m.repo.Users().GetByEmail(ctx, email); err == nil {
		return nil, ErrAccountExists
	} else if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return nil, err
	}

	accountType, ok := ParseAccountType(payload.AccountType)
	if !ok {
		accountType = AccountTypeResident
	}

	now := time.Now()
	user := &User{
		ID:              deterministicUserID(email),
		AccountType:     accountType,
		Name:            payload.Name,
		Email:           email,
		Phone:           payload.Phone,
		PasswordHash:    hash,
		Society:         payload.Society,
		Building:        payload.Building,
		Apartment:       payload.Apartment,
		TermsAcceptedAt: &now,
	}

	user, err = m.repo.Users().Register(ctx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAccountExists
		}
		return nil, err
	}

	result, err := m.issueTokens(ctx, user, payload.Remember, meta)
	if err != nil {
		return nil, err
	}

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventRegister,
		UserID:     user.ID.String(),
		SessionID:  result.SessionID,
		OccurredAt: time.Now(),
	})

	return result, nil
}

// Login checks credentials and mints a token pair. Unknown email and wrong
// password are indistinguishable to the caller.
func (m *SessionManager) Login(ctx context.Context, payload LoginPayload, meta RequestMeta) (*AuthResult, error) {
	user, err := m.repo.Users().GetByEmail(ctx, payload.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			m.recordLoginFailure(ctx, payload.Email, meta)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := ComparePasswordAndHash(payload.Password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			m.recordLoginFailure(ctx, payload.Email, meta)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	result, err := m.issueTokens(ctx, user, payload.Remember, meta)
	if err != nil {
		return nil, err
	}

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventLoginSuccess,
		UserID:     user.ID.String(),
		SessionID:  result.SessionID,
		Metadata:   map[string]any{"ip": meta.IP},
		OccurredAt: time.Now(),
	})

	return result, nil
}

// Refresh rotates a refresh session. The checks run in a fixed order:
// signature, store lookup, revocation, expiry, hash match, then the
// conditional revoke that settles concurrent rotations. Presenting a
// revoked token, or a token whose hash no longer matches the stored row,
// revokes every session the user has.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*AuthResult, error) {
	claims, err := m.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		if IsTokenExpiredError(err) && claims != nil {
			if _, revokeErr := m.repo.RefreshSessions().RevokeByJTI(ctx, claims.SessionID()); revokeErr != nil {
				m.logger.Warn("failed to revoke expired refresh session: %v", revokeErr)
			}
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidRefresh
	}

	session, err := m.repo.RefreshSessions().GetByJTI(ctx, claims.SessionID())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if session.RevokedAt != nil {
		return nil, m.handleReuse(ctx, session, meta)
	}

	now := time.Now()
	if !now.Before(session.ExpiresAt) {
		if _, err := m.repo.RefreshSessions().RevokeByJTI(ctx, session.JTI); err != nil {
			m.logger.Warn("failed to revoke expired refresh session: %v", err)
		}
		return nil, ErrTokenExpired
	}

	if !TimingSafeEqual(HashToken(refreshToken), session.TokenHash) {
		return nil, m.handleReuse(ctx, session, meta)
	}

	// Only one concurrent caller wins this update; everybody else is
	// presenting a token that has just been rotated away.
	won, err := m.repo.RefreshSessions().RevokeByJTI(ctx, session.JTI)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, m.handleReuse(ctx, session, meta)
	}

	user, err := m.repo.Users().GetByID(ctx, session.UserID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	// Rotation always issues the standard duration; remember-me only
	// applies at login.
	result, err := m.issueTokens(ctx, user, false, meta)
	if err != nil {
		return nil, err
	}

	if err := m.repo.RefreshSessions().TouchLastUsed(ctx, session.JTI); err != nil {
		m.logger.Debug("failed to touch refresh session: %v", err)
	}

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventRefreshSuccess,
		UserID:     user.ID.String(),
		SessionID:  result.SessionID,
		OccurredAt: time.Now(),
	})

	return result, nil
}

// Logout revokes the presented session. It never fails the caller: an
// unverifiable token means there is nothing to revoke.
func (m *SessionManager) Logout(ctx context.Context, refreshToken string) error {
	claims, err := m.codec.VerifyRefreshToken(refreshToken)
	if err != nil || claims == nil {
		return nil
	}

	if _, err := m.repo.RefreshSessions().RevokeByJTI(ctx, claims.SessionID()); err != nil {
		m.logger.Warn("failed to revoke refresh session on logout: %v", err)
		return nil
	}

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventLogout,
		UserID:     claims.UserID(),
		SessionID:  claims.SessionID(),
		OccurredAt: time.Now(),
	})

	return nil
}

// ForgotPassword issues a single-use reset token. An unknown email succeeds
// with an empty result so the endpoint never leaks which addresses exist.
func (m *SessionManager) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResult, error) {
	user, err := m.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return &ForgotPasswordResult{}, nil
		}
		return nil, err
	}

	raw, err := GenerateRandomToken(resetTokenBytes)
	if err != nil {
		return nil, err
	}

	record := &PasswordResetToken{
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: time.Now().Add(ResetTokenTTL),
	}

	if _, err := m.repo.PasswordResets().Create(ctx, record); err != nil {
		return nil, err
	}

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordResetRequest,
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	})

	result := &ForgotPasswordResult{}
	if m.config.GetEnvironment() == "development" {
		result.DevResetToken = raw
	}

	return result, nil
}

// ResetPassword consumes a reset token, replaces the password and revokes
// all of the user's refresh sessions in one transaction.
func (m *SessionManager) ResetPassword(ctx context.Context, token, newPassword string) error {
	record, err := m.repo.PasswordResets().FindValid(ctx, HashToken(token), time.Now())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvalidResetToken
		}
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		consumed, err := m.repo.PasswordResets().MarkUsedTx(ctx, tx, record.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrInvalidResetToken
		}

		if err := m.repo.Users().UpdatePasswordTx(ctx, tx, record.UserID, hash); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}

		if _, err := m.repo.RefreshSessions().RevokeAllForUserTx(ctx, tx, record.UserID); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordResetSuccess,
		UserID:     record.UserID.String(),
		OccurredAt: time.Now(),
	})

	return nil
}

// GetUser returns the sanitized view of a user.
func (m *SessionManager) GetUser(ctx context.Context, userID string) (*UserView, error) {
	user, err := m.repo.Users().GetByID(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return NewUserView(user), nil
}

func (m *SessionManager) issueTokens(ctx context.Context, user *User, remember bool, meta RequestMeta) (*AuthResult, error) {
	identity := NewIdentityFromUser(user)

	accessToken, err := m.codec.SignAccessToken(identity)
	if err != nil {
		return nil, err
	}

	ttl := m.config.GetRefreshTokenDuration()
	if remember {
		ttl = m.config.GetRefreshRememberDuration()
	}

	jti := uuid.New().String()
	refreshToken, jti, err := m.codec.SignRefreshToken(identity.ID, jti, ttl)
	if err != nil {
		return nil, err
	}

	session := &RefreshSession{
		UserID:    user.ID,
		JTI:       jti,
		TokenHash: HashToken(refreshToken),
		ExpiresAt: time.Now().Add(ttl),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}

	if _, err := m.repo.RefreshSessions().Create(ctx, session); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         NewUserView(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		RefreshTTL:   ttl,
		SessionID:    jti,
	}, nil
}

// handleReuse is the response to any evidence that a refresh token left the
// legitimate rotation chain: revoke every session the user holds.
func (m *SessionManager) handleReuse(ctx context.Context, session *RefreshSession, meta RequestMeta) error {
	if _, err := m.repo.RefreshSessions().RevokeAllForUser(ctx, session.UserID); err != nil {
		m.logger.Error("failed to revoke sessions after reuse detection: %v", err)
	}

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventRefreshReuse,
		UserID:    session.UserID.String(),
		SessionID: session.JTI,
		Metadata: map[string]any{
			"ip":         meta.IP,
			"user_agent": meta.UserAgent,
		},
		OccurredAt: time.Now(),
	})

	return ErrTokenReused
}

func (m *SessionManager) record(ctx context.Context, event ActivityEvent) {
	if err := m.sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink rejected event %s: %v", event.EventType, err)
	}
}

func (m *SessionManager) recordLoginFailure(ctx context.Context, email string, meta RequestMeta) {
	m.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Metadata: map[string]any{
			"email": NormalizeEmail(email),
			"ip":    meta.IP,
		},
		OccurredAt: time.Now(),
	})
}

// deterministicUserID derives the user id from the canonical email so a
// retried registration never mints a second id for the same account.
func deterministicUserID(email string) uuid.UUID {
	if id, err := hashid.NewUUID(email); err == nil {
		return id
	}
	return uuid.New()
}

// isUniqueViolation sniffs driver-specific unique constraint errors so a
// registration race still maps to the conflict error.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
