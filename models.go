package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountType is the user's account class
type AccountType = string

const (
	// AccountTypeResident is a resident account (files reports, pays invoices)
	AccountTypeResident AccountType = "resident"
	// AccountTypeAdminDriver is a combined admin/driver account (manages
	// schedules, broadcasts alerts)
	AccountTypeAdminDriver AccountType = "admin_driver"
)

// ParseAccountType validates a raw account type string.
func ParseAccountType(raw string) (AccountType, bool) {
	switch raw {
	case AccountTypeResident, AccountTypeAdminDriver:
		return raw, true
	default:
		return "", false
	}
}

// ProfileImage is a stored-bytes reference for a user's profile picture.
type ProfileImage struct {
	Filename     string     `json:"filename,omitempty"`
	OriginalName string     `json:"original_name,omitempty"`
	MimeType     string     `json:"mime_type,omitempty"`
	Size         int64      `json:"size,omitempty"`
	UploadedAt   *time.Time `json:"uploaded_at,omitempty"`
}

// User is the identity record
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountType     AccountType   `bun:"account_type,notnull" json:"account_type,omitempty"`
	Name            string        `bun:"name,notnull" json:"name,omitempty"`
	Email           string        `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone           string        `bun:"phone,notnull" json:"phone,omitempty"`
	PasswordHash    string        `bun:"password_hash,notnull" json:"-"`
	Society         string        `bun:"society,notnull" json:"society,omitempty"`
	Building        string        `bun:"building,notnull" json:"building,omitempty"`
	Apartment       string        `bun:"apartment,notnull" json:"apartment,omitempty"`
	ProfileImage    *ProfileImage `bun:"profile_image,type:jsonb,nullzero" json:"profile_image,omitempty"`
	TermsAcceptedAt *time.Time    `bun:"terms_accepted_at,nullzero" json:"terms_accepted_at,omitempty"`
	CreatedAt       *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// RefreshSession is one row per issued refresh token. Rows are never
// physically deleted; revocation and rotation stamp revoked_at so the table
// doubles as an audit trail.
type RefreshSession struct {
	bun.BaseModel `bun:"table:refresh_sessions,alias:rs"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	JTI           string     `bun:"jti,notnull,unique" json:"jti,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	RevokedAt     *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	LastUsedAt    *time.Time `bun:"last_used_at,nullzero" json:"last_used_at,omitempty"`
	IP            string     `bun:"ip,nullzero" json:"ip,omitempty"`
	UserAgent     string     `bun:"user_agent,nullzero" json:"user_agent,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Active reports whether the session can still be presented.
func (s *RefreshSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// PasswordResetToken is a one-time reset credential. Only the hash of the
// raw token is stored.
type PasswordResetToken struct {
	bun.BaseModel `bun:"table:password_reset_tokens,alias:prt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	UsedAt        *time.Time `bun:"used_at,nullzero" json:"used_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// UserView is the sanitized projection returned to callers. It must never
// carry the password hash.
type UserView struct {
	ID          string `json:"id"`
	AccountType string `json:"account_type"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Society     string `json:"society"`
	Building    string `json:"building"`
	Apartment   string `json:"apartment"`
}

// NewUserView builds the sanitized projection for a user record.
func NewUserView(user *User) *UserView {
	if user == nil {
		return nil
	}
	return &UserView{
		ID:          user.ID.String(),
		AccountType: user.AccountType,
		Name:        user.Name,
		Email:       user.Email,
		Phone:       user.Phone,
		Society:     user.Society,
		Building:    user.Building,
		Apartment:   user.Apartment,
	}
}

// NormalizeEmail lowercases and trims an email so lookups and the unique
// constraint agree on a single canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
