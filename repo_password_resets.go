package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PasswordResets stores single-use reset credentials.
type PasswordResets interface {
	Create(ctx context.Context, token *PasswordResetToken) (*PasswordResetToken, error)
	CreateTx(ctx context.Context, tx bun.IDB, token *PasswordResetToken) (*PasswordResetToken, error)

	// FindValid returns the unused, unexpired record matching the token
	// hash. Anything else is a record-not-found.
	FindValid(ctx context.Context, tokenHash string, now time.Time) (*PasswordResetToken, error)
	FindValidTx(ctx context.Context, tx bun.IDB, tokenHash string, now time.Time) (*PasswordResetToken, error)

	// MarkUsed stamps used_at conditionally and reports whether this call
	// consumed the token.
	MarkUsed(ctx context.Context, id uuid.UUID) (bool, error)
	MarkUsedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)
}

type passwordResets struct {
	db *bun.DB
}

var _ PasswordResets = (*passwordResets)(nil)

func NewPasswordResetsRepository(db *bun.DB) PasswordResets {
	return &passwordResets{db: db}
}

func (r *passwordResets) Create(ctx context.Context, token *PasswordResetToken) (*PasswordResetToken, error) {
	return r.CreateTx(ctx, r.db, token)
}

func (r *passwordResets) CreateTx(ctx context.Context, tx bun.IDB, token *PasswordResetToken) (*PasswordResetToken, error) {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	if _, err := tx.NewInsert().Model(token).Exec(ctx); err != nil {
		return nil, err
	}

	return token, nil
}

func (r *passwordResets) FindValid(ctx context.Context, tokenHash string, now time.Time) (*PasswordResetToken, error) {
	return r.FindValidTx(ctx, r.db, tokenHash, now)
}

func (r *passwordResets) FindValidTx(ctx context.Context, tx bun.IDB, tokenHash string, now time.Time) (*PasswordResetToken, error) {
	record := &PasswordResetToken{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.token_hash = ?", tokenHash).
		Where("?TableAlias.used_at IS NULL").
		Where("?TableAlias.expires_at > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (r *passwordResets) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.MarkUsedTx(ctx, r.db, id)
}

func (r *passwordResets) MarkUsedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	now := time.Now()
	res, err := tx.NewUpdate().Model((*PasswordResetToken)(nil)).
		Set("used_at = ?", now).
		Where("id = ?", id).
		Where("used_at IS NULL").
		Exec(ctx)

	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}
