package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshSessions is the persistence surface for refresh sessions. All state
// transitions are conditional updates so concurrent rotations resolve in the
// database rather than in application locks.
type RefreshSessions interface {
	Create(ctx context.Context, session *RefreshSession) (*RefreshSession, error)
	CreateTx(ctx context.Context, tx bun.IDB, session *RefreshSession) (*RefreshSession, error)
	GetByJTI(ctx context.Context, jti string) (*RefreshSession, error)
	GetByJTITx(ctx context.Context, tx bun.IDB, jti string) (*RefreshSession, error)

	// RevokeByJTI stamps revoked_at on a single still-active session and
	// reports whether this call was the one that revoked it. A false return
	// with a nil error means someone else got there first.
	RevokeByJTI(ctx context.Context, jti string) (bool, error)
	RevokeByJTITx(ctx context.Context, tx bun.IDB, jti string) (bool, error)

	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	RevokeAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error)

	TouchLastUsed(ctx context.Context, jti string) error
}

type refreshSessions struct {
	db *bun.DB
}

var _ RefreshSessions = (*refreshSessions)(nil)

func NewRefreshSessionsRepository(db *bun.DB) RefreshSessions {
	return &refreshSessions{db: db}
}

func (r *refreshSessions) Create(ctx context.Context, session *RefreshSession) (*RefreshSession, error) {
	return r.CreateTx(ctx, r.db, session)
}

func (r *refreshSessions) CreateTx(ctx context.Context, tx bun.IDB, session *RefreshSession) (*RefreshSession, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	if _, err := tx.NewInsert().Model(session).Exec(ctx); err != nil {
		return nil, err
	}

	return session, nil
}

func (r *refreshSessions) GetByJTI(ctx context.Context, jti string) (*RefreshSession, error) {
	return r.GetByJTITx(ctx, r.db, jti)
}

func (r *refreshSessions) GetByJTITx(ctx context.Context, tx bun.IDB, jti string) (*RefreshSession, error) {
	record := &RefreshSession{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.jti = ?", jti).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"jti": jti,
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *refreshSessions) RevokeByJTI(ctx context.Context, jti string) (bool, error) {
	return r.RevokeByJTITx(ctx, r.db, jti)
}

func (r *refreshSessions) RevokeByJTITx(ctx context.Context, tx bun.IDB, jti string) (bool, error) {
	now := time.Now()
	res, err := tx.NewUpdate().Model((*RefreshSession)(nil)).
		Set("revoked_at = ?", now).
		Where("jti = ?", jti).
		Where("revoked_at IS NULL").
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

func (r *refreshSessions) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.RevokeAllForUserTx(ctx, r.db, userID)
}

func (r *refreshSessions) RevokeAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	now := time.Now()
	res, err := tx.NewUpdate().Model((*RefreshSession)(nil)).
		Set("revoked_at = ?", now).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// TouchLastUsed is best effort bookkeeping; callers ignore the error.
func (r *refreshSessions) TouchLastUsed(ctx context.Context, jti string) error {
	now := time.Now()
	_, err := r.db.NewUpdate().Model((*RefreshSession)(nil)).
		Set("last_used_at = ?", now).
		Where("jti = ?", jti).
		Exec(ctx)
	return err
}
