package coord

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Alerts is the alert persistence surface.
type Alerts interface {
	repository.Repository[*Alert]

	ListForTarget(ctx context.Context, target string, limit int) ([]*Alert, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (*Alert, error)
}

type alerts struct {
	repository.Repository[*Alert]
	db *bun.DB
}

var _ Alerts = (*alerts)(nil)

func NewAlertsRepository(db *bun.DB) Alerts {
	return &alerts{
		Repository: repository.NewRepository[*Alert](db, repository.ModelHandlers[*Alert]{
			NewRecord: func() *Alert { return &Alert{} },
			GetID: func(a *Alert) uuid.UUID {
				if a == nil {
					return uuid.Nil
				}
				return a.ID
			},
			SetID: func(a *Alert, id uuid.UUID) {
				if a != nil {
					a.ID = id
				}
			},
		}),
		db: db,
	}
}

// ListForTarget returns alerts for a target society plus untargeted
// broadcasts, newest first.
func (r *alerts) ListForTarget(ctx context.Context, target string, limit int) ([]*Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []*Alert
	q := r.db.NewSelect().Model(&records).
		Order("created_at DESC").
		Limit(limit)

	if target != "" {
		q = q.Where("?TableAlias.target = ? OR ?TableAlias.target = ''", target)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

// MarkRead adds the user to the alert's read set. The write is a
// compare-and-swap on the stored read_by value so two concurrent
// acknowledgements by different users cannot lose one; the loser of the
// swap reloads and retries.
func (r *alerts) MarkRead(ctx context.Context, id, userID uuid.UUID) (*Alert, error) {
	for attempt := 0; attempt < 10; attempt++ {
		record, err := r.GetByID(ctx, id.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil, ErrAlertNotFound
			}
			return nil, err
		}

		if record.ReadByUser(userID) {
			return record, nil
		}

		readBy := append(append([]uuid.UUID{}, record.ReadBy...), userID)
		next, err := json.Marshal(readBy)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		q := r.db.NewUpdate().Model((*Alert)(nil)).
			Set("read_by = ?", string(next)).
			Set("updated_at = ?", now).
			Where("id = ?", id)

		if len(record.ReadBy) == 0 {
			q = q.Where("(read_by IS NULL OR read_by = '[]')")
		} else {
			prev, err := json.Marshal(record.ReadBy)
			if err != nil {
				return nil, err
			}
			q = q.Where("read_by = ?", string(prev))
		}

		res, err := q.Exec(ctx)
		if err != nil {
			return nil, err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 1 {
			record.ReadBy = readBy
			record.UpdatedAt = &now
			return record, nil
		}
	}

	return nil, errors.New("could not record alert acknowledgement")
}

// Invoices is the invoice persistence surface.
type Invoices interface {
	repository.Repository[*Invoice]

	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Invoice, error)
	ListAll(ctx context.Context, limit int) ([]*Invoice, error)
	// MarkPaidTx flips a Due or Overdue invoice to Paid and reports whether
	// this call won the flip.
	MarkPaidTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type invoices struct {
	repository.Repository[*Invoice]
	db *bun.DB
}

var _ Invoices = (*invoices)(nil)

func NewInvoicesRepository(db *bun.DB) Invoices {
	return &invoices{
		Repository: repository.NewRepository[*Invoice](db, repository.ModelHandlers[*Invoice]{
			NewRecord: func() *Invoice { return &Invoice{} },
			GetID: func(i *Invoice) uuid.UUID {
				if i == nil {
					return uuid.Nil
				}
				return i.ID
			},
			SetID: func(i *Invoice, id uuid.UUID) {
				if i != nil {
					i.ID = id
				}
			},
		}),
		db: db,
	}
}

func (r *invoices) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Invoice, error) {
	var records []*Invoice
	err := r.db.NewSelect().Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("issued_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListAll returns every invoice, newest first, for the admin view.
func (r *invoices) ListAll(ctx context.Context, limit int) ([]*Invoice, error) {
	if limit <= 0 {
		limit = 200
	}

	var records []*Invoice
	err := r.db.NewSelect().Model(&records).
		Order("issued_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *invoices) MarkPaidTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	now := time.Now()
	res, err := tx.NewUpdate().Model((*Invoice)(nil)).
		Set("status = ?", InvoiceStatusPaid).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status != ?", InvoiceStatusPaid).
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

// MarkOverdue sweeps unpaid invoices past their due date.
func (r *invoices) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewUpdate().Model((*Invoice)(nil)).
		Set("status = ?", InvoiceStatusOverdue).
		Set("updated_at = ?", now).
		Where("status = ?", InvoiceStatusDue).
		Where("due_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Payments is the payment persistence surface.
type Payments interface {
	repository.Repository[*Payment]

	ListForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)
}

type payments struct {
	repository.Repository[*Payment]
	db *bun.DB
}

var _ Payments = (*payments)(nil)

func NewPaymentsRepository(db *bun.DB) Payments {
	return &payments{
		Repository: repository.NewRepository[*Payment](db, repository.ModelHandlers[*Payment]{
			NewRecord: func() *Payment { return &Payment{} },
			GetID: func(p *Payment) uuid.UUID {
				if p == nil {
					return uuid.Nil
				}
				return p.ID
			},
			SetID: func(p *Payment, id uuid.UUID) {
				if p != nil {
					p.ID = id
				}
			},
		}),
		db: db,
	}
}

func (r *payments) ListForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	var records []*Payment
	err := r.db.NewSelect().Model(&records).
		Where("?TableAlias.invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Schedules is the pickup schedule persistence surface.
type Schedules interface {
	repository.Repository[*Schedule]

	ListUpcoming(ctx context.Context, fromISO string, limit int) ([]*Schedule, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
}

type schedules struct {
	repository.Repository[*Schedule]
	db *bun.DB
}

var _ Schedules = (*schedules)(nil)

func NewSchedulesRepository(db *bun.DB) Schedules {
	return &schedules{
		Repository: repository.NewRepository[*Schedule](db, repository.ModelHandlers[*Schedule]{
			NewRecord: func() *Schedule { return &Schedule{} },
			GetID: func(s *Schedule) uuid.UUID {
				if s == nil {
					return uuid.Nil
				}
				return s.ID
			},
			SetID: func(s *Schedule, id uuid.UUID) {
				if s != nil {
					s.ID = id
				}
			},
		}),
		db: db,
	}
}

func (r *schedules) ListUpcoming(ctx context.Context, fromISO string, limit int) ([]*Schedule, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []*Schedule
	err := r.db.NewSelect().Model(&records).
		Where("?TableAlias.date_iso >= ?", fromISO).
		Where("?TableAlias.status = ?", ScheduleStatusUpcoming).
		Order("date_iso ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteByID removes a schedule and reports whether a row was deleted.
func (r *schedules) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.NewDelete().Model((*Schedule)(nil)).
		Where("id = ?", id).
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

// Reports is the issue report persistence surface.
type Reports interface {
	repository.Repository[*Report]

	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Report, error)
	ListOpen(ctx context.Context, limit int) ([]*Report, error)
}

type reports struct {
	repository.Repository[*Report]
	db *bun.DB
}

var _ Reports = (*reports)(nil)

func NewReportsRepository(db *bun.DB) Reports {
	return &reports{
		Repository: repository.NewRepository[*Report](db, repository.ModelHandlers[*Report]{
			NewRecord: func() *Report { return &Report{} },
			GetID: func(rep *Report) uuid.UUID {
				if rep == nil {
					return uuid.Nil
				}
				return rep.ID
			},
			SetID: func(rep *Report, id uuid.UUID) {
				if rep != nil {
					rep.ID = id
				}
			},
		}),
		db: db,
	}
}

func (r *reports) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Report, error) {
	var records []*Report
	err := r.db.NewSelect().Model(&records).
		Where("?TableAlias.created_by = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *reports) ListOpen(ctx context.Context, limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = 100
	}

	var records []*Report
	err := r.db.NewSelect().Model(&records).
		Where("?TableAlias.status IN (?, ?)", ReportStatusOpen, ReportStatusInProgress).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// RepositoryManager exposes all coordination repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Alerts() Alerts
	Invoices() Invoices
	Payments() Payments
	Schedules() Schedules
	Reports() Reports
}

type mngr struct {
	db        *bun.DB
	alerts    Alerts
	invoices  Invoices
	payments  Payments
	schedules Schedules
	reports   Reports
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:        db,
		alerts:    NewAlertsRepository(db),
		invoices:  NewInvoicesRepository(db),
		payments:  NewPaymentsRepository(db),
		schedules: NewSchedulesRepository(db),
		reports:   NewReportsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.alerts == nil || m.invoices == nil || m.payments == nil || m.schedules == nil || m.reports == nil {
		return errors.New("coord repositories should be initialized")
	}
	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Alerts() Alerts       { return m.alerts }
func (m mngr) Invoices() Invoices   { return m.invoices }
func (m mngr) Payments() Payments   { return m.payments }
func (m mngr) Schedules() Schedules { return m.schedules }
func (m mngr) Reports() Reports     { return m.reports }
