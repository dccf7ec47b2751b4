package coord

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IssueInvoicePayload creates a billing record for one resident and period.
type IssueInvoicePayload struct {
	UserID    uuid.UUID
	Period    string
	AmountNPR int64
	IssuedAt  time.Time
	DueAt     time.Time
}

// PayInvoicePayload settles an invoice.
type PayInvoicePayload struct {
	InvoiceID uuid.UUID
	UserID    uuid.UUID
	AmountNPR int64
	Provider  string
	Reference string
}

// BillingService issues invoices and records payments.
type BillingService struct {
	repo      RepositoryManager
	publisher Publisher
	logger    Logger
}

func NewBillingService(repo RepositoryManager, publisher Publisher, logger Logger) *BillingService {
	return &BillingService{
		repo:      repo,
		publisher: normalizePublisher(publisher),
		logger:    logger,
	}
}

// Issue creates a Due invoice.
func (s *BillingService) Issue(ctx context.Context, payload IssueInvoicePayload) (*Invoice, error) {
	issuedAt := payload.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	invoice := &Invoice{
		ID:        uuid.New(),
		UserID:    payload.UserID,
		Period:    payload.Period,
		AmountNPR: payload.AmountNPR,
		Status:    InvoiceStatusDue,
		IssuedAt:  issuedAt,
		DueAt:     payload.DueAt,
	}

	return s.repo.Invoices().Create(ctx, invoice)
}

// ListForUser returns a resident's invoices, newest first.
func (s *BillingService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Invoice, error) {
	return s.repo.Invoices().ListForUser(ctx, userID)
}

// ListAll returns every invoice for the admin billing view.
func (s *BillingService) ListAll(ctx context.Context, limit int) ([]*Invoice, error) {
	return s.repo.Invoices().ListAll(ctx, limit)
}

// Pay records a payment and settles the invoice in one transaction. The
// conditional status flip means two concurrent payments cannot both settle
// the same invoice.
func (s *BillingService) Pay(ctx context.Context, payload PayInvoicePayload) (*Payment, error) {
	if !validProvider(payload.Provider) {
		return nil, ErrInvalidEnum
	}

	invoice, err := s.repo.Invoices().GetByID(ctx, payload.InvoiceID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	if invoice.UserID != payload.UserID {
		return nil, ErrNotOwner
	}

	if invoice.Status == InvoiceStatusPaid {
		return nil, ErrInvoiceAlreadyPaid
	}

	if payload.AmountNPR != invoice.AmountNPR {
		return nil, ErrPaymentMismatch
	}

	payment := &Payment{
		ID:        uuid.New(),
		InvoiceID: invoice.ID,
		UserID:    payload.UserID,
		AmountNPR: payload.AmountNPR,
		Provider:  payload.Provider,
		Reference: payload.Reference,
		Status:    "completed",
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		settled, err := s.repo.Invoices().MarkPaidTx(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		if !settled {
			return ErrInvoiceAlreadyPaid
		}

		_, err = s.repo.Payments().CreateTx(ctx, tx, payment)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, Event{
		Type:       EventInvoicePaid,
		Payload:    payment,
		OccurredAt: time.Now(),
		Metadata:   map[string]any{"invoice_id": invoice.ID.String()},
	}); err != nil {
		s.logger.Warn("payment publish failed: %v", err)
	}

	return payment, nil
}

// SweepOverdue flips Due invoices past their due date to Overdue.
func (s *BillingService) SweepOverdue(ctx context.Context) (int64, error) {
	return s.repo.Invoices().MarkOverdue(ctx, time.Now())
}

// PaymentsForInvoice lists payments recorded against an invoice.
func (s *BillingService) PaymentsForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	return s.repo.Payments().ListForInvoice(ctx, invoiceID)
}
