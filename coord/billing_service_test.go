package coord_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kachraalert/kachra-auth/coord"
)

func issueTestInvoice(t *testing.T, env *testEnv, userID uuid.UUID) *coord.Invoice {
	t.Helper()
	invoice, err := env.billing.Issue(context.Background(), coord.IssueInvoicePayload{
		UserID:    userID,
		Period:    "2026-08",
		AmountNPR: 150000,
		DueAt:     time.Now().Add(14 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return invoice
}

func TestIssueInvoice(t *testing.T) {
	env := newTestEnv(t)
	resident := uuid.New()

	invoice := issueTestInvoice(t, env, resident)
	assert.Equal(t, coord.InvoiceStatusDue, invoice.Status)
	assert.Equal(t, int64(150000), invoice.AmountNPR)
	assert.False(t, invoice.IssuedAt.IsZero())

	listed, err := env.billing.ListForUser(context.Background(), resident)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, invoice.ID, listed[0].ID)

	// Other residents see nothing.
	other, err := env.billing.ListForUser(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestListAllInvoices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	older, err := env.billing.Issue(ctx, coord.IssueInvoicePayload{
		UserID:    uuid.New(),
		Period:    "2026-07",
		AmountNPR: 150000,
		IssuedAt:  time.Now().Add(-30 * 24 * time.Hour),
		DueAt:     time.Now().Add(-16 * 24 * time.Hour),
	})
	require.NoError(t, err)

	newer := issueTestInvoice(t, env, uuid.New())

	all, err := env.billing.ListAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)

	capped, err := env.billing.ListAll(ctx, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, newer.ID, capped[0].ID)
}

func TestPayInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resident := uuid.New()
	invoice := issueTestInvoice(t, env, resident)

	events, cancel := env.hub.Subscribe("", 4)
	defer cancel()

	payment, err := env.billing.Pay(ctx, coord.PayInvoicePayload{
		InvoiceID: invoice.ID,
		UserID:    resident,
		AmountNPR: invoice.AmountNPR,
		Provider:  coord.ProviderKhalti,
		Reference: "KH-1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", payment.Status)

	event := recvEvent(t, events)
	assert.Equal(t, coord.EventInvoicePaid, event.Type)
	assert.Equal(t, invoice.ID.String(), event.Metadata["invoice_id"])

	updated, err := env.repo.Invoices().GetByID(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, coord.InvoiceStatusPaid, updated.Status)

	payments, err := env.billing.PaymentsForInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, coord.ProviderKhalti, payments[0].Provider)
}

func TestPayInvoiceRejectsDoublePay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resident := uuid.New()
	invoice := issueTestInvoice(t, env, resident)

	payload := coord.PayInvoicePayload{
		InvoiceID: invoice.ID,
		UserID:    resident,
		AmountNPR: invoice.AmountNPR,
		Provider:  coord.ProviderCash,
	}

	_, err := env.billing.Pay(ctx, payload)
	require.NoError(t, err)

	_, err = env.billing.Pay(ctx, payload)
	assert.ErrorIs(t, err, coord.ErrInvoiceAlreadyPaid)

	payments, err := env.billing.PaymentsForInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestPayInvoiceValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resident := uuid.New()
	invoice := issueTestInvoice(t, env, resident)

	_, err := env.billing.Pay(ctx, coord.PayInvoicePayload{
		InvoiceID: invoice.ID,
		UserID:    uuid.New(),
		AmountNPR: invoice.AmountNPR,
		Provider:  coord.ProviderCash,
	})
	assert.ErrorIs(t, err, coord.ErrNotOwner)

	_, err = env.billing.Pay(ctx, coord.PayInvoicePayload{
		InvoiceID: invoice.ID,
		UserID:    resident,
		AmountNPR: invoice.AmountNPR - 1,
		Provider:  coord.ProviderCash,
	})
	assert.ErrorIs(t, err, coord.ErrPaymentMismatch)

	_, err = env.billing.Pay(ctx, coord.PayInvoicePayload{
		InvoiceID: invoice.ID,
		UserID:    resident,
		AmountNPR: invoice.AmountNPR,
		Provider:  "barter",
	})
	assert.ErrorIs(t, err, coord.ErrInvalidEnum)

	_, err = env.billing.Pay(ctx, coord.PayInvoicePayload{
		InvoiceID: uuid.New(),
		UserID:    resident,
		AmountNPR: invoice.AmountNPR,
		Provider:  coord.ProviderCash,
	})
	assert.ErrorIs(t, err, coord.ErrInvoiceNotFound)
}

func TestSweepOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resident := uuid.New()

	pastDue, err := env.billing.Issue(ctx, coord.IssueInvoicePayload{
		UserID:    resident,
		Period:    "2026-07",
		AmountNPR: 150000,
		IssuedAt:  time.Now().Add(-40 * 24 * time.Hour),
		DueAt:     time.Now().Add(-10 * 24 * time.Hour),
	})
	require.NoError(t, err)

	current := issueTestInvoice(t, env, resident)

	swept, err := env.billing.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	updated, err := env.repo.Invoices().GetByID(ctx, pastDue.ID.String())
	require.NoError(t, err)
	assert.Equal(t, coord.InvoiceStatusOverdue, updated.Status)

	untouched, err := env.repo.Invoices().GetByID(ctx, current.ID.String())
	require.NoError(t, err)
	assert.Equal(t, coord.InvoiceStatusDue, untouched.Status)

	// Overdue invoices can still be paid.
	_, err = env.billing.Pay(ctx, coord.PayInvoicePayload{
		InvoiceID: pastDue.ID,
		UserID:    resident,
		AmountNPR: pastDue.AmountNPR,
		Provider:  coord.ProviderEsewa,
	})
	assert.NoError(t, err)
}
