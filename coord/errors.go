package coord

import "github.com/goliatone/go-errors"

const (
	TextCodeAlertNotFound      = "coord_alert_not_found"
	TextCodeInvoiceNotFound    = "coord_invoice_not_found"
	TextCodeInvoicePaid        = "coord_invoice_already_paid"
	TextCodePaymentMismatch    = "coord_payment_amount_mismatch"
	TextCodeScheduleNotFound   = "coord_schedule_not_found"
	TextCodeReportNotFound     = "coord_report_not_found"
	TextCodeNotOwner           = "coord_not_owner"
	TextCodeInvalidEnum        = "coord_invalid_enum_value"
	TextCodeAttachmentTooLarge = "coord_attachment_too_large"
)

// ErrAlertNotFound is returned when an alert id does not resolve.
var ErrAlertNotFound = errors.New("alert not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAlertNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvoiceNotFound is returned when an invoice id does not resolve.
var ErrInvoiceNotFound = errors.New("invoice not found", errors.CategoryNotFound).
	WithTextCode(TextCodeInvoiceNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvoiceAlreadyPaid is returned when paying an invoice that is settled.
var ErrInvoiceAlreadyPaid = errors.New("invoice already paid", errors.CategoryConflict).
	WithTextCode(TextCodeInvoicePaid).
	WithCode(errors.CodeConflict)

// ErrPaymentMismatch is returned when a payment does not cover the invoice amount.
var ErrPaymentMismatch = errors.New("payment amount does not match invoice", errors.CategoryValidation).
	WithTextCode(TextCodePaymentMismatch).
	WithCode(errors.CodeBadRequest)

// ErrScheduleNotFound is returned when a schedule id does not resolve.
var ErrScheduleNotFound = errors.New("schedule not found", errors.CategoryNotFound).
	WithTextCode(TextCodeScheduleNotFound).
	WithCode(errors.CodeNotFound)

// ErrReportNotFound is returned when a report id does not resolve.
var ErrReportNotFound = errors.New("report not found", errors.CategoryNotFound).
	WithTextCode(TextCodeReportNotFound).
	WithCode(errors.CodeNotFound)

// ErrNotOwner is returned when a caller touches a record they do not own.
var ErrNotOwner = errors.New("record belongs to another account", errors.CategoryAuthz).
	WithTextCode(TextCodeNotOwner).
	WithCode(errors.CodeForbidden)

// ErrInvalidEnum is returned when a payload carries an unknown enum value.
var ErrInvalidEnum = errors.New("invalid enum value", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidEnum).
	WithCode(errors.CodeBadRequest)

// ErrAttachmentTooLarge is returned when an attachment exceeds the size cap.
var ErrAttachmentTooLarge = errors.New("attachment too large", errors.CategoryValidation).
	WithTextCode(TextCodeAttachmentTooLarge).
	WithCode(errors.CodeBadRequest)
