package coord

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Alert severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityUrgent  = "urgent"
)

// Invoice statuses.
const (
	InvoiceStatusPaid    = "Paid"
	InvoiceStatusDue     = "Due"
	InvoiceStatusOverdue = "Overdue"
)

// Payment providers.
const (
	ProviderCash   = "cash"
	ProviderKhalti = "khalti"
	ProviderEsewa  = "esewa"
	ProviderTest   = "test"
)

// Schedule statuses.
const (
	ScheduleStatusUpcoming  = "Upcoming"
	ScheduleStatusCompleted = "Completed"
	ScheduleStatusMissed    = "Missed"
)

// Waste kinds for pickup schedules.
const (
	WasteOrganic    = "organic"
	WasteRecyclable = "recyclable"
	WasteGeneral    = "general"
	WasteHazardous  = "hazardous"
)

// Report statuses.
const (
	ReportStatusOpen       = "open"
	ReportStatusInProgress = "in_progress"
	ReportStatusResolved   = "resolved"
	ReportStatusRejected   = "rejected"
)

func validSeverity(s string) bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityUrgent
}

func validProvider(p string) bool {
	return p == ProviderCash || p == ProviderKhalti || p == ProviderEsewa || p == ProviderTest
}

func validWaste(w string) bool {
	return w == WasteOrganic || w == WasteRecyclable || w == WasteGeneral || w == WasteHazardous
}

func validScheduleStatus(s string) bool {
	return s == ScheduleStatusUpcoming || s == ScheduleStatusCompleted || s == ScheduleStatusMissed
}

func validReportStatus(s string) bool {
	return s == ReportStatusOpen || s == ReportStatusInProgress || s == ReportStatusResolved || s == ReportStatusRejected
}

// Alert is a broadcast notice from an admin/driver to residents.
type Alert struct {
	bun.BaseModel `bun:"table:alerts,alias:alr"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string      `bun:"title,notnull" json:"title"`
	Body          string      `bun:"body,notnull" json:"body"`
	Severity      string      `bun:"severity,notnull" json:"severity"`
	Target        string      `bun:"target,notnull" json:"target,omitempty"`
	CreatedBy     uuid.UUID   `bun:"created_by,notnull,type:uuid" json:"created_by"`
	ReadBy        []uuid.UUID `bun:"read_by,type:jsonb,nullzero" json:"read_by,omitempty"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ReadByUser reports whether a user already acknowledged the alert.
func (a *Alert) ReadByUser(userID uuid.UUID) bool {
	for _, id := range a.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Invoice bills one resident for one period. Amounts are paisa to avoid
// floating point money.
type Invoice struct {
	bun.BaseModel `bun:"table:invoices,alias:inv"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id"`
	Period        string     `bun:"period,notnull" json:"period"`
	AmountNPR     int64      `bun:"amount_npr,notnull" json:"amount_npr"`
	Status        string     `bun:"status,notnull" json:"status"`
	IssuedAt      time.Time  `bun:"issued_at,notnull" json:"issued_at"`
	DueAt         time.Time  `bun:"due_at,notnull" json:"due_at"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Payment settles an invoice.
type Payment struct {
	bun.BaseModel `bun:"table:payments,alias:pay"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	InvoiceID     uuid.UUID  `bun:"invoice_id,notnull,type:uuid" json:"invoice_id"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id"`
	AmountNPR     int64      `bun:"amount_npr,notnull" json:"amount_npr"`
	Provider      string     `bun:"provider,notnull" json:"provider"`
	Reference     string     `bun:"reference,nullzero" json:"reference,omitempty"`
	Status        string     `bun:"status,notnull" json:"status"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Schedule is a planned waste pickup.
type Schedule struct {
	bun.BaseModel `bun:"table:schedules,alias:sch"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	DateISO       string     `bun:"date_iso,notnull" json:"date_iso"`
	TimeLabel     string     `bun:"time_label,notnull" json:"time_label"`
	Waste         string     `bun:"waste,notnull" json:"waste"`
	Status        string     `bun:"status,notnull" json:"status"`
	CreatedBy     uuid.UUID  `bun:"created_by,notnull,type:uuid" json:"created_by"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Attachment references a stored file on a report.
type Attachment struct {
	Key          string `json:"key"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
}

// Report is a resident-filed issue (missed pickup, overflowing bin, ...).
type Report struct {
	bun.BaseModel `bun:"table:reports,alias:rep"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string       `bun:"title,notnull" json:"title"`
	Category      string       `bun:"category,notnull" json:"category"`
	Priority      string       `bun:"priority,notnull" json:"priority"`
	Status        string       `bun:"status,notnull" json:"status"`
	Description   string       `bun:"description,nullzero" json:"description,omitempty"`
	Attachments   []Attachment `bun:"attachments,type:jsonb,nullzero" json:"attachments,omitempty"`
	CreatedBy     uuid.UUID    `bun:"created_by,notnull,type:uuid" json:"created_by"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
