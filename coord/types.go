package coord

import (
	"context"
	"time"
)

// Logger matches the auth package logger so both share adapters.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Event is a realtime notification emitted by the services.
type Event struct {
	Type       string         `json:"type"`
	Target     string         `json:"target,omitempty"`
	Payload    any            `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Publisher delivers events to connected clients. Implementations are
// injected; services never reach for a process-global broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, event Event) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

func normalizePublisher(p Publisher) Publisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// BlobStore persists report attachments.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Event types emitted by coordination services.
const (
	EventAlertCreated    = "alert.created"
	EventInvoicePaid     = "invoice.paid"
	EventScheduleCreated = "schedule.created"
	EventScheduleUpdated = "schedule.updated"
	EventScheduleDeleted = "schedule.deleted"
	EventReportCreated   = "report.created"
	EventReportUpdated   = "report.updated"
)
