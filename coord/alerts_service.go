package coord

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// BroadcastAlertPayload carries a new alert.
type BroadcastAlertPayload struct {
	Title    string
	Body     string
	Severity string
	Target   string
}

// AlertService broadcasts alerts and tracks acknowledgements.
type AlertService struct {
	repo      RepositoryManager
	publisher Publisher
	logger    Logger
}

func NewAlertService(repo RepositoryManager, publisher Publisher, logger Logger) *AlertService {
	return &AlertService{
		repo:      repo,
		publisher: normalizePublisher(publisher),
		logger:    logger,
	}
}

// Broadcast persists the alert and pushes it to connected clients. The
// publish is best effort; the stored alert is the source of truth.
func (s *AlertService) Broadcast(ctx context.Context, createdBy uuid.UUID, payload BroadcastAlertPayload) (*Alert, error) {
	severity := payload.Severity
	if severity == "" {
		severity = SeverityInfo
	}
	if !validSeverity(severity) {
		return nil, ErrInvalidEnum
	}

	alert := &Alert{
		ID:        uuid.New(),
		Title:     payload.Title,
		Body:      payload.Body,
		Severity:  severity,
		Target:    payload.Target,
		CreatedBy: createdBy,
	}

	created, err := s.repo.Alerts().Create(ctx, alert)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, Event{
		Type:       EventAlertCreated,
		Target:     created.Target,
		Payload:    created,
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("alert publish failed: %v", err)
	}

	return created, nil
}

// List returns alerts visible to a target society.
func (s *AlertService) List(ctx context.Context, target string, limit int) ([]*Alert, error) {
	return s.repo.Alerts().ListForTarget(ctx, target, limit)
}

// Get returns one alert.
func (s *AlertService) Get(ctx context.Context, id uuid.UUID) (*Alert, error) {
	alert, err := s.repo.Alerts().GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return alert, nil
}

// MarkRead records that a user acknowledged an alert.
func (s *AlertService) MarkRead(ctx context.Context, id, userID uuid.UUID) (*Alert, error) {
	return s.repo.Alerts().MarkRead(ctx, id, userID)
}

// MarkAllRead acknowledges every alert visible to the target on the user's
// behalf and returns how many were newly acknowledged.
func (s *AlertService) MarkAllRead(ctx context.Context, userID uuid.UUID, target string) (int, error) {
	visible, err := s.repo.Alerts().ListForTarget(ctx, target, 500)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, alert := range visible {
		if alert.ReadByUser(userID) {
			continue
		}
		if _, err := s.repo.Alerts().MarkRead(ctx, alert.ID, userID); err != nil {
			return marked, err
		}
		marked++
	}

	return marked, nil
}
