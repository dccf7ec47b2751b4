package coord

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// CreateSchedulePayload plans a pickup.
type CreateSchedulePayload struct {
	DateISO   string
	TimeLabel string
	Waste     string
}

// ScheduleService manages pickup schedules.
type ScheduleService struct {
	repo      RepositoryManager
	publisher Publisher
	logger    Logger
}

func NewScheduleService(repo RepositoryManager, publisher Publisher, logger Logger) *ScheduleService {
	return &ScheduleService{
		repo:      repo,
		publisher: normalizePublisher(publisher),
		logger:    logger,
	}
}

// Create plans a new pickup. Only admin/driver accounts reach this through
// the HTTP layer.
func (s *ScheduleService) Create(ctx context.Context, createdBy uuid.UUID, payload CreateSchedulePayload) (*Schedule, error) {
	if !validWaste(payload.Waste) {
		return nil, ErrInvalidEnum
	}

	schedule := &Schedule{
		ID:        uuid.New(),
		DateISO:   payload.DateISO,
		TimeLabel: payload.TimeLabel,
		Waste:     payload.Waste,
		Status:    ScheduleStatusUpcoming,
		CreatedBy: createdBy,
	}

	created, err := s.repo.Schedules().Create(ctx, schedule)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, Event{
		Type:       EventScheduleCreated,
		Payload:    created,
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("schedule publish failed: %v", err)
	}

	return created, nil
}

// Delete removes a planned pickup.
func (s *ScheduleService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Schedules().DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrScheduleNotFound
	}

	if err := s.publisher.Publish(ctx, Event{
		Type:       EventScheduleDeleted,
		Payload:    map[string]string{"id": id.String()},
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("schedule publish failed: %v", err)
	}

	return nil
}

// ListUpcoming returns pending pickups from today forward.
func (s *ScheduleService) ListUpcoming(ctx context.Context, limit int) ([]*Schedule, error) {
	today := time.Now().Format("2006-01-02")
	return s.repo.Schedules().ListUpcoming(ctx, today, limit)
}

// UpdateStatus moves a schedule to Completed or Missed.
func (s *ScheduleService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Schedule, error) {
	if !validScheduleStatus(status) {
		return nil, ErrInvalidEnum
	}

	record, err := s.repo.Schedules().GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	record.Status = status
	now := time.Now()
	record.UpdatedAt = &now

	updated, err := s.repo.Schedules().Update(ctx, record, repository.UpdateByID(id.String()))
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, Event{
		Type:       EventScheduleUpdated,
		Payload:    updated,
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("schedule publish failed: %v", err)
	}

	return updated, nil
}
