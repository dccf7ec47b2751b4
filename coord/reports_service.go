package coord

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// maxAttachmentSize caps a single report attachment at 5 MiB.
const maxAttachmentSize = 5 << 20

// AttachmentUpload is an inbound attachment before storage.
type AttachmentUpload struct {
	OriginalName string
	MimeType     string
	Data         []byte
}

// FileReportPayload files a resident issue.
type FileReportPayload struct {
	Title       string
	Category    string
	Priority    string
	Description string
	Attachments []AttachmentUpload
}

// ReportService files and triages resident reports.
type ReportService struct {
	repo      RepositoryManager
	blobs     BlobStore
	publisher Publisher
	logger    Logger
}

func NewReportService(repo RepositoryManager, blobs BlobStore, publisher Publisher, logger Logger) *ReportService {
	return &ReportService{
		repo:      repo,
		blobs:     blobs,
		publisher: normalizePublisher(publisher),
		logger:    logger,
	}
}

// File stores attachments first, then the report row. A failed row insert
// leaves orphan blobs behind; those are cheap and swept out of band.
func (s *ReportService) File(ctx context.Context, createdBy uuid.UUID, payload FileReportPayload) (*Report, error) {
	priority := payload.Priority
	if priority == "" {
		priority = "normal"
	}

	reportID := uuid.New()

	attachments := make([]Attachment, 0, len(payload.Attachments))
	for i, upload := range payload.Attachments {
		if int64(len(upload.Data)) > maxAttachmentSize {
			return nil, ErrAttachmentTooLarge
		}
		if s.blobs == nil {
			break
		}

		key := fmt.Sprintf("reports/%s/%d-%s", reportID, i, upload.OriginalName)
		if err := s.blobs.Put(ctx, key, upload.Data, upload.MimeType); err != nil {
			return nil, err
		}

		attachments = append(attachments, Attachment{
			Key:          key,
			OriginalName: upload.OriginalName,
			MimeType:     upload.MimeType,
			Size:         int64(len(upload.Data)),
		})
	}

	report := &Report{
		ID:          reportID,
		Title:       payload.Title,
		Category:    payload.Category,
		Priority:    priority,
		Status:      ReportStatusOpen,
		Description: payload.Description,
		Attachments: attachments,
		CreatedBy:   createdBy,
	}

	created, err := s.repo.Reports().Create(ctx, report)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, Event{
		Type:       EventReportCreated,
		Payload:    created,
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("report publish failed: %v", err)
	}

	return created, nil
}

// ListForUser returns reports filed by one resident.
func (s *ReportService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Report, error) {
	return s.repo.Reports().ListForUser(ctx, userID)
}

// ListOpen returns unresolved reports for triage.
func (s *ReportService) ListOpen(ctx context.Context, limit int) ([]*Report, error) {
	return s.repo.Reports().ListOpen(ctx, limit)
}

// UpdateStatus moves a report through the triage flow.
func (s *ReportService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Report, error) {
	if !validReportStatus(status) {
		return nil, ErrInvalidEnum
	}

	record, err := s.repo.Reports().GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	record.Status = status
	now := time.Now()
	record.UpdatedAt = &now

	updated, err := s.repo.Reports().Update(ctx, record, repository.UpdateByID(id.String()))
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, Event{
		Type:       EventReportUpdated,
		Payload:    updated,
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("report publish failed: %v", err)
	}

	return updated, nil
}

// Attachment fetches a stored attachment body.
func (s *ReportService) Attachment(ctx context.Context, reportID uuid.UUID, key string) ([]byte, *Attachment, error) {
	record, err := s.repo.Reports().GetByID(ctx, reportID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil, ErrReportNotFound
		}
		return nil, nil, err
	}

	for i := range record.Attachments {
		if record.Attachments[i].Key != key {
			continue
		}
		data, err := s.blobs.Get(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		return data, &record.Attachments[i], nil
	}

	return nil, nil, ErrReportNotFound
}
