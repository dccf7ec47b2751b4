package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// maxProfileImageSize caps the uploaded profile picture at 2 MiB.
const maxProfileImageSize = 2 << 20

// AvatarStore persists profile image bytes. Keys are opaque to callers.
type AvatarStore interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// UpdateProfilePayload carries a partial profile update. Nil fields are
// left untouched.
type UpdateProfilePayload struct {
	Name      *string
	Phone     *string
	Society   *string
	Building  *string
	Apartment *string
}

// ProfileImageUpload is an inbound profile picture before storage.
type ProfileImageUpload struct {
	OriginalName string
	MimeType     string
	Data         []byte
}

// UpdateProfile applies a partial update to the caller's own record.
func (m *SessionManager) UpdateProfile(ctx context.Context, userID uuid.UUID, payload UpdateProfilePayload) (*UserView, error) {
	user, err := m.repo.Users().GetByID(ctx, userID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if payload.Name != nil {
		user.Name = *payload.Name
	}
	if payload.Phone != nil {
		user.Phone = *payload.Phone
	}
	if payload.Society != nil {
		user.Society = *payload.Society
	}
	if payload.Building != nil {
		user.Building = *payload.Building
	}
	if payload.Apartment != nil {
		user.Apartment = *payload.Apartment
	}

	now := time.Now()
	user.UpdatedAt = &now

	updated, err := m.repo.Users().Update(ctx, user, repository.UpdateByID(userID.String()))
	if err != nil {
		return nil, err
	}

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventProfileUpdate,
		UserID:     userID.String(),
		OccurredAt: time.Now(),
	})

	return NewUserView(updated), nil
}

// SetProfileImage stores the image bytes and points the user record at
// them. A previous image is deleted on replacement.
func (m *SessionManager) SetProfileImage(ctx context.Context, userID uuid.UUID, upload ProfileImageUpload) (*UserView, error) {
	if m.avatars == nil {
		return nil, errors.New("no avatar store configured", errors.CategoryInternal)
	}
	if int64(len(upload.Data)) > maxProfileImageSize {
		return nil, ErrProfileImageTooLarge
	}

	user, err := m.repo.Users().GetByID(ctx, userID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s", userID, upload.OriginalName)
	if err := m.avatars.Put(ctx, key, upload.Data, upload.MimeType); err != nil {
		return nil, err
	}

	if prev := user.ProfileImage; prev != nil && prev.Filename != key {
		if err := m.avatars.Delete(ctx, prev.Filename); err != nil {
			m.logger.Warn("failed to delete replaced profile image %s: %v", prev.Filename, err)
		}
	}

	now := time.Now()
	user.ProfileImage = &ProfileImage{
		Filename:     key,
		OriginalName: upload.OriginalName,
		MimeType:     upload.MimeType,
		Size:         int64(len(upload.Data)),
		UploadedAt:   &now,
	}
	user.UpdatedAt = &now

	updated, err := m.repo.Users().Update(ctx, user, repository.UpdateByID(userID.String()))
	if err != nil {
		return nil, err
	}

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventProfileUpdate,
		UserID:     userID.String(),
		Metadata:   map[string]any{"profile_image": key},
		OccurredAt: time.Now(),
	})

	return NewUserView(updated), nil
}

// GetProfileImage returns the stored image bytes and their metadata.
func (m *SessionManager) GetProfileImage(ctx context.Context, userID uuid.UUID) ([]byte, *ProfileImage, error) {
	if m.avatars == nil {
		return nil, nil, ErrUserNotFound
	}

	user, err := m.repo.Users().GetByID(ctx, userID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}

	if user.ProfileImage == nil {
		return nil, nil, ErrUserNotFound
	}

	data, err := m.avatars.Get(ctx, user.ProfileImage.Filename)
	if err != nil {
		return nil, nil, err
	}

	return data, user.ProfileImage, nil
}

// ListUsers returns sanitized views of the newest accounts, for the admin
// directory.
func (m *SessionManager) ListUsers(ctx context.Context, limit int) ([]*UserView, error) {
	users, err := m.repo.Users().List(ctx, limit)
	if err != nil {
		return nil, err
	}

	views := make([]*UserView, 0, len(users))
	for _, user := range users {
		views = append(views, NewUserView(user))
	}

	return views, nil
}
