package user

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	apperrors "github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/errors"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/storage"
)

const maxPhotoSize = 5 << 20 // 5 MiB

var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// UserRepository interface
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
}

// SubscriptionRepository interface, for the profile export
type SubscriptionRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Subscription, error)
}

// Service handles profile management
type Service struct {
	userRepo UserRepository
	subRepo  SubscriptionRepository
	storage  storage.ObjectStorage
	log      *zap.Logger
}

// NewService creates a new user service
func NewService(userRepo UserRepository, subRepo SubscriptionRepository, store storage.ObjectStorage, log *zap.Logger) *Service {
	return &Service{userRepo: userRepo, subRepo: subRepo, storage: store, log: log}
}

// UpdateProfileInput contains the editable profile fields. Nil means
// leave the field as is.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Address   *string
}

// GetProfile returns the user's profile
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// UpdateProfile applies partial profile changes
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, input *UpdateProfileInput) (*domain.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if name == "" {
			return nil, apperrors.ValidationError("first name cannot be empty")
		}
		user.FirstName = name
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Address != nil {
		if a := strings.TrimSpace(*input.Address); a != "" {
			user.Address = &a
		} else {
			user.Address = nil
		}
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// UploadPhoto stores a new profile picture and records its URL
func (s *Service) UploadPhoto(ctx context.Context, userID uuid.UUID, reader io.Reader, size int64, contentType string) (*domain.UserResponse, error) {
	ext, ok := allowedPhotoTypes[contentType]
	if !ok {
		return nil, apperrors.ValidationError("profile picture must be jpeg, png or webp")
	}
	if size <= 0 || size > maxPhotoSize {
		return nil, apperrors.ValidationError("profile picture must be between 1 byte and 5 MiB")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("profiles/%s/%s%s", userID, uuid.New(), ext)
	url, err := s.storage.Upload(ctx, objectName, reader, size, contentType)
	if err != nil {
		return nil, apperrors.StorageError(err)
	}

	old := user.ProfilePicURL
	user.ProfilePicURL = &url
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	// Old object cleanup is best-effort
	if old != nil {
		if err := s.storage.Remove(ctx, objectNameFromURL(*old)); err != nil {
			s.log.Warn("failed to remove old profile picture",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}

	return user.ToResponse(), nil
}

// RemovePhoto deletes the user's profile picture
func (s *Service) RemovePhoto(ctx context.Context, userID uuid.UUID) (*domain.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ProfilePicURL == nil {
		return user.ToResponse(), nil
	}

	objectName := objectNameFromURL(*user.ProfilePicURL)
	user.ProfilePicURL = nil
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	if err := s.storage.Remove(ctx, objectName); err != nil {
		s.log.Warn("failed to remove profile picture object",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	return user.ToResponse(), nil
}

// ExportCSV renders the user's profile and subscription history as a CSV
// document and returns it with a download filename.
func (s *Service) ExportCSV(ctx context.Context, userID uuid.UUID) ([]byte, string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	subs, err := s.subRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	orNotSet := func(v *string) string {
		if v == nil {
			return "Not set"
		}
		return *v
	}
	verified := "No"
	if user.Verified {
		verified = "Yes"
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{"=== USER PROFILE ==="},
		{"Field", "Value"},
		{"Name", user.FullName()},
		{"Email", user.Email},
		{"Role", string(user.Role)},
		{"Verified", verified},
		{"Address", orNotSet(user.Address)},
		{"Profile Picture", orNotSet(user.ProfilePicURL)},
		{"Member Since", user.CreatedAt.Format("January 2, 2006")},
		{},
		{"=== SUBSCRIPTION HISTORY ==="},
		{"Plan", "Status", "Start Time", "End Time", "Payment ID"},
	}
	for _, sub := range subs {
		paymentID := "N/A"
		if sub.PaymentID != nil {
			paymentID = *sub.PaymentID
		}
		records = append(records, []string{
			string(sub.PlanType),
			string(sub.Status),
			sub.StartTime.Format("2006-01-02 15:04"),
			sub.EndTime.Format("2006-01-02 15:04"),
			paymentID,
		})
	}
	if len(subs) == 0 {
		records = append(records, []string{"No subscriptions yet"})
	}

	if err := w.WriteAll(records); err != nil {
		return nil, "", fmt.Errorf("failed to write profile export: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("failed to write profile export: %w", err)
	}

	filename := fmt.Sprintf("tutorconnect_profile_%s_%s.csv", userID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// objectNameFromURL recovers the bucket object name from a public URL.
// Upload URLs look like http(s)://endpoint/bucket/profiles/<uid>/<name>.
func objectNameFromURL(url string) string {
	idx := strings.Index(url, "/profiles/")
	if idx < 0 {
		return filepath.Base(url)
	}
	return strings.TrimPrefix(url[idx:], "/")
}
