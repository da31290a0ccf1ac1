package tutor

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	apperrors "github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/errors"
)

// UserRepository interface
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ListTeachers(ctx context.Context, availableOnly bool, search string, limit, offset int) ([]*domain.User, int64, error)
	SetTutorStatus(ctx context.Context, userID uuid.UUID, from, to domain.TutorStatus) (bool, error)
}

// AvailabilityMirror interface
type AvailabilityMirror interface {
	SetAvailable(ctx context.Context, teacherID uuid.UUID) error
	SetUnavailable(ctx context.Context, teacherID uuid.UUID) error
}

// Service handles tutor discovery and availability
type Service struct {
	userRepo UserRepository
	mirror   AvailabilityMirror
	log      *zap.Logger
}

// NewService creates a new tutor service
func NewService(userRepo UserRepository, mirror AvailabilityMirror, log *zap.Logger) *Service {
	return &Service{userRepo: userRepo, mirror: mirror, log: log}
}

// List returns teachers for discovery. Only available teachers are shown
// unless filter is "all"; search matches name or email.
func (s *Service) List(ctx context.Context, filter, search string, limit, offset int) ([]*domain.UserResponse, int64, error) {
	availableOnly := strings.ToLower(filter) != "all"

	teachers, total, err := s.userRepo.ListTeachers(ctx, availableOnly, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	resp := make([]*domain.UserResponse, 0, len(teachers))
	for _, t := range teachers {
		resp = append(resp, t.ToResponse())
	}
	return resp, total, nil
}

// Get returns a single teacher's public profile
func (s *Service) Get(ctx context.Context, teacherID uuid.UUID) (*domain.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if !user.IsTeacher() {
		return nil, apperrors.NotFoundError("teacher")
	}
	return user.ToResponse(), nil
}

// ToggleAvailability flips a teacher between offline and available. A busy
// teacher cannot toggle; the call they are in owns that transition.
func (s *Service) ToggleAvailability(ctx context.Context, teacherID uuid.UUID) (domain.TutorStatus, error) {
	user, err := s.userRepo.GetByID(ctx, teacherID)
	if err != nil {
		return "", err
	}
	if !user.IsTeacher() {
		return "", apperrors.NotATeacherError()
	}
	if user.TutorStatus == domain.TutorBusy {
		return "", apperrors.TutorBusyError()
	}

	from, to := domain.TutorOffline, domain.TutorAvailable
	if user.TutorStatus == domain.TutorAvailable {
		from, to = domain.TutorAvailable, domain.TutorOffline
	}

	updated, err := s.userRepo.SetTutorStatus(ctx, teacherID, from, to)
	if err != nil {
		return "", err
	}
	if !updated {
		// Status moved under us, most likely a call starting
		return "", apperrors.TutorBusyError()
	}

	s.mirrorStatus(ctx, teacherID, to)
	s.log.Info("tutor availability changed",
		zap.String("teacher_id", teacherID.String()),
		zap.String("status", string(to)),
	)

	return to, nil
}

func (s *Service) mirrorStatus(ctx context.Context, teacherID uuid.UUID, status domain.TutorStatus) {
	if s.mirror == nil {
		return
	}
	var err error
	if status == domain.TutorAvailable {
		err = s.mirror.SetAvailable(ctx, teacherID)
	} else {
		err = s.mirror.SetUnavailable(ctx, teacherID)
	}
	if err != nil {
		s.log.Warn("availability mirror update failed",
			zap.String("teacher_id", teacherID.String()),
			zap.Error(err),
		)
	}
}
