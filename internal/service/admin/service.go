package admin

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	apperrors "github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/errors"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/metrics"
)

const recentActivityLimit = 10

// AdminRepository interface
type AdminRepository interface {
	GetSystemStats(ctx context.Context) (*domain.SystemStats, error)
	ListUsers(ctx context.Context, filter *domain.UserListFilter, limit, offset int) ([]*domain.User, int64, error)
	ListRecentUsers(ctx context.Context, limit int) ([]*domain.User, error)
}

// UserRepository interface
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	Ban(ctx context.Context, userID uuid.UUID, reason string) error
	Unban(ctx context.Context, userID uuid.UUID) error
}

// CallRepository interface
type CallRepository interface {
	ListRecent(ctx context.Context, limit int) ([]*domain.Call, error)
	FindActiveByTeacher(ctx context.Context, teacherID uuid.UUID) (*domain.Call, error)
	FindActiveByStudent(ctx context.Context, studentID uuid.UUID) (*domain.Call, error)
	DropCall(ctx context.Context, callID, teacherID uuid.UUID) (bool, error)
}

// AvailabilityMirror interface
type AvailabilityMirror interface {
	SetUnavailable(ctx context.Context, teacherID uuid.UUID) error
	AvailableCount(ctx context.Context) (int64, error)
}

// Service handles admin operations
type Service struct {
	adminRepo AdminRepository
	userRepo  UserRepository
	callRepo  CallRepository
	mirror    AvailabilityMirror
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewService creates a new admin service
func NewService(
	adminRepo AdminRepository,
	userRepo UserRepository,
	callRepo CallRepository,
	mirror AvailabilityMirror,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	return &Service{
		adminRepo: adminRepo,
		userRepo:  userRepo,
		callRepo:  callRepo,
		mirror:    mirror,
		metrics:   m,
		log:       log,
	}
}

// Stats returns platform-wide counters. The available-tutor count is read
// from the Redis mirror, falling back to the Postgres count when the
// mirror is unreachable.
func (s *Service) Stats(ctx context.Context) (*domain.SystemStats, error) {
	stats, err := s.adminRepo.GetSystemStats(ctx)
	if err != nil {
		return nil, err
	}

	if s.mirror != nil {
		if n, err := s.mirror.AvailableCount(ctx); err == nil {
			stats.AvailableTutors = n
		} else {
			s.log.Warn("availability mirror count failed", zap.Error(err))
		}
	}
	return stats, nil
}

// RecentActivity returns the latest signups and calls
func (s *Service) RecentActivity(ctx context.Context) (*domain.RecentActivity, error) {
	users, err := s.adminRepo.ListRecentUsers(ctx, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	calls, err := s.callRepo.ListRecent(ctx, recentActivityLimit)
	if err != nil {
		return nil, err
	}

	activity := &domain.RecentActivity{
		RecentUsers: make([]*domain.UserResponse, 0, len(users)),
		RecentCalls: make([]*domain.CallResponse, 0, len(calls)),
	}
	for _, u := range users {
		activity.RecentUsers = append(activity.RecentUsers, u.ToResponse())
	}
	for _, c := range calls {
		activity.RecentCalls = append(activity.RecentCalls, c.ToResponse(nil, nil))
	}
	return activity, nil
}

// ListUsers returns users matching the filter for the admin console
func (s *Service) ListUsers(ctx context.Context, filter *domain.UserListFilter, limit, offset int) ([]*domain.UserResponse, int64, error) {
	users, total, err := s.adminRepo.ListUsers(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	resp := make([]*domain.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, u.ToResponse())
	}
	return resp, total, nil
}

// GetUser returns one user by id
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// UpdateUserInput contains the fields an admin may edit. Nil leaves a
// field unchanged.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Address   *string
}

// UpdateUser edits a user's profile fields on their behalf
func (s *Service) UpdateUser(ctx context.Context, adminID, userID uuid.UUID, input *UpdateUserInput) (*domain.UserResponse, error) {
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

	s.log.Info("user updated by admin",
		zap.String("user_id", userID.String()),
		zap.String("admin_id", adminID.String()),
	)
	return user.ToResponse(), nil
}

// BanUser bans a user. A banned teacher is forced offline and their active
// call, if any, is dropped; a banned student's active call is dropped too.
func (s *Service) BanUser(ctx context.Context, adminID, userID uuid.UUID, reason string) error {
	if adminID == userID {
		return apperrors.ValidationError("cannot ban yourself")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return apperrors.ForbiddenError("cannot ban an admin")
	}
	if user.Banned {
		return apperrors.ConflictError("user is already banned")
	}

	if err := s.userRepo.Ban(ctx, userID, strings.TrimSpace(reason)); err != nil {
		return err
	}

	s.dropActiveCall(ctx, user)
	if user.IsTeacher() && s.mirror != nil {
		if err := s.mirror.SetUnavailable(ctx, userID); err != nil {
			s.log.Warn("availability mirror update failed",
				zap.String("teacher_id", userID.String()),
				zap.Error(err),
			)
		}
	}

	s.log.Info("user banned",
		zap.String("user_id", userID.String()),
		zap.String("admin_id", adminID.String()),
		zap.String("reason", reason),
	)
	return nil
}

// UnbanUser lifts a ban. The user comes back offline; teachers opt back in
// to availability themselves.
func (s *Service) UnbanUser(ctx context.Context, adminID, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.Banned {
		return apperrors.ConflictError("user is not banned")
	}

	if err := s.userRepo.Unban(ctx, userID); err != nil {
		return err
	}

	s.log.Info("user unbanned",
		zap.String("user_id", userID.String()),
		zap.String("admin_id", adminID.String()),
	)
	return nil
}

func (s *Service) dropActiveCall(ctx context.Context, user *domain.User) {
	var call *domain.Call
	var err error
	if user.IsTeacher() {
		call, err = s.callRepo.FindActiveByTeacher(ctx, user.UserID)
	} else {
		call, err = s.callRepo.FindActiveByStudent(ctx, user.UserID)
	}
	if err != nil {
		s.log.Error("failed to look up active call for banned user",
			zap.String("user_id", user.UserID.String()),
			zap.Error(err),
		)
		return
	}
	if call == nil {
		return
	}

	dropped, err := s.callRepo.DropCall(ctx, call.CallID, call.TeacherID)
	if err != nil {
		s.log.Error("failed to drop banned user's call",
			zap.String("call_id", call.CallID.String()),
			zap.Error(err),
		)
		return
	}
	if dropped {
		if s.metrics != nil {
			s.metrics.CallEnded(string(domain.CallDropped), time.Duration(call.DurationSeconds())*time.Second)
		}
		s.log.Info("dropped call for banned user",
			zap.String("call_id", call.CallID.String()),
			zap.String("user_id", user.UserID.String()),
		)
	}
}
