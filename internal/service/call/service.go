package call

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	apperrors "github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/errors"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/metrics"
)

// UserRepository interface
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// CallRepository interface. StartCall, EndCall, DropCall and
// UpdateHeartbeat are conditional transitions: the repository commits them
// only if the row is still in the expected state and reports a lost race
// through its error (or the returned bool for DropCall).
type CallRepository interface {
	StartCall(ctx context.Context, call *domain.Call) error
	EndCall(ctx context.Context, call *domain.Call) error
	GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	DropCall(ctx context.Context, callID, teacherID uuid.UUID) (bool, error)
	UpdateHeartbeat(ctx context.Context, callID uuid.UUID, at time.Time) error
	FindActiveByStudent(ctx context.Context, studentID uuid.UUID) (*domain.Call, error)
	FindActiveByTeacher(ctx context.Context, teacherID uuid.UUID) (*domain.Call, error)
	FindStale(ctx context.Context, cutoff time.Time) ([]*domain.Call, error)
	ListCompleted(ctx context.Context, userID uuid.UUID, role domain.Role, limit, offset int) ([]*domain.Call, int64, error)
}

// SubscriptionRepository interface
type SubscriptionRepository interface {
	HasActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

// AvailabilityMirror is the Redis-side availability cache. Updates are
// best-effort; a mirror failure never fails a call transition.
type AvailabilityMirror interface {
	SetAvailable(ctx context.Context, teacherID uuid.UUID) error
	SetUnavailable(ctx context.Context, teacherID uuid.UUID) error
}

// Service coordinates the call lifecycle. It owns every write to a call's
// status and to the availability of the involved teacher.
type Service struct {
	callRepo         CallRepository
	userRepo         UserRepository
	subscriptionRepo SubscriptionRepository
	mirror           AvailabilityMirror
	metrics          *metrics.Metrics
	heartbeatTimeout time.Duration
	log              *zap.Logger
}

// NewService creates a new call service
func NewService(
	callRepo CallRepository,
	userRepo UserRepository,
	subscriptionRepo SubscriptionRepository,
	mirror AvailabilityMirror,
	m *metrics.Metrics,
	heartbeatTimeout time.Duration,
	log *zap.Logger,
) *Service {
	if heartbeatTimeout <= 0 {
		heartbeatTimeout = domain.HeartbeatTimeout
	}
	return &Service{
		callRepo:         callRepo,
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		mirror:           mirror,
		metrics:          m,
		heartbeatTimeout: heartbeatTimeout,
		log:              log,
	}
}

// StartCall matches a student to a teacher and creates an active call.
// Preconditions are checked in order, cheapest first, and the first failure
// wins with no side effects. The effect itself (teacher to busy plus the
// new call row) commits atomically in the repository; concurrent starts
// against the same teacher or student lose the conditional update or hit
// the partial unique index and come back as the corresponding error.
func (s *Service) StartCall(ctx context.Context, studentID, teacherID uuid.UUID) (*domain.Call, error) {
	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !student.IsStudent() {
		return nil, s.rejectStart(apperrors.NotAStudentError())
	}

	teacher, err := s.userRepo.GetByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if !teacher.IsTeacher() {
		return nil, s.rejectStart(apperrors.NotATeacherError())
	}

	hasSub, err := s.subscriptionRepo.HasActive(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !hasSub {
		return nil, s.rejectStart(apperrors.NoActiveSubscriptionError())
	}

	if teacher.Banned || teacher.TutorStatus != domain.TutorAvailable {
		return nil, s.rejectStart(apperrors.TeacherUnavailableError())
	}

	active, err := s.callRepo.FindActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, s.rejectStart(apperrors.StudentAlreadyInCallError())
	}

	active, err = s.callRepo.FindActiveByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, s.rejectStart(apperrors.TeacherAlreadyInCallError())
	}

	now := time.Now()
	call := &domain.Call{
		CallID:        uuid.New(),
		StudentID:     studentID,
		TeacherID:     teacherID,
		RoomID:        generateRoomID(),
		Status:        domain.CallActive,
		StartedAt:     &now,
		LastHeartbeat: &now,
	}

	if err := s.callRepo.StartCall(ctx, call); err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			return nil, s.rejectStart(appErr)
		}
		return nil, err
	}

	s.mirrorUnavailable(ctx, teacherID)
	if s.metrics != nil {
		s.metrics.CallStarted()
	}
	s.log.Info("call started",
		zap.String("call_id", call.CallID.String()),
		zap.String("room_id", call.RoomID),
		zap.String("student_id", studentID.String()),
		zap.String("teacher_id", teacherID.String()),
	)

	return call, nil
}

// EndCall gracefully ends an active call on behalf of one of its
// participants and frees the teacher.
func (s *Service) EndCall(ctx context.Context, call *domain.Call, userID uuid.UUID) (*domain.Call, error) {
	if !call.IsActive() {
		return nil, apperrors.CallNotActiveError()
	}
	if !call.IsParticipant(userID) {
		return nil, apperrors.NotAParticipantError()
	}

	if err := s.callRepo.EndCall(ctx, call); err != nil {
		return nil, err
	}

	s.mirrorAvailable(ctx, call.TeacherID)
	if s.metrics != nil {
		s.metrics.CallEnded(string(domain.CallEnded), time.Duration(call.DurationSeconds())*time.Second)
	}
	s.log.Info("call ended",
		zap.String("call_id", call.CallID.String()),
		zap.String("ended_by", userID.String()),
		zap.Int64("duration_seconds", call.DurationSeconds()),
	)

	return call, nil
}

// Heartbeat keeps an active call alive. If the requesting user is the
// student and their subscription has lapsed mid-call, the call is ended on
// behalf of the system and SubscriptionExpired is reported: callers must
// treat that error as "call ended", not as a transient failure.
func (s *Service) Heartbeat(ctx context.Context, call *domain.Call, userID uuid.UUID) (*domain.Call, error) {
	if !call.IsActive() {
		return nil, apperrors.CallNotActiveError()
	}
	if !call.IsParticipant(userID) {
		return nil, apperrors.NotAParticipantError()
	}

	if userID == call.StudentID {
		hasSub, err := s.subscriptionRepo.HasActive(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !hasSub {
			if _, err := s.EndCall(ctx, call, userID); err != nil {
				return nil, err
			}
			s.log.Info("call ended: subscription expired mid-call",
				zap.String("call_id", call.CallID.String()),
				zap.String("student_id", userID.String()),
			)
			return nil, apperrors.SubscriptionExpiredError()
		}
	}

	now := time.Now()
	if err := s.callRepo.UpdateHeartbeat(ctx, call.CallID, now); err != nil {
		return nil, err
	}
	call.LastHeartbeat = &now

	return call, nil
}

// SweepStaleCalls drops active calls whose heartbeat has been silent longer
// than the timeout and frees their teachers. Calls transitioned by a
// concurrent EndCall between the scan and the conditional drop are skipped,
// not errors. Returns the number of calls dropped.
func (s *Service) SweepStaleCalls(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.heartbeatTimeout)

	stale, err := s.callRepo.FindStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to scan stale calls: %w", err)
	}

	count := 0
	for _, call := range stale {
		dropped, err := s.callRepo.DropCall(ctx, call.CallID, call.TeacherID)
		if err != nil {
			s.log.Error("failed to drop stale call",
				zap.String("call_id", call.CallID.String()),
				zap.Error(err),
			)
			continue
		}
		if !dropped {
			// Lost the race to a concurrent end; nothing to do
			continue
		}

		s.mirrorAvailable(ctx, call.TeacherID)
		if s.metrics != nil {
			s.metrics.CallEnded(string(domain.CallDropped), time.Duration(call.DurationSeconds())*time.Second)
		}
		s.log.Warn("dropped stale call",
			zap.String("call_id", call.CallID.String()),
			zap.String("teacher_id", call.TeacherID.String()),
			zap.Timep("last_heartbeat", call.LastHeartbeat),
		)
		count++
	}

	return count, nil
}

// GetCall returns a call by id
func (s *Service) GetCall(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	return s.callRepo.GetByID(ctx, callID)
}

// FindActiveCall returns the single active call where the user participates
// in the given role, or nil if none. Read-only.
func (s *Service) FindActiveCall(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.Call, error) {
	if role == domain.RoleTeacher {
		return s.callRepo.FindActiveByTeacher(ctx, userID)
	}
	return s.callRepo.FindActiveByStudent(ctx, userID)
}

// ListHistory returns a page of the user's completed calls, newest first,
// plus the total count for pagination controls
func (s *Service) ListHistory(ctx context.Context, userID uuid.UUID, role domain.Role, limit, offset int) ([]*domain.Call, int64, error) {
	return s.callRepo.ListCompleted(ctx, userID, role, limit, offset)
}

// Duration returns the call duration in whole seconds, usable on both
// in-progress and completed calls
func (s *Service) Duration(call *domain.Call) int64 {
	return call.DurationSeconds()
}

func (s *Service) rejectStart(appErr *apperrors.AppError) *apperrors.AppError {
	if s.metrics != nil {
		s.metrics.CallStartRejected(string(appErr.Code))
	}
	return appErr
}

// Mirror updates are best-effort; Postgres already holds the truth
func (s *Service) mirrorAvailable(ctx context.Context, teacherID uuid.UUID) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SetAvailable(ctx, teacherID); err != nil {
		s.log.Warn("availability mirror update failed",
			zap.String("teacher_id", teacherID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) mirrorUnavailable(ctx context.Context, teacherID uuid.UUID) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SetUnavailable(ctx, teacherID); err != nil {
		s.log.Warn("availability mirror update failed",
			zap.String("teacher_id", teacherID.String()),
			zap.Error(err),
		)
	}
}

// generateRoomID returns a globally-unique opaque room name; the calls
// table additionally enforces uniqueness
func generateRoomID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable; fall back to a UUID
		return fmt.Sprintf("room_%s_%d", uuid.New().String(), time.Now().Unix())
	}
	return fmt.Sprintf("room_%s_%d", hex.EncodeToString(buf), time.Now().Unix())
}
