package call

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	apperrors "github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/errors"
)

// Mocks

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockCallRepository struct {
	mock.Mock
}

func (m *MockCallRepository) StartCall(ctx context.Context, call *domain.Call) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockCallRepository) EndCall(ctx context.Context, call *domain.Call) error {
	args := m.Called(ctx, call)
	if args.Error(0) == nil {
		now := time.Now()
		call.Status = domain.CallEnded
		call.EndedAt = &now
	}
	return args.Error(0)
}

func (m *MockCallRepository) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, callID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockCallRepository) DropCall(ctx context.Context, callID, teacherID uuid.UUID) (bool, error) {
	args := m.Called(ctx, callID, teacherID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCallRepository) UpdateHeartbeat(ctx context.Context, callID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, callID, at)
	return args.Error(0)
}

func (m *MockCallRepository) FindActiveByStudent(ctx context.Context, studentID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockCallRepository) FindActiveByTeacher(ctx context.Context, teacherID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, teacherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockCallRepository) FindStale(ctx context.Context, cutoff time.Time) ([]*domain.Call, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Call), args.Error(1)
}

func (m *MockCallRepository) ListCompleted(ctx context.Context, userID uuid.UUID, role domain.Role, limit, offset int) ([]*domain.Call, int64, error) {
	args := m.Called(ctx, userID, role, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Call), args.Get(1).(int64), args.Error(2)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) HasActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockAvailabilityMirror struct {
	mock.Mock
}

func (m *MockAvailabilityMirror) SetAvailable(ctx context.Context, teacherID uuid.UUID) error {
	args := m.Called(ctx, teacherID)
	return args.Error(0)
}

func (m *MockAvailabilityMirror) SetUnavailable(ctx context.Context, teacherID uuid.UUID) error {
	args := m.Called(ctx, teacherID)
	return args.Error(0)
}

// Helpers

type fixture struct {
	svc     *Service
	users   *MockUserRepository
	calls   *MockCallRepository
	subs    *MockSubscriptionRepository
	mirror  *MockAvailabilityMirror
	student *domain.User
	teacher *domain.User
}

func newFixture() *fixture {
	users := new(MockUserRepository)
	calls := new(MockCallRepository)
	subs := new(MockSubscriptionRepository)
	mirror := new(MockAvailabilityMirror)

	return &fixture{
		svc:    NewService(calls, users, subs, mirror, nil, domain.HeartbeatTimeout, zap.NewNop()),
		users:  users,
		calls:  calls,
		subs:   subs,
		mirror: mirror,
		student: &domain.User{
			UserID:    uuid.New(),
			Role:      domain.RoleStudent,
			FirstName: "Sana",
			LastName:  "Khan",
		},
		teacher: &domain.User{
			UserID:      uuid.New(),
			Role:        domain.RoleTeacher,
			TutorStatus: domain.TutorAvailable,
			FirstName:   "Ravi",
			LastName:    "Sharma",
		},
	}
}

func activeCall(studentID, teacherID uuid.UUID) *domain.Call {
	now := time.Now()
	return &domain.Call{
		CallID:        uuid.New(),
		StudentID:     studentID,
		TeacherID:     teacherID,
		RoomID:        "room_0011223344556677_1700000000",
		Status:        domain.CallActive,
		StartedAt:     &now,
		LastHeartbeat: &now,
	}
}

// StartCall

func TestStartCall_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.users.On("GetByID", ctx, f.student.UserID).Return(f.student, nil)
	f.users.On("GetByID", ctx, f.teacher.UserID).Return(f.teacher, nil)
	f.subs.On("HasActive", ctx, f.student.UserID).Return(true, nil)
	f.calls.On("FindActiveByStudent", ctx, f.student.UserID).Return(nil, nil)
	f.calls.On("FindActiveByTeacher", ctx, f.teacher.UserID).Return(nil, nil)
	f.calls.On("StartCall", ctx, mock.AnythingOfType("*domain.Call")).Return(nil)
	f.mirror.On("SetUnavailable", ctx, f.teacher.UserID).Return(nil)

	call, err := f.svc.StartCall(ctx, f.student.UserID, f.teacher.UserID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallActive, call.Status)
	assert.Equal(t, f.student.UserID, call.StudentID)
	assert.Equal(t, f.teacher.UserID, call.TeacherID)
	assert.True(t, strings.HasPrefix(call.RoomID, "room_"))
	assert.NotNil(t, call.StartedAt)
	assert.NotNil(t, call.LastHeartbeat)
	f.calls.AssertExpectations(t)
	f.mirror.AssertExpectations(t)
}

func TestStartCall_NotAStudent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.users.On("GetByID", ctx, f.teacher.UserID).Return(f.teacher, nil)

	_, err := f.svc.StartCall(ctx, f.teacher.UserID, f.teacher.UserID)

	assert.ErrorIs(t, err, apperrors.NotAStudentError())
	f.calls.AssertNotCalled(t, "StartCall", mock.Anything, mock.Anything)
}

func TestStartCall_NotATeacher(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	other := &domain.User{UserID: uuid.New(), Role: domain.RoleStudent}

	f.users.On("GetByID", ctx, f.student.UserID).Return(f.student, nil)
	f.users.On("GetByID", ctx, other.UserID).Return(other, nil)

	_, err := f.svc.StartCall(ctx, f.student.UserID, other.UserID)

	assert.ErrorIs(t, err, apperrors.NotATeacherError())
}

func TestStartCall_NoActiveSubscription(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.users.On("GetByID", ctx, f.student.UserID).Return(f.student, nil)
	f.users.On("GetByID", ctx, f.teacher.UserID).Return(f.teacher, nil)
	f.subs.On("HasActive", ctx, f.student.UserID).Return(false, nil)

	_, err := f.svc.StartCall(ctx, f.student.UserID, f.teacher.UserID)

	assert.ErrorIs(t, err, apperrors.NoActiveSubscriptionError())
	f.calls.AssertNotCalled(t, "StartCall", mock.Anything, mock.Anything)
}

func TestStartCall_TeacherUnavailable(t *testing.T) {
	for _, status := range []domain.TutorStatus{domain.TutorOffline, domain.TutorBusy} {
		f := newFixture()
		ctx := context.Background()
		f.teacher.TutorStatus = status

		f.users.On("GetByID", ctx, f.student.UserID).Return(f.student, nil)
		f.users.On("GetByID", ctx, f.teacher.UserID).Return(f.teacher, nil)
		f.subs.On("HasActive", ctx, f.student.UserID).Return(true, nil)

		_, err := f.svc.StartCall(ctx, f.student.UserID, f.teacher.UserID)

		assert.ErrorIs(t, err, apperrors.TeacherUnavailableError(), "status %s", status)
	}
}

func TestStartCall_BannedTeacherUnavailable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.teacher.Banned = true

	f.users.On("GetByID", ctx, f.student.UserID).Return(f.student, nil)
	f.users.On("GetByID", ctx, f.teacher.UserID).Return(f.teacher, nil)
	f.subs.On("HasActive", ctx, f.student.UserID).Return(true, nil)

	_, err := f.svc.StartCall(ctx, f.student.UserID, f.teacher.UserID)

	assert.ErrorIs(t, err, apperrors.TeacherUnavailableError())
}

func TestStartCall_StudentAlreadyInCall(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.users.On("GetByID", ctx, f.student.UserID).Return(f.student, nil)
	f.users.On("GetByID", ctx, f.teacher.UserID).Return(f.teacher, nil)
	f.subs.On("HasActive", ctx, f.student.UserID).Return(true, nil)
	f.calls.On("FindActiveByStudent", ctx, f.student.UserID).
		Return(activeCall(f.student.UserID, uuid.New()), nil)

	_, err := f.svc.StartCall(ctx, f.student.UserID, f.teacher.UserID)

	assert.ErrorIs(t, err, apperrors.StudentAlreadyInCallError())
}

func TestStartCall_TeacherAlreadyInCall(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.users.On("GetByID", ctx, f.student.UserID).Return(f.student, nil)
	f.users.On("GetByID", ctx, f.teacher.UserID).Return(f.teacher, nil)
	f.subs.On("HasActive", ctx, f.student.UserID).Return(true, nil)
	f.calls.On("FindActiveByStudent", ctx, f.student.UserID).Return(nil, nil)
	f.calls.On("FindActiveByTeacher", ctx, f.teacher.UserID).
		Return(activeCall(uuid.New(), f.teacher.UserID), nil)

	_, err := f.svc.StartCall(ctx, f.student.UserID, f.teacher.UserID)

	assert.ErrorIs(t, err, apperrors.TeacherAlreadyInCallError())
}

func TestStartCall_LostRaceSurfacesRepoError(t *testing.T) {
	// Two rapid starts against the same teacher: the second passes the
	// precondition reads but loses the conditional update in the repository
	f := newFixture()
	ctx := context.Background()

	f.users.On("GetByID", ctx, f.student.UserID).Return(f.student, nil)
	f.users.On("GetByID", ctx, f.teacher.UserID).Return(f.teacher, nil)
	f.subs.On("HasActive", ctx, f.student.UserID).Return(true, nil)
	f.calls.On("FindActiveByStudent", ctx, f.student.UserID).Return(nil, nil)
	f.calls.On("FindActiveByTeacher", ctx, f.teacher.UserID).Return(nil, nil)
	f.calls.On("StartCall", ctx, mock.AnythingOfType("*domain.Call")).
		Return(apperrors.TeacherAlreadyInCallError())

	_, err := f.svc.StartCall(ctx, f.student.UserID, f.teacher.UserID)

	assert.ErrorIs(t, err, apperrors.TeacherAlreadyInCallError())
	f.mirror.AssertNotCalled(t, "SetUnavailable", mock.Anything, mock.Anything)
}

// EndCall

func TestEndCall_ByTeacher(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	call := activeCall(f.student.UserID, f.teacher.UserID)

	f.calls.On("EndCall", ctx, call).Return(nil)
	f.mirror.On("SetAvailable", ctx, f.teacher.UserID).Return(nil)

	ended, err := f.svc.EndCall(ctx, call, f.teacher.UserID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallEnded, ended.Status)
	assert.NotNil(t, ended.EndedAt)
	assert.GreaterOrEqual(t, ended.DurationSeconds(), int64(0))
	f.mirror.AssertExpectations(t)
}

func TestEndCall_NotAParticipant(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	call := activeCall(f.student.UserID, f.teacher.UserID)

	_, err := f.svc.EndCall(ctx, call, uuid.New())

	assert.ErrorIs(t, err, apperrors.NotAParticipantError())
	assert.Equal(t, domain.CallActive, call.Status)
	f.calls.AssertNotCalled(t, "EndCall", mock.Anything, mock.Anything)
	f.mirror.AssertNotCalled(t, "SetAvailable", mock.Anything, mock.Anything)
}

func TestEndCall_AlreadyEnded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	call := activeCall(f.student.UserID, f.teacher.UserID)
	call.Status = domain.CallEnded

	_, err := f.svc.EndCall(ctx, call, f.student.UserID)

	assert.ErrorIs(t, err, apperrors.CallNotActiveError())
}

// Heartbeat

func TestHeartbeat_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	call := activeCall(f.student.UserID, f.teacher.UserID)
	before := *call.LastHeartbeat

	f.subs.On("HasActive", ctx, f.student.UserID).Return(true, nil)
	f.calls.On("UpdateHeartbeat", ctx, call.CallID, mock.AnythingOfType("time.Time")).Return(nil)

	updated, err := f.svc.Heartbeat(ctx, call, f.student.UserID)

	assert.NoError(t, err)
	assert.False(t, updated.LastHeartbeat.Before(before))
}

func TestHeartbeat_TeacherSkipsSubscriptionCheck(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	call := activeCall(f.student.UserID, f.teacher.UserID)

	f.calls.On("UpdateHeartbeat", ctx, call.CallID, mock.AnythingOfType("time.Time")).Return(nil)

	_, err := f.svc.Heartbeat(ctx, call, f.teacher.UserID)

	assert.NoError(t, err)
	f.subs.AssertNotCalled(t, "HasActive", mock.Anything, mock.Anything)
}

func TestHeartbeat_SubscriptionExpiredEndsCall(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	call := activeCall(f.student.UserID, f.teacher.UserID)

	f.subs.On("HasActive", ctx, f.student.UserID).Return(false, nil)
	f.calls.On("EndCall", ctx, call).Return(nil)
	f.mirror.On("SetAvailable", ctx, f.teacher.UserID).Return(nil)

	_, err := f.svc.Heartbeat(ctx, call, f.student.UserID)

	// The call is terminated as a side effect of the failed heartbeat
	assert.ErrorIs(t, err, apperrors.SubscriptionExpiredError())
	assert.Equal(t, domain.CallEnded, call.Status)
	f.calls.AssertCalled(t, "EndCall", ctx, call)
	f.calls.AssertNotCalled(t, "UpdateHeartbeat", mock.Anything, mock.Anything, mock.Anything)
}

func TestHeartbeat_RacesConcurrentEnd(t *testing.T) {
	// The call row was ended between loading it and touching it
	f := newFixture()
	ctx := context.Background()
	call := activeCall(f.student.UserID, f.teacher.UserID)

	f.subs.On("HasActive", ctx, f.student.UserID).Return(true, nil)
	f.calls.On("UpdateHeartbeat", ctx, call.CallID, mock.AnythingOfType("time.Time")).
		Return(apperrors.CallNotActiveError())

	_, err := f.svc.Heartbeat(ctx, call, f.student.UserID)

	assert.ErrorIs(t, err, apperrors.CallNotActiveError())
}

func TestHeartbeat_NotAParticipant(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	call := activeCall(f.student.UserID, f.teacher.UserID)

	_, err := f.svc.Heartbeat(ctx, call, uuid.New())

	assert.ErrorIs(t, err, apperrors.NotAParticipantError())
}

// SweepStaleCalls

func TestSweepStaleCalls_DropsOnlyStale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	stale := activeCall(uuid.New(), uuid.New())
	old := time.Now().Add(-61 * time.Second)
	stale.LastHeartbeat = &old

	// The scan already filters by heartbeat age; two fresh calls never
	// reach the repository result
	f.calls.On("FindStale", ctx, mock.AnythingOfType("time.Time")).
		Return([]*domain.Call{stale}, nil)
	f.calls.On("DropCall", ctx, stale.CallID, stale.TeacherID).Return(true, nil)
	f.mirror.On("SetAvailable", ctx, stale.TeacherID).Return(nil)

	count, err := f.svc.SweepStaleCalls(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 1, count)
	f.mirror.AssertExpectations(t)
}

func TestSweepStaleCalls_SkipsLostRace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	stale := activeCall(uuid.New(), uuid.New())

	f.calls.On("FindStale", ctx, mock.AnythingOfType("time.Time")).
		Return([]*domain.Call{stale}, nil)
	// Concurrent EndCall won; the conditional drop affected zero rows
	f.calls.On("DropCall", ctx, stale.CallID, stale.TeacherID).Return(false, nil)

	count, err := f.svc.SweepStaleCalls(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 0, count)
	f.mirror.AssertNotCalled(t, "SetAvailable", mock.Anything, mock.Anything)
}

func TestSweepStaleCalls_ContinuesPastFailures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	bad := activeCall(uuid.New(), uuid.New())
	good := activeCall(uuid.New(), uuid.New())

	f.calls.On("FindStale", ctx, mock.AnythingOfType("time.Time")).
		Return([]*domain.Call{bad, good}, nil)
	f.calls.On("DropCall", ctx, bad.CallID, bad.TeacherID).Return(false, assert.AnError)
	f.calls.On("DropCall", ctx, good.CallID, good.TeacherID).Return(true, nil)
	f.mirror.On("SetAvailable", ctx, good.TeacherID).Return(nil)

	count, err := f.svc.SweepStaleCalls(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

// Query API

func TestFindActiveCall_RoleDispatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	studentCall := activeCall(f.student.UserID, f.teacher.UserID)

	f.calls.On("FindActiveByStudent", ctx, f.student.UserID).Return(studentCall, nil)
	f.calls.On("FindActiveByTeacher", ctx, f.teacher.UserID).Return(nil, nil)

	got, err := f.svc.FindActiveCall(ctx, f.student.UserID, domain.RoleStudent)
	assert.NoError(t, err)
	assert.Equal(t, studentCall.CallID, got.CallID)

	got, err = f.svc.FindActiveCall(ctx, f.teacher.UserID, domain.RoleTeacher)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestListHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	completed := activeCall(f.student.UserID, f.teacher.UserID)
	completed.Status = domain.CallEnded

	f.calls.On("ListCompleted", ctx, f.student.UserID, domain.RoleStudent, 15, 0).
		Return([]*domain.Call{completed}, int64(1), nil)

	calls, total, err := f.svc.ListHistory(ctx, f.student.UserID, domain.RoleStudent, 15, 0)

	assert.NoError(t, err)
	assert.Len(t, calls, 1)
	assert.Equal(t, int64(1), total)
}
