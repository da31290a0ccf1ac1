package admin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	apperrors "github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/errors"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/metrics"
)

type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) GetSystemStats(ctx context.Context) (*domain.SystemStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SystemStats), args.Error(1)
}

func (m *MockAdminRepository) ListUsers(ctx context.Context, filter *domain.UserListFilter, limit, offset int) ([]*domain.User, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockAdminRepository) ListRecentUsers(ctx context.Context, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

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

func (m *MockUserRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Ban(ctx context.Context, userID uuid.UUID, reason string) error {
	args := m.Called(ctx, userID, reason)
	return args.Error(0)
}

func (m *MockUserRepository) Unban(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockCallRepository struct {
	mock.Mock
}

func (m *MockCallRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Call, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Call), args.Error(1)
}

func (m *MockCallRepository) FindActiveByTeacher(ctx context.Context, teacherID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, teacherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockCallRepository) FindActiveByStudent(ctx context.Context, studentID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockCallRepository) DropCall(ctx context.Context, callID, teacherID uuid.UUID) (bool, error) {
	args := m.Called(ctx, callID, teacherID)
	return args.Bool(0), args.Error(1)
}

type MockAvailabilityMirror struct {
	mock.Mock
}

func (m *MockAvailabilityMirror) SetUnavailable(ctx context.Context, teacherID uuid.UUID) error {
	args := m.Called(ctx, teacherID)
	return args.Error(0)
}

func (m *MockAvailabilityMirror) AvailableCount(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type fixture struct {
	svc    *Service
	admins *MockAdminRepository
	users  *MockUserRepository
	calls  *MockCallRepository
	mirror *MockAvailabilityMirror
}

func newFixture() *fixture {
	return newFixtureWithMetrics(nil)
}

func newFixtureWithMetrics(m *metrics.Metrics) *fixture {
	admins := new(MockAdminRepository)
	users := new(MockUserRepository)
	calls := new(MockCallRepository)
	mirror := new(MockAvailabilityMirror)
	return &fixture{
		svc:    NewService(admins, users, calls, mirror, m, zap.NewNop()),
		admins: admins,
		users:  users,
		calls:  calls,
		mirror: mirror,
	}
}

func TestStats_AvailableTutorsFromMirror(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.admins.On("GetSystemStats", ctx).Return(&domain.SystemStats{TotalTeachers: 10, AvailableTutors: 4}, nil)
	f.mirror.On("AvailableCount", ctx).Return(int64(7), nil)

	stats, err := f.svc.Stats(ctx)

	assert.NoError(t, err)
	assert.Equal(t, int64(7), stats.AvailableTutors)
}

func TestStats_MirrorDownFallsBackToPostgres(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.admins.On("GetSystemStats", ctx).Return(&domain.SystemStats{TotalTeachers: 10, AvailableTutors: 4}, nil)
	f.mirror.On("AvailableCount", ctx).Return(int64(0), errors.New("connection refused"))

	stats, err := f.svc.Stats(ctx)

	assert.NoError(t, err)
	assert.Equal(t, int64(4), stats.AvailableTutors)
}

func TestBanUser_DropRecordsCallMetrics(t *testing.T) {
	m := metrics.New("test")
	f := newFixtureWithMetrics(m)
	ctx := context.Background()

	tch := &domain.User{UserID: uuid.New(), Role: domain.RoleTeacher, TutorStatus: domain.TutorBusy}
	call := &domain.Call{CallID: uuid.New(), StudentID: uuid.New(), TeacherID: tch.UserID, Status: domain.CallActive}

	f.users.On("GetByID", ctx, tch.UserID).Return(tch, nil)
	f.users.On("Ban", ctx, tch.UserID, "spam").Return(nil)
	f.calls.On("FindActiveByTeacher", ctx, tch.UserID).Return(call, nil)
	f.calls.On("DropCall", ctx, call.CallID, tch.UserID).Return(true, nil)
	f.mirror.On("SetUnavailable", ctx, tch.UserID).Return(nil)

	assert.NoError(t, f.svc.BanUser(ctx, uuid.New(), tch.UserID, "spam"))

	// The drop must decrement the active gauge and count as a dropped call
	expected := `
		# HELP calls_active Number of currently active calls
		# TYPE calls_active gauge
		calls_active{service="test"} -1
		# HELP calls_ended_total Total number of calls ended, by terminal status
		# TYPE calls_ended_total counter
		calls_ended_total{service="test",status="dropped"} 1
	`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"calls_active", "calls_ended_total"))
}

func TestBanUser_TeacherMidCall(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	adminID := uuid.New()

	tch := &domain.User{UserID: uuid.New(), Role: domain.RoleTeacher, TutorStatus: domain.TutorBusy}
	call := &domain.Call{CallID: uuid.New(), StudentID: uuid.New(), TeacherID: tch.UserID, Status: domain.CallActive}

	f.users.On("GetByID", ctx, tch.UserID).Return(tch, nil)
	f.users.On("Ban", ctx, tch.UserID, "spam").Return(nil)
	f.calls.On("FindActiveByTeacher", ctx, tch.UserID).Return(call, nil)
	f.calls.On("DropCall", ctx, call.CallID, tch.UserID).Return(true, nil)
	f.mirror.On("SetUnavailable", ctx, tch.UserID).Return(nil)

	err := f.svc.BanUser(ctx, adminID, tch.UserID, "spam")

	assert.NoError(t, err)
	f.calls.AssertExpectations(t)
	f.mirror.AssertExpectations(t)
}

func TestBanUser_SelfBanRejected(t *testing.T) {
	f := newFixture()
	adminID := uuid.New()

	err := f.svc.BanUser(context.Background(), adminID, adminID, "oops")

	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
	f.users.AssertNotCalled(t, "Ban", mock.Anything, mock.Anything, mock.Anything)
}

func TestBanUser_AdminTargetRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	other := &domain.User{UserID: uuid.New(), Role: domain.RoleAdmin}
	f.users.On("GetByID", ctx, other.UserID).Return(other, nil)

	err := f.svc.BanUser(ctx, uuid.New(), other.UserID, "power struggle")

	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeForbidden, appErr.Code)
}

func TestBanUser_AlreadyBanned(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	banned := &domain.User{UserID: uuid.New(), Role: domain.RoleStudent, Banned: true}
	f.users.On("GetByID", ctx, banned.UserID).Return(banned, nil)

	err := f.svc.BanUser(ctx, uuid.New(), banned.UserID, "again")

	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeConflict, appErr.Code)
}

func TestUnbanUser_NotBanned(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := &domain.User{UserID: uuid.New(), Role: domain.RoleStudent}
	f.users.On("GetByID", ctx, user.UserID).Return(user, nil)

	err := f.svc.UnbanUser(ctx, uuid.New(), user.UserID)

	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeConflict, appErr.Code)
}

func TestRecentActivity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.admins.On("ListRecentUsers", ctx, recentActivityLimit).
		Return([]*domain.User{{UserID: uuid.New(), Role: domain.RoleStudent}}, nil)
	f.calls.On("ListRecent", ctx, recentActivityLimit).
		Return([]*domain.Call{{CallID: uuid.New(), Status: domain.CallEnded}}, nil)

	activity, err := f.svc.RecentActivity(ctx)

	assert.NoError(t, err)
	assert.Len(t, activity.RecentUsers, 1)
	assert.Len(t, activity.RecentCalls, 1)
}
