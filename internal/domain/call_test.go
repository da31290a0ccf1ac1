package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCall_DurationSeconds_Completed(t *testing.T) {
	started := time.Now().Add(-10 * time.Minute)
	ended := started.Add(125 * time.Second)

	call := &Call{StartedAt: &started, EndedAt: &ended, Status: CallEnded}

	assert.Equal(t, int64(125), call.DurationSeconds())
}

func TestCall_DurationSeconds_InProgress(t *testing.T) {
	started := time.Now().Add(-40 * time.Second)

	call := &Call{StartedAt: &started, Status: CallActive}

	d := call.DurationSeconds()
	assert.GreaterOrEqual(t, d, int64(40))
	assert.LessOrEqual(t, d, int64(41))
}

func TestCall_DurationSeconds_NeverStarted(t *testing.T) {
	call := &Call{Status: CallActive}

	assert.Equal(t, int64(0), call.DurationSeconds())
}

func TestCall_IsParticipant(t *testing.T) {
	student := uuid.New()
	teacher := uuid.New()
	call := &Call{StudentID: student, TeacherID: teacher}

	assert.True(t, call.IsParticipant(student))
	assert.True(t, call.IsParticipant(teacher))
	assert.False(t, call.IsParticipant(uuid.New()))
}

func TestCall_Stale(t *testing.T) {
	now := time.Now()

	fresh := now.Add(-10 * time.Second)
	old := now.Add(-61 * time.Second)

	assert.False(t, (&Call{LastHeartbeat: &fresh}).Stale(HeartbeatTimeout, now))
	assert.True(t, (&Call{LastHeartbeat: &old}).Stale(HeartbeatTimeout, now))
	assert.False(t, (&Call{}).Stale(HeartbeatTimeout, now))
}

func TestSubscription_CurrentlyActive(t *testing.T) {
	now := time.Now()

	current := &Subscription{Status: SubscriptionActive, EndTime: now.Add(time.Hour)}
	lapsed := &Subscription{Status: SubscriptionActive, EndTime: now.Add(-time.Minute)}
	flipped := &Subscription{Status: SubscriptionExpired, EndTime: now.Add(time.Hour)}

	assert.True(t, current.CurrentlyActive(now))
	assert.False(t, lapsed.CurrentlyActive(now))
	assert.False(t, flipped.CurrentlyActive(now))
	assert.Equal(t, int64(0), lapsed.TimeRemaining(now))
	assert.Equal(t, int64(3600), current.TimeRemaining(now))
}
