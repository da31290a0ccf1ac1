package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallStatus is the lifecycle state of a call. Ended and dropped are
// terminal; a call row is never deleted.
type CallStatus string

const (
	CallActive  CallStatus = "active"
	CallEnded   CallStatus = "ended"
	CallDropped CallStatus = "dropped"
)

// HeartbeatTimeout is how long a call may go without a heartbeat before it
// is considered stale and eligible for dropping.
const HeartbeatTimeout = 60 * time.Second

// Call represents a 1:1 video call between a student and a teacher.
// Participants are fixed at creation and never reassigned.
type Call struct {
	CallID        uuid.UUID  `json:"call_id"`
	StudentID     uuid.UUID  `json:"student_id"`
	TeacherID     uuid.UUID  `json:"teacher_id"`
	RoomID        string     `json:"room_id"`
	Status        CallStatus `json:"status"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsActive reports whether the call is still in progress
func (c *Call) IsActive() bool {
	return c.Status == CallActive
}

// IsParticipant reports whether the user is the student or the teacher of
// this call
func (c *Call) IsParticipant(userID uuid.UUID) bool {
	return c.StudentID == userID || c.TeacherID == userID
}

// Stale reports whether the last heartbeat is older than the given timeout
func (c *Call) Stale(timeout time.Duration, now time.Time) bool {
	return c.LastHeartbeat != nil && c.LastHeartbeat.Before(now.Add(-timeout))
}

// DurationSeconds returns the call duration in whole seconds: 0 if never
// started, time until EndedAt if finished, time until now while in progress.
func (c *Call) DurationSeconds() int64 {
	if c.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if c.EndedAt != nil {
		end = *c.EndedAt
	}
	d := end.Sub(*c.StartedAt)
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}

// CallResponse is the call representation returned to clients
type CallResponse struct {
	CallID        uuid.UUID        `json:"call_id"`
	RoomID        string           `json:"room_id"`
	Status        CallStatus       `json:"status"`
	Student       *ParticipantInfo `json:"student,omitempty"`
	Teacher       *ParticipantInfo `json:"teacher,omitempty"`
	StartedAt     *time.Time       `json:"started_at,omitempty"`
	EndedAt       *time.Time       `json:"ended_at,omitempty"`
	LastHeartbeat *time.Time       `json:"last_heartbeat,omitempty"`
	Duration      int64            `json:"duration"`
}

// ToResponse converts a call to its client representation; participant info
// is optional and filled by the handler when it has the users loaded
func (c *Call) ToResponse(student, teacher *ParticipantInfo) *CallResponse {
	return &CallResponse{
		CallID:        c.CallID,
		RoomID:        c.RoomID,
		Status:        c.Status,
		Student:       student,
		Teacher:       teacher,
		StartedAt:     c.StartedAt,
		EndedAt:       c.EndedAt,
		LastHeartbeat: c.LastHeartbeat,
		Duration:      c.DurationSeconds(),
	}
}

// VideoRoomInfo tells a client how to join the external video room for a
// call. How the opaque room ID becomes a joinable room is a deployment
// concern; this is plain URL templating.
type VideoRoomInfo struct {
	RoomURL  string `json:"room_url"`
	RoomName string `json:"room_name"`
	Domain   string `json:"domain"`
	UserName string `json:"user_name"`
}
