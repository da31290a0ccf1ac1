package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies what kind of account a user has
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// TutorStatus is a teacher's availability tri-state. It is meaningful only
// for users with RoleTeacher; the call coordinator is its only normal-path
// writer, and a ban forces it to offline out-of-band.
type TutorStatus string

const (
	TutorOffline   TutorStatus = "offline"
	TutorAvailable TutorStatus = "available"
	TutorBusy      TutorStatus = "busy"
)

// User represents a user account
type User struct {
	UserID            uuid.UUID   `json:"user_id"`
	Email             string      `json:"email"`
	PasswordHash      string      `json:"-"`
	FirstName         string      `json:"first_name"`
	LastName          string      `json:"last_name"`
	Role              Role        `json:"role"`
	Verified          bool        `json:"verified"`
	TutorStatus       TutorStatus `json:"tutor_status"`
	Address           *string     `json:"address,omitempty"`
	ProfilePicURL     *string     `json:"profile_pic_url,omitempty"`
	Provider          *string     `json:"provider,omitempty"`
	ProviderUID       *string     `json:"-"`
	VerificationToken *string     `json:"-"`
	TokenSentAt       *time.Time  `json:"-"`
	RefreshToken      *string     `json:"-"`
	Banned            bool        `json:"banned"`
	BannedAt          *time.Time  `json:"banned_at,omitempty"`
	BanReason         *string     `json:"ban_reason,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// FullName returns the user's display name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsStudent reports whether the user has the student role
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// IsTeacher reports whether the user has the teacher role
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserResponse is the safe user representation returned to clients
type UserResponse struct {
	UserID        uuid.UUID   `json:"user_id"`
	Email         string      `json:"email"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	FullName      string      `json:"full_name"`
	Role          Role        `json:"role"`
	Verified      bool        `json:"verified"`
	TutorStatus   TutorStatus `json:"tutor_status,omitempty"`
	Address       *string     `json:"address,omitempty"`
	ProfilePicURL *string     `json:"profile_pic_url,omitempty"`
	Banned        bool        `json:"banned"`
	CreatedAt     time.Time   `json:"created_at"`
}

// ToResponse converts User to UserResponse (removes sensitive data)
func (u *User) ToResponse() *UserResponse {
	resp := &UserResponse{
		UserID:        u.UserID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		FullName:      u.FullName(),
		Role:          u.Role,
		Verified:      u.Verified,
		Address:       u.Address,
		ProfilePicURL: u.ProfilePicURL,
		Banned:        u.Banned,
		CreatedAt:     u.CreatedAt,
	}
	if u.IsTeacher() {
		resp.TutorStatus = u.TutorStatus
	}
	return resp
}

// ParticipantInfo is the compact participant representation embedded in
// call responses
type ParticipantInfo struct {
	UserID        uuid.UUID `json:"user_id"`
	Name          string    `json:"name"`
	ProfilePicURL *string   `json:"profile_pic_url,omitempty"`
}

// ToParticipantInfo converts a user to its call-participant form
func (u *User) ToParticipantInfo() *ParticipantInfo {
	return &ParticipantInfo{
		UserID:        u.UserID,
		Name:          u.FullName(),
		ProfilePicURL: u.ProfilePicURL,
	}
}
