package domain

// SystemStats holds platform-wide counters for the admin dashboard
type SystemStats struct {
	TotalUsers          int64 `json:"total_users"`
	TotalStudents       int64 `json:"total_students"`
	TotalTeachers       int64 `json:"total_teachers"`
	AvailableTutors     int64 `json:"available_tutors"`
	BannedUsers         int64 `json:"banned_users"`
	TotalCalls          int64 `json:"total_calls"`
	ActiveCalls         int64 `json:"active_calls"`
	DroppedCalls        int64 `json:"dropped_calls"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	RevenueCents        int64 `json:"revenue_cents"`
}

// RecentActivity holds the latest signups and calls for the admin dashboard
type RecentActivity struct {
	RecentUsers []*UserResponse `json:"recent_users"`
	RecentCalls []*CallResponse `json:"recent_calls"`
}

// UserListFilter narrows the admin user listing
type UserListFilter struct {
	Role   string // student, teacher, admin, or empty for all
	Banned *bool  // nil for all
	Search string // matches first or last name, or email
}
