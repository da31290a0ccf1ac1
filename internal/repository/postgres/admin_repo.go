package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
)

// AdminRepository handles aggregate queries for the admin dashboard
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new AdminRepository
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// GetSystemStats retrieves platform-wide counters in a single round trip
func (r *AdminRepository) GetSystemStats(ctx context.Context) (*domain.SystemStats, error) {
	stats := &domain.SystemStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE role = 'student'),
			(SELECT COUNT(*) FROM users WHERE role = 'teacher'),
			(SELECT COUNT(*) FROM users WHERE role = 'teacher' AND tutor_status = 'available' AND banned = false),
			(SELECT COUNT(*) FROM users WHERE banned = true),
			(SELECT COUNT(*) FROM calls),
			(SELECT COUNT(*) FROM calls WHERE status = 'active'),
			(SELECT COUNT(*) FROM calls WHERE status = 'dropped'),
			(SELECT COUNT(*) FROM subscriptions WHERE status = 'active' AND end_time > now()),
			(SELECT COALESCE(SUM(amount_cents), 0) FROM subscriptions)
	`).Scan(
		&stats.TotalUsers,
		&stats.TotalStudents,
		&stats.TotalTeachers,
		&stats.AvailableTutors,
		&stats.BannedUsers,
		&stats.TotalCalls,
		&stats.ActiveCalls,
		&stats.DroppedCalls,
		&stats.ActiveSubscriptions,
		&stats.RevenueCents,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get system stats: %w", err)
	}
	return stats, nil
}

// ListUsers returns users matching the filter, newest first, plus the total
// count for pagination
func (r *AdminRepository) ListUsers(ctx context.Context, filter *domain.UserListFilter, limit, offset int) ([]*domain.User, int64, error) {
	where := `TRUE`
	args := []interface{}{}

	if filter.Role != "" {
		args = append(args, filter.Role)
		where += fmt.Sprintf(` AND role = $%d`, len(args))
	}
	if filter.Banned != nil {
		args = append(args, *filter.Banned)
		where += fmt.Sprintf(` AND banned = $%d`, len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)`, n, n, n)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

// ListRecentUsers returns the most recent signups
func (r *AdminRepository) ListRecentUsers(ctx context.Context, limit int) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
