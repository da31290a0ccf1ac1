package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	apperrors "github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/errors"
)

const userColumns = `user_id, email, password_hash, first_name, last_name, role, verified,
	       tutor_status, address, profile_pic_url, provider, provider_uid,
	       verification_token, token_sent_at, refresh_token, banned, banned_at,
	       ban_reason, created_at, updated_at`

// UserRepository handles user data operations
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.UserID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Verified,
		&user.TutorStatus,
		&user.Address,
		&user.ProfilePicURL,
		&user.Provider,
		&user.ProviderUID,
		&user.VerificationToken,
		&user.TokenSentAt,
		&user.RefreshToken,
		&user.Banned,
		&user.BannedAt,
		&user.BanReason,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, email, password_hash, first_name, last_name, role,
		                   verified, tutor_status, provider, provider_uid,
		                   verification_token, token_sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`,
		user.UserID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Verified,
		user.TutorStatus,
		user.Provider,
		user.ProviderUID,
		user.VerificationToken,
		user.TokenSentAt,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.EmailExistsError()
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.UserNotFoundError()
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email (case-insensitive)
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.UserNotFoundError()
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetByVerificationToken retrieves a user by their email verification token
func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.UserNotFoundError()
		}
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return user, nil
}

// UpdateProfile updates mutable profile fields
func (r *UserRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, address = $4, profile_pic_url = $5, updated_at = now()
		WHERE user_id = $1
	`, user.UserID, user.FirstName, user.LastName, user.Address, user.ProfilePicURL)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// MarkVerified marks the user's email as verified and clears the token
func (r *UserRepository) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET verified = true, verification_token = NULL, token_sent_at = NULL, updated_at = now()
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return nil
}

// LinkSocialIdentity records the OAuth identity a login arrived through.
// The provider vouched for the address, so the account is also verified.
func (r *UserRepository) LinkSocialIdentity(ctx context.Context, userID uuid.UUID, provider, uid string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET provider = $2, provider_uid = $3, verified = true,
		    verification_token = NULL, token_sent_at = NULL, updated_at = now()
		WHERE user_id = $1
	`, userID, provider, uid)
	if err != nil {
		return fmt.Errorf("failed to link social identity: %w", err)
	}
	return nil
}

// SetVerificationToken stores a fresh verification token
func (r *UserRepository) SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, sentAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET verification_token = $2, token_sent_at = $3, updated_at = now()
		WHERE user_id = $1
	`, userID, token, sentAt)
	if err != nil {
		return fmt.Errorf("failed to set verification token: %w", err)
	}
	return nil
}

// SetRefreshToken stores (or clears, with nil) the user's refresh token
func (r *UserRepository) SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET refresh_token = $2, updated_at = now() WHERE user_id = $1
	`, userID, token)
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	return nil
}

// SetTutorStatus transitions a teacher's availability only if it currently
// matches the expected state; returns false when the transition lost a race
func (r *UserRepository) SetTutorStatus(ctx context.Context, userID uuid.UUID, from, to domain.TutorStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET tutor_status = $3, updated_at = now()
		WHERE user_id = $1 AND role = 'teacher' AND tutor_status = $2 AND banned = false
	`, userID, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to set tutor status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListTeachers returns teachers filtered by availability and a name or
// email search, ordered by first name, plus the total count for pagination
func (r *UserRepository) ListTeachers(ctx context.Context, availableOnly bool, search string, limit, offset int) ([]*domain.User, int64, error) {
	where := `role = 'teacher' AND banned = false`
	args := []interface{}{}
	if availableOnly {
		where += ` AND tutor_status = 'available'`
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)`,
			len(args), len(args), len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count teachers: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY first_name LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teachers: %w", err)
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

// Ban marks a user banned and forces their presence offline
func (r *UserRepository) Ban(ctx context.Context, userID uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET banned = true, banned_at = now(), ban_reason = $2,
		    tutor_status = 'offline', refresh_token = NULL, updated_at = now()
		WHERE user_id = $1
	`, userID, reason)
	if err != nil {
		return fmt.Errorf("failed to ban user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.UserNotFoundError()
	}
	return nil
}

// Unban clears the ban; presence stays offline until the teacher toggles it
func (r *UserRepository) Unban(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET banned = false, banned_at = NULL, ban_reason = NULL, updated_at = now()
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to unban user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.UserNotFoundError()
	}
	return nil
}
