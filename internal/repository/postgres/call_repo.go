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

// Partial unique indexes backing the one-active-call-per-user invariant
// (see scripts/schema.sql)
const (
	activeStudentConstraint = "idx_calls_one_active_student"
	activeTeacherConstraint = "idx_calls_one_active_teacher"
)

const callColumns = `call_id, student_id, teacher_id, room_id, status,
	       started_at, ended_at, last_heartbeat, created_at, updated_at`

// CallRepository handles call data operations. All state transitions are
// conditional updates keyed on the current status so that concurrent
// start/end/heartbeat/sweep for the same call or teacher serialize through
// the database instead of a process-wide lock.
type CallRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository creates a new call repository
func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

func scanCall(row pgx.Row) (*domain.Call, error) {
	call := &domain.Call{}
	err := row.Scan(
		&call.CallID,
		&call.StudentID,
		&call.TeacherID,
		&call.RoomID,
		&call.Status,
		&call.StartedAt,
		&call.EndedAt,
		&call.LastHeartbeat,
		&call.CreatedAt,
		&call.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return call, nil
}

// StartCall atomically marks the teacher busy and creates the call record.
// Either both changes commit or neither does. Lost races surface as
// TeacherUnavailable (teacher no longer available) or as one of the
// already-in-call errors (partial unique index violation).
func (r *CallRepository) StartCall(ctx context.Context, call *domain.Call) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET tutor_status = 'busy', updated_at = now()
		WHERE user_id = $1
		  AND role = 'teacher'
		  AND tutor_status = 'available'
		  AND banned = false
	`, call.TeacherID)
	if err != nil {
		return fmt.Errorf("failed to mark teacher busy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Teacher went offline, busy, or banned since the precondition read
		return apperrors.TeacherUnavailableError()
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO calls (call_id, student_id, teacher_id, room_id, status, started_at, last_heartbeat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`,
		call.CallID,
		call.StudentID,
		call.TeacherID,
		call.RoomID,
		call.Status,
		call.StartedAt,
		call.LastHeartbeat,
	).Scan(&call.CreatedAt, &call.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case activeStudentConstraint:
				return apperrors.StudentAlreadyInCallError()
			case activeTeacherConstraint:
				return apperrors.TeacherAlreadyInCallError()
			}
		}
		return fmt.Errorf("failed to create call: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit start call: %w", err)
	}
	return nil
}

// EndCall atomically transitions an active call to ended and frees the
// teacher. A call already ended or dropped by a concurrent transition
// surfaces as CallNotActive.
func (r *CallRepository) EndCall(ctx context.Context, call *domain.Call) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var endedAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE calls
		SET status = 'ended', ended_at = now(), updated_at = now()
		WHERE call_id = $1 AND status = 'active'
		RETURNING ended_at
	`, call.CallID).Scan(&endedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.CallNotActiveError()
		}
		return fmt.Errorf("failed to end call: %w", err)
	}

	// Free the teacher only if still busy; a ban may have forced them
	// offline mid-call and must not be undone here
	_, err = tx.Exec(ctx, `
		UPDATE users
		SET tutor_status = 'available', updated_at = now()
		WHERE user_id = $1 AND tutor_status = 'busy'
	`, call.TeacherID)
	if err != nil {
		return fmt.Errorf("failed to free teacher: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit end call: %w", err)
	}

	call.Status = domain.CallEnded
	call.EndedAt = &endedAt
	return nil
}

// DropCall transitions an active call to dropped, freeing the teacher if
// still busy. Returns false without error when the call was already
// transitioned by a concurrent EndCall; the reaper treats that as a no-op.
func (r *CallRepository) DropCall(ctx context.Context, callID, teacherID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE calls
		SET status = 'dropped', ended_at = now(), updated_at = now()
		WHERE call_id = $1 AND status = 'active'
	`, callID)
	if err != nil {
		return false, fmt.Errorf("failed to drop call: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET tutor_status = 'available', updated_at = now()
		WHERE user_id = $1 AND tutor_status = 'busy'
	`, teacherID)
	if err != nil {
		return false, fmt.Errorf("failed to free teacher: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit drop call: %w", err)
	}
	return true, nil
}

// UpdateHeartbeat touches the last-heartbeat timestamp of an active call.
// A heartbeat racing a concurrent end or drop surfaces as CallNotActive.
func (r *CallRepository) UpdateHeartbeat(ctx context.Context, callID uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calls
		SET last_heartbeat = $2, updated_at = now()
		WHERE call_id = $1 AND status = 'active'
	`, callID, at)
	if err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.CallNotActiveError()
	}
	return nil
}

// GetByID retrieves a call by ID
func (r *CallRepository) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE call_id = $1`, callID)
	call, err := scanCall(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.CallNotFoundError()
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}
	return call, nil
}

// FindActiveByStudent returns the student's active call, or nil if none
func (r *CallRepository) FindActiveByStudent(ctx context.Context, studentID uuid.UUID) (*domain.Call, error) {
	return r.findActive(ctx, "student_id", studentID)
}

// FindActiveByTeacher returns the teacher's active call, or nil if none
func (r *CallRepository) FindActiveByTeacher(ctx context.Context, teacherID uuid.UUID) (*domain.Call, error) {
	return r.findActive(ctx, "teacher_id", teacherID)
}

func (r *CallRepository) findActive(ctx context.Context, column string, userID uuid.UUID) (*domain.Call, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+callColumns+` FROM calls WHERE `+column+` = $1 AND status = 'active'`, userID)
	call, err := scanCall(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active call: %w", err)
	}
	return call, nil
}

// FindStale returns active calls whose last heartbeat is older than cutoff
func (r *CallRepository) FindStale(ctx context.Context, cutoff time.Time) ([]*domain.Call, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+callColumns+`
		FROM calls
		WHERE status = 'active' AND last_heartbeat < $1
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale calls: %w", err)
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

// ListCompleted returns non-active calls where the user participated in the
// given role, most recently finished first, plus the total count for
// pagination
func (r *CallRepository) ListCompleted(ctx context.Context, userID uuid.UUID, role domain.Role, limit, offset int) ([]*domain.Call, int64, error) {
	column := "student_id"
	if role == domain.RoleTeacher {
		column = "teacher_id"
	}

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM calls WHERE `+column+` = $1 AND status <> 'active'`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count call history: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+callColumns+`
		FROM calls
		WHERE `+column+` = $1 AND status <> 'active'
		ORDER BY ended_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list call history: %w", err)
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, call)
	}
	return calls, total, rows.Err()
}

// ListRecent returns the latest calls regardless of participant, for the
// admin dashboard
func (r *CallRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Call, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+callColumns+` FROM calls ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent calls: %w", err)
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

// CountActive returns the number of currently active calls
func (r *CallRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM calls WHERE status = 'active'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active calls: %w", err)
	}
	return count, nil
}
