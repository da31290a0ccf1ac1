package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
)

const subscriptionColumns = `subscription_id, user_id, plan_type, status, start_time, end_time,
	       payment_id, checkout_session_id, amount_cents, created_at, updated_at`

// SubscriptionRepository handles subscription data operations
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	sub := &domain.Subscription{}
	err := row.Scan(
		&sub.SubscriptionID,
		&sub.UserID,
		&sub.PlanType,
		&sub.Status,
		&sub.StartTime,
		&sub.EndTime,
		&sub.PaymentID,
		&sub.CheckoutSessionID,
		&sub.AmountCents,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Create inserts a new subscription
func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (subscription_id, user_id, plan_type, status, start_time,
		                           end_time, payment_id, checkout_session_id, amount_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`,
		sub.SubscriptionID,
		sub.UserID,
		sub.PlanType,
		sub.Status,
		sub.StartTime,
		sub.EndTime,
		sub.PaymentID,
		sub.CheckoutSessionID,
		sub.AmountCents,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// HasActive reports whether the user holds a currently-valid subscription
// (status active and end time in the future)
func (r *SubscriptionRepository) HasActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE user_id = $1 AND status = 'active' AND end_time > now()
		)
	`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active subscription: %w", err)
	}
	return exists, nil
}

// GetCurrent returns the user's currently-valid subscription, or nil
func (r *SubscriptionRepository) GetCurrent(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND status = 'active' AND end_time > now()
		ORDER BY end_time DESC
		LIMIT 1
	`, userID)
	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}
	return sub, nil
}

// GetByCheckoutSession returns the subscription created for a checkout
// session, or nil. Used to keep webhook processing idempotent under
// provider retries.
func (r *SubscriptionRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE checkout_session_id = $1
	`, sessionID)
	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription by session: %w", err)
	}
	return sub, nil
}

// ListByUser returns the user's subscriptions, newest first
func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Subscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ExpireLapsed flips active subscriptions whose end time has passed to
// expired; returns the number flipped
func (r *SubscriptionRepository) ExpireLapsed(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = 'expired', updated_at = now()
		WHERE status = 'active' AND end_time <= now()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}
