package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const availableSetKey = "tutors:available"

// AvailabilityRepository mirrors teacher availability in a Redis set.
// Postgres stays the source of truth; the mirror is best-effort, rebuilt
// as teachers toggle status, and read for cheap dashboard counts.
type AvailabilityRepository struct {
	client *redis.Client
}

// NewAvailabilityRepository creates a new AvailabilityRepository
func NewAvailabilityRepository(client *redis.Client) *AvailabilityRepository {
	return &AvailabilityRepository{client: client}
}

// SetAvailable marks a teacher available in the mirror
func (r *AvailabilityRepository) SetAvailable(ctx context.Context, teacherID uuid.UUID) error {
	if err := r.client.SAdd(ctx, availableSetKey, teacherID.String()).Err(); err != nil {
		return fmt.Errorf("failed to add to available set: %w", err)
	}
	return nil
}

// SetUnavailable removes a teacher from the available mirror (busy or offline)
func (r *AvailabilityRepository) SetUnavailable(ctx context.Context, teacherID uuid.UUID) error {
	if err := r.client.SRem(ctx, availableSetKey, teacherID.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove from available set: %w", err)
	}
	return nil
}

// AvailableCount returns the number of teachers in the available mirror
func (r *AvailabilityRepository) AvailableCount(ctx context.Context) (int64, error) {
	count, err := r.client.SCard(ctx, availableSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count available tutors: %w", err)
	}
	return count, nil
}
