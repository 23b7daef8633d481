package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"examprep-engine/internal/app"
	"examprep-engine/internal/domain"
)

// AttemptRepository decorates another attempt repository with Redis
// liveness markers for in-progress attempts. Notes:
//   - Attempt state itself stays in the wrapped repository; Redis only
//     tracks which attempts are live (useful for dashboards and for
//     sweeping stale attempts to abandoned).
//   - For true distribution you'd move the state into the backing store and
//     keep these keys as an index.
type AttemptRepository struct {
	inner  app.AttemptRepository
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptRepository(inner app.AttemptRepository, client *redis.Client, ttl time.Duration) *AttemptRepository {
	return &AttemptRepository{inner: inner, client: client, ttl: ttl}
}

func (r *AttemptRepository) GetOrCreate(ctx context.Context, att *domain.Attempt) (*domain.Attempt, bool, error) {
	stored, created, err := r.inner.GetOrCreate(ctx, att)
	if err != nil {
		return nil, false, err
	}
	if created {
		// best-effort liveness marker
		_ = r.client.Set(ctx, r.key(stored.ID), stored.OwnerID, r.ttl).Err()
	}
	return stored, created, nil
}

func (r *AttemptRepository) Get(ctx context.Context, id string) (*domain.Attempt, error) {
	return r.inner.Get(ctx, id)
}

func (r *AttemptRepository) Update(ctx context.Context, id string, fn func(att *domain.Attempt) error) error {
	var terminal bool
	err := r.inner.Update(ctx, id, func(att *domain.Attempt) error {
		if err := fn(att); err != nil {
			return err
		}
		terminal = att.Status.Terminal()
		return nil
	})
	if err != nil {
		return err
	}
	if terminal {
		_ = r.client.Del(ctx, r.key(id)).Err()
	} else {
		// refresh the marker while the attempt is still being played
		_ = r.client.Expire(ctx, r.key(id), r.ttl).Err()
	}
	return nil
}

func (r *AttemptRepository) key(id string) string {
	return "attempt:live:" + id
}
