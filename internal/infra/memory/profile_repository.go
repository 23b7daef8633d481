package memory

import (
	"context"
	"sync"

	"examprep-engine/internal/domain"
)

// ProfileRepository is an in-memory implementation of app.ProfileRepository.
type ProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]*domain.ProgressionProfile
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{profiles: make(map[string]*domain.ProgressionProfile)}
}

func (r *ProfileRepository) GetOrCreate(_ context.Context, userID string) (*domain.ProgressionProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(userID).Clone(), nil
}

func (r *ProfileRepository) Update(_ context.Context, userID string, fn func(p *domain.ProgressionProfile) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile := r.getOrCreateLocked(userID)
	working := profile.Clone()
	if err := fn(working); err != nil {
		return err
	}
	r.profiles[userID] = working
	return nil
}

func (r *ProfileRepository) getOrCreateLocked(userID string) *domain.ProgressionProfile {
	if profile, ok := r.profiles[userID]; ok {
		return profile
	}
	profile := domain.NewProgressionProfile(userID)
	r.profiles[userID] = profile
	return profile
}
