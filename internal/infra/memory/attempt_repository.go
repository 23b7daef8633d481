package memory

import (
	"context"
	"sync"

	"examprep-engine/internal/domain"
)

// AttemptRepository is an in-memory implementation of app.AttemptRepository.
// Each attempt carries its own mutex so Update serializes per attempt the
// way a row-level lock would, without stalling unrelated attempts.
type AttemptRepository struct {
	mu         sync.RWMutex
	attempts   map[string]*attemptEntry
	inProgress map[ownerTopic]string
}

type attemptEntry struct {
	mu  sync.Mutex
	att *domain.Attempt
}

type ownerTopic struct {
	owner string
	topic string
}

func NewAttemptRepository() *AttemptRepository {
	return &AttemptRepository{
		attempts:   make(map[string]*attemptEntry),
		inProgress: make(map[ownerTopic]string),
	}
}

// GetOrCreate stores att unless the owner already has an in-progress
// attempt for the topic. The existence check and the insert happen under
// one lock, so two concurrent starts cannot both create.
func (r *AttemptRepository) GetOrCreate(_ context.Context, att *domain.Attempt) (*domain.Attempt, bool, error) {
	key := ownerTopic{owner: att.OwnerID, topic: att.TopicID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.inProgress[key]; ok {
		if entry, ok := r.attempts[id]; ok {
			entry.mu.Lock()
			// The index can briefly hold an attempt that just went
			// terminal; treat it as absent and start fresh.
			if !entry.att.Status.Terminal() {
				existing := entry.att.Clone()
				entry.mu.Unlock()
				return existing, false, nil
			}
			entry.mu.Unlock()
		}
	}
	r.attempts[att.ID] = &attemptEntry{att: att.Clone()}
	r.inProgress[key] = att.ID
	return att.Clone(), true, nil
}

func (r *AttemptRepository) Get(_ context.Context, id string) (*domain.Attempt, error) {
	r.mu.RLock()
	entry, ok := r.attempts[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.att.Clone(), nil
}

// Update applies fn under the attempt's lock. fn runs against a copy; the
// copy only replaces the stored attempt when fn succeeds, so a rejected
// submission leaves the stored counters untouched.
func (r *AttemptRepository) Update(_ context.Context, id string, fn func(att *domain.Attempt) error) error {
	r.mu.RLock()
	entry, ok := r.attempts[id]
	r.mu.RUnlock()
	if !ok {
		return domain.ErrAttemptNotFound
	}

	entry.mu.Lock()
	working := entry.att.Clone()
	if err := fn(working); err != nil {
		entry.mu.Unlock()
		return err
	}
	wasInProgress := !entry.att.Status.Terminal()
	entry.att = working
	nowTerminal := working.Status.Terminal()
	key := ownerTopic{owner: working.OwnerID, topic: working.TopicID}
	// Released before touching the index; GetOrCreate nests r.mu over
	// entry.mu, so nesting them the other way here would deadlock.
	entry.mu.Unlock()

	if wasInProgress && nowTerminal {
		r.mu.Lock()
		if r.inProgress[key] == id {
			delete(r.inProgress, key)
		}
		r.mu.Unlock()
	}
	return nil
}
