package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"examprep-engine/internal/domain"
)

func TestGetOrCreateReturnsExistingInProgress(t *testing.T) {
	repo := NewAttemptRepository()

	first, created, err := repo.GetOrCreate(context.Background(), newAttempt("a1", "u1", "anatomy"))
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}

	second, created, err := repo.GetOrCreate(context.Background(), newAttempt("a2", "u1", "anatomy"))
	if err != nil {
		t.Fatalf("second get-or-create: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected the existing attempt back, got created=%v id=%s", created, second.ID)
	}

	// A different topic gets its own attempt.
	_, created, err = repo.GetOrCreate(context.Background(), newAttempt("a3", "u1", "pharma"))
	if err != nil || !created {
		t.Fatalf("expected a separate attempt per topic, got created=%v err=%v", created, err)
	}
}

func TestTerminalAttemptFreesTheSlot(t *testing.T) {
	repo := NewAttemptRepository()
	if _, _, err := repo.GetOrCreate(context.Background(), newAttempt("a1", "u1", "anatomy")); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := repo.Update(context.Background(), "a1", func(att *domain.Attempt) error {
		att.Status = domain.StatusCompleted
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	_, created, err := repo.GetOrCreate(context.Background(), newAttempt("a2", "u1", "anatomy"))
	if err != nil || !created {
		t.Fatalf("expected a fresh attempt after completion, got created=%v err=%v", created, err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	repo := NewAttemptRepository()
	if _, _, err := repo.GetOrCreate(context.Background(), newAttempt("a1", "u1", "anatomy")); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("rejected")
	err := repo.Update(context.Background(), "a1", func(att *domain.Attempt) error {
		att.PointsEarned = 999
		att.CurrentIndex = 5
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error surfaced, got %v", err)
	}

	att, err := repo.Get(context.Background(), "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if att.PointsEarned != 0 || att.CurrentIndex != 0 {
		t.Fatalf("expected mutation discarded, got %+v", att)
	}
}

func TestUpdateSerializesPerAttempt(t *testing.T) {
	repo := NewAttemptRepository()
	if _, _, err := repo.GetOrCreate(context.Background(), newAttempt("a1", "u1", "anatomy")); err != nil {
		t.Fatalf("create: %v", err)
	}

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_ = repo.Update(context.Background(), "a1", func(att *domain.Attempt) error {
				att.PointsEarned++
				return nil
			})
		}()
	}
	wg.Wait()

	att, err := repo.Get(context.Background(), "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if att.PointsEarned != writers {
		t.Fatalf("lost updates: expected %d, got %d", writers, att.PointsEarned)
	}
}

func TestGetUnknownAttempt(t *testing.T) {
	repo := NewAttemptRepository()
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
	if err := repo.Update(context.Background(), "nope", func(*domain.Attempt) error { return nil }); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
}

func newAttempt(id, owner, topic string) *domain.Attempt {
	return &domain.Attempt{
		ID:             id,
		OwnerID:        owner,
		TopicID:        topic,
		Questions:      sampleQuestions(),
		LivesRemaining: 3,
		Status:         domain.StatusInProgress,
		Answers:        make(map[string]domain.AnswerRecord),
	}
}
