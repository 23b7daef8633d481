package memory

import (
	"context"
	"testing"
	"time"

	"examprep-engine/internal/domain"
)

func TestContentStoreCaches(t *testing.T) {
	loader := &countingLoader{
		ContentLoader: NewStaticContentLoader(map[string][]domain.QuestionSnapshot{
			"anatomy": sampleQuestions(),
		}),
	}
	store := NewContentStore(loader, time.Minute)

	if _, err := store.QuestionsByTopic(context.Background(), "anatomy"); err != nil {
		t.Fatalf("load topic: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := store.QuestionsByTopic(context.Background(), "anatomy"); err != nil {
		t.Fatalf("load topic 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestStaticLoaderUnknownTopic(t *testing.T) {
	loader := NewStaticContentLoader(nil)
	if _, err := loader.LoadQuestions(context.Background(), "missing"); err != domain.ErrTopicNotFound {
		t.Fatalf("expected ErrTopicNotFound, got %v", err)
	}
}

type countingLoader struct {
	ContentLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, topicID string) ([]domain.QuestionSnapshot, error) {
	l.calls++
	return l.ContentLoader.LoadQuestions(ctx, topicID)
}

func sampleQuestions() []domain.QuestionSnapshot {
	return []domain.QuestionSnapshot{
		{
			ID:       "q1",
			Category: "skeletal",
			Prompt:   "How many bones does the adult human body have?",
			Options: []domain.Option{
				{Label: domain.LabelA, Text: "196"},
				{Label: domain.LabelB, Text: "206"},
			},
			CorrectAnswer: domain.LabelB,
		},
	}
}
