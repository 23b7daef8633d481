package memory

import (
	"context"
	"testing"

	"examprep-engine/internal/domain"
)

func TestProfileLazyCreation(t *testing.T) {
	repo := NewProfileRepository()

	profile, err := repo.GetOrCreate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if profile.CurrentLevel != 1 || profile.XPToNextLevel != domain.InitialXPToNextLevel {
		t.Fatalf("expected default profile, got %+v", profile)
	}

	err = repo.Update(context.Background(), "u1", func(p *domain.ProgressionProfile) error {
		p.AddXP(600)
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	profile, _ = repo.GetOrCreate(context.Background(), "u1")
	if profile.CurrentLevel != 2 || profile.XP != 100 {
		t.Fatalf("expected level 2 with 100 xp, got %+v", profile)
	}
}

func TestProfileUpdateCreatesWhenAbsent(t *testing.T) {
	repo := NewProfileRepository()
	err := repo.Update(context.Background(), "fresh", func(p *domain.ProgressionProfile) error {
		p.AddXP(10)
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	profile, _ := repo.GetOrCreate(context.Background(), "fresh")
	if profile.TotalPoints != 10 {
		t.Fatalf("expected 10 points, got %+v", profile)
	}
}
