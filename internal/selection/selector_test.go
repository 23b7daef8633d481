package selection

import (
	"fmt"
	"math/rand"
	"testing"

	"examprep-engine/internal/domain"
)

func TestUnbalancedSampleSize(t *testing.T) {
	s := NewWithRand(rand.New(rand.NewSource(1)))
	pool := makePool("math", 20)

	ids := s.Select(pool, domain.SelectionPolicy{TargetCount: 5})
	if len(ids) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(ids))
	}
	assertUnique(t, ids)

	ids = s.Select(pool, domain.SelectionPolicy{TargetCount: 50})
	if len(ids) != 20 {
		t.Fatalf("expected draw capped at pool size 20, got %d", len(ids))
	}
	assertUnique(t, ids)
}

func TestEmptyPool(t *testing.T) {
	s := NewWithRand(rand.New(rand.NewSource(1)))
	if ids := s.Select(nil, domain.SelectionPolicy{TargetCount: 10}); len(ids) != 0 {
		t.Fatalf("expected empty selection, got %v", ids)
	}
	if ids := s.Select(makePool("math", 5), domain.SelectionPolicy{TargetCount: 0}); len(ids) != 0 {
		t.Fatalf("expected empty selection for zero target, got %v", ids)
	}
}

func TestBalancedEvenSplit(t *testing.T) {
	s := NewWithRand(rand.New(rand.NewSource(42)))
	pool := append(append(makePool("anatomy", 10), makePool("physiology", 10)...), makePool("pharma", 10)...)

	ids := s.Select(pool, domain.SelectionPolicy{TargetCount: 9, Balanced: true})
	if len(ids) != 9 {
		t.Fatalf("expected 9 questions, got %d", len(ids))
	}
	assertUnique(t, ids)
	counts := countByCategory(pool, ids)
	for _, category := range []string{"anatomy", "physiology", "pharma"} {
		if counts[category] != 3 {
			t.Fatalf("expected 3 questions from %s, got %d (%v)", category, counts[category], counts)
		}
	}
}

func TestBalancedRemainderGoesToOneCategory(t *testing.T) {
	s := NewWithRand(rand.New(rand.NewSource(42)))
	pool := append(append(makePool("anatomy", 10), makePool("physiology", 10)...), makePool("pharma", 10)...)

	ids := s.Select(pool, domain.SelectionPolicy{TargetCount: 10, Balanced: true})
	if len(ids) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(ids))
	}
	assertUnique(t, ids)

	counts := countByCategory(pool, ids)
	fours := 0
	for _, n := range counts {
		switch n {
		case 3:
		case 4:
			fours++
		default:
			t.Fatalf("expected per-category counts of 3 or 4, got %v", counts)
		}
	}
	if fours != 1 {
		t.Fatalf("expected exactly one category with the extra question, got %v", counts)
	}
}

func TestBalancedTopsUpFromExhaustedCategories(t *testing.T) {
	s := NewWithRand(rand.New(rand.NewSource(7)))
	// One category cannot meet its quota; the shortfall must come from the rest.
	pool := append(append(makePool("anatomy", 2), makePool("physiology", 10)...), makePool("pharma", 10)...)

	ids := s.Select(pool, domain.SelectionPolicy{TargetCount: 12, Balanced: true})
	if len(ids) != 12 {
		t.Fatalf("expected 12 questions, got %d", len(ids))
	}
	assertUnique(t, ids)
	counts := countByCategory(pool, ids)
	if counts["anatomy"] != 2 {
		t.Fatalf("expected all 2 anatomy questions used, got %d", counts["anatomy"])
	}
}

func TestBalancedTargetBeyondPool(t *testing.T) {
	s := NewWithRand(rand.New(rand.NewSource(9)))
	pool := append(makePool("anatomy", 3), makePool("pharma", 2)...)

	ids := s.Select(pool, domain.SelectionPolicy{TargetCount: 100, Balanced: true})
	if len(ids) != 5 {
		t.Fatalf("expected whole pool of 5, got %d", len(ids))
	}
	assertUnique(t, ids)
}

func makePool(category string, n int) []domain.QuestionRef {
	refs := make([]domain.QuestionRef, n)
	for i := 0; i < n; i++ {
		refs[i] = domain.QuestionRef{
			ID:            fmt.Sprintf("%s-%d", category, i),
			Category:      category,
			CorrectAnswer: domain.LabelA,
		}
	}
	return refs
}

func countByCategory(pool []domain.QuestionRef, ids []string) map[string]int {
	categories := make(map[string]string, len(pool))
	for _, q := range pool {
		categories[q.ID] = q.Category
	}
	counts := make(map[string]int)
	for _, id := range ids {
		counts[categories[id]]++
	}
	return counts
}

func assertUnique(t *testing.T, ids []string) {
	t.Helper()
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate question id %q in selection %v", id, ids)
		}
		seen[id] = struct{}{}
	}
}
