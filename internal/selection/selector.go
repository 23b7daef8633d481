package selection

import (
	"math/rand"
	"sort"
	"time"

	"examprep-engine/internal/domain"
)

// Selector draws question IDs from a pool according to a SelectionPolicy.
// Draws are random by design; which categories receive the remainder slot in
// balanced mode is intentionally non-deterministic between calls.
type Selector struct {
	rnd *rand.Rand
}

// New returns a selector seeded from the wall clock.
func New() *Selector {
	return NewWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand allows deterministic draws in tests.
func NewWithRand(rnd *rand.Rand) *Selector {
	return &Selector{rnd: rnd}
}

// Select returns unique question IDs of length min(policy.TargetCount,
// len(pool)). In unbalanced mode the draw is a uniform sample without
// replacement. In balanced mode the target is split evenly across the
// non-empty categories, the remainder slots go to randomly chosen
// categories, and any shortfall (categories with too few questions) is
// topped up at random from the unselected rest of the pool.
func (s *Selector) Select(pool []domain.QuestionRef, policy domain.SelectionPolicy) []string {
	target := policy.TargetCount
	if target > len(pool) {
		target = len(pool)
	}
	if target <= 0 {
		return nil
	}
	if !policy.Balanced {
		return s.sample(pool, target)
	}
	return s.selectBalanced(pool, target)
}

func (s *Selector) selectBalanced(pool []domain.QuestionRef, target int) []string {
	byCategory := make(map[string][]domain.QuestionRef)
	for _, q := range pool {
		byCategory[q.Category] = append(byCategory[q.Category], q)
	}
	k := len(byCategory)
	if k == 0 {
		return s.sample(pool, target)
	}

	// Sorted keys before shuffling keeps the remainder assignment random
	// but independent of map iteration order.
	categories := make([]string, 0, k)
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	s.rnd.Shuffle(len(categories), func(i, j int) {
		categories[i], categories[j] = categories[j], categories[i]
	})

	base := target / k
	remainder := target % k

	selected := make([]string, 0, target)
	taken := make(map[string]struct{}, target)
	for i, category := range categories {
		quota := base
		if i < remainder {
			quota++
		}
		for _, id := range s.sample(byCategory[category], quota) {
			selected = append(selected, id)
			taken[id] = struct{}{}
		}
	}

	// Exhausted categories leave a shortfall; fill it from whatever remains.
	if len(selected) < target {
		rest := make([]domain.QuestionRef, 0, len(pool)-len(selected))
		for _, q := range pool {
			if _, ok := taken[q.ID]; !ok {
				rest = append(rest, q)
			}
		}
		selected = append(selected, s.sample(rest, target-len(selected))...)
	}
	return selected
}

// sample draws up to n IDs uniformly without replacement.
func (s *Selector) sample(pool []domain.QuestionRef, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}
	shuffled := make([]domain.QuestionRef, len(pool))
	copy(shuffled, pool)
	s.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = shuffled[i].ID
	}
	return ids
}
