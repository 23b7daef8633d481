package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"examprep-engine/internal/domain"
)

// ContentLoader fetches question snapshots from a backing store.
type ContentLoader interface {
	LoadQuestions(ctx context.Context, topicID string) ([]domain.QuestionSnapshot, error)
}

// ContentStore caches per-topic question sets with TTL to avoid repeated
// backing-store hits while attempts are being started.
type ContentStore struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedTopic
}

type cachedTopic struct {
	questions []domain.QuestionSnapshot
	expiresAt time.Time
}

func NewContentStore(loader ContentLoader, ttl time.Duration) *ContentStore {
	return &ContentStore{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTopic),
	}
}

func (s *ContentStore) QuestionsByTopic(ctx context.Context, topicID string) ([]domain.QuestionSnapshot, error) {
	now := s.clock()

	s.mu.RLock()
	if entry, ok := s.cache[topicID]; ok && entry.expiresAt.After(now) {
		s.mu.RUnlock()
		return entry.questions, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do(topicID, func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if entry, ok := s.cache[topicID]; ok && entry.expiresAt.After(now) {
			s.mu.RUnlock()
			return entry.questions, nil
		}
		s.mu.RUnlock()

		questions, err := s.loader.LoadQuestions(ctx, topicID)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cache[topicID] = cachedTopic{
			questions: questions,
			expiresAt: now.Add(s.ttlWithJitter()),
		}
		s.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionSnapshot), nil
}

func (s *ContentStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

// StaticContentLoader is a loader backed by an in-memory map (useful for
// tests and demo mode).
type StaticContentLoader struct {
	topics map[string][]domain.QuestionSnapshot
}

func NewStaticContentLoader(topics map[string][]domain.QuestionSnapshot) *StaticContentLoader {
	return &StaticContentLoader{topics: topics}
}

func (l *StaticContentLoader) LoadQuestions(_ context.Context, topicID string) ([]domain.QuestionSnapshot, error) {
	if questions, ok := l.topics[topicID]; ok {
		return questions, nil
	}
	return nil, domain.ErrTopicNotFound
}
