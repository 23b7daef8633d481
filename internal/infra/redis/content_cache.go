package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"examprep-engine/internal/domain"
)

// ContentLoader fetches question snapshots from a backing store.
type ContentLoader interface {
	LoadQuestions(ctx context.Context, topicID string) ([]domain.QuestionSnapshot, error)
}

// ContentStore caches per-topic question snapshots in Redis and falls back
// to a loader on cache miss. Snapshots are stored as:
// HSET topic:{topicID}:questions {questionID} {snapshot JSON}
type ContentStore struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewContentStore(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentStore {
	return &ContentStore{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *ContentStore) QuestionsByTopic(ctx context.Context, topicID string) ([]domain.QuestionSnapshot, error) {
	key := s.questionsKey(topicID)

	cached, err := s.client.HGetAll(ctx, key).Result()
	if err == nil && len(cached) > 0 {
		return decodeSnapshots(cached)
	}

	result, err, _ := s.sf.Do(topicID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := s.client.HGetAll(ctx, key).Result()
		if err == nil && len(cached) > 0 {
			return decodeSnapshots(cached)
		}

		questions, err := s.loader.LoadQuestions(ctx, topicID)
		if err != nil {
			return nil, err
		}

		ttl := s.ttlWithJitter()
		pipe := s.client.Pipeline()
		for _, q := range questions {
			data, err := json.Marshal(q)
			if err != nil {
				return nil, err
			}
			pipe.HSet(ctx, key, q.ID, data)
		}
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionSnapshot), nil
}

func (s *ContentStore) questionsKey(topicID string) string {
	return "topic:" + topicID + ":questions"
}

func decodeSnapshots(cached map[string]string) ([]domain.QuestionSnapshot, error) {
	questions := make([]domain.QuestionSnapshot, 0, len(cached))
	for _, raw := range cached {
		var q domain.QuestionSnapshot
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (s *ContentStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
