package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"examprep-engine/internal/domain"
)

// AttemptRepository persists attempts in Postgres. Update wraps the
// transition in a transaction with SELECT ... FOR UPDATE, which is the
// row-level lock that serializes two tabs submitting against the same
// attempt. A partial unique index on (owner_id, topic_id) for in-progress
// rows keeps GetOrCreate race-free across instances.
type AttemptRepository struct {
	db *bun.DB
}

func NewAttemptRepository(db *bun.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts"`

	ID             string     `bun:"id,pk"`
	OwnerID        string     `bun:"owner_id"`
	TopicID        string     `bun:"topic_id"`
	Status         string     `bun:"status"`
	CurrentIndex   int        `bun:"current_index"`
	LivesRemaining int        `bun:"lives_remaining"`
	CurrentStreak  int        `bun:"current_streak"`
	PointsEarned   int        `bun:"points_earned"`
	CorrectCount   int        `bun:"correct_count"`
	WrongCount     int        `bun:"wrong_count"`
	Questions      []byte     `bun:"questions,type:jsonb"`
	Answers        []byte     `bun:"answers,type:jsonb"`
	StartedAt      time.Time  `bun:"started_at"`
	CompletedAt    *time.Time `bun:"completed_at"`
}

func rowFromAttempt(att *domain.Attempt) (*attemptRow, error) {
	questions, err := json.Marshal(att.Questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}
	answers, err := json.Marshal(att.Answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	row := &attemptRow{
		ID:             att.ID,
		OwnerID:        att.OwnerID,
		TopicID:        att.TopicID,
		Status:         string(att.Status),
		CurrentIndex:   att.CurrentIndex,
		LivesRemaining: att.LivesRemaining,
		CurrentStreak:  att.CurrentStreak,
		PointsEarned:   att.PointsEarned,
		CorrectCount:   att.CorrectCount,
		WrongCount:     att.WrongCount,
		Questions:      questions,
		Answers:        answers,
		StartedAt:      att.StartedAt,
	}
	if !att.CompletedAt.IsZero() {
		completed := att.CompletedAt
		row.CompletedAt = &completed
	}
	return row, nil
}

func (r *attemptRow) toAttempt() (*domain.Attempt, error) {
	att := &domain.Attempt{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		TopicID:        r.TopicID,
		Status:         domain.AttemptStatus(r.Status),
		CurrentIndex:   r.CurrentIndex,
		LivesRemaining: r.LivesRemaining,
		CurrentStreak:  r.CurrentStreak,
		PointsEarned:   r.PointsEarned,
		CorrectCount:   r.CorrectCount,
		WrongCount:     r.WrongCount,
		StartedAt:      r.StartedAt,
	}
	if r.CompletedAt != nil {
		att.CompletedAt = *r.CompletedAt
	}
	if err := json.Unmarshal(r.Questions, &att.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if len(r.Answers) > 0 {
		if err := json.Unmarshal(r.Answers, &att.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	if att.Answers == nil {
		att.Answers = make(map[string]domain.AnswerRecord)
	}
	return att, nil
}

func (r *AttemptRepository) GetOrCreate(ctx context.Context, att *domain.Attempt) (*domain.Attempt, bool, error) {
	row, err := rowFromAttempt(att)
	if err != nil {
		return nil, false, err
	}

	var stored *domain.Attempt
	var created bool
	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (owner_id, topic_id) WHERE status = 'in_progress' DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			stored = att.Clone()
			created = true
			return nil
		}

		existing := new(attemptRow)
		if err := tx.NewSelect().
			Model(existing).
			Where("owner_id = ? AND topic_id = ? AND status = ?", att.OwnerID, att.TopicID, string(domain.StatusInProgress)).
			Scan(ctx); err != nil {
			return fmt.Errorf("load existing attempt: %w", err)
		}
		stored, err = existing.toAttempt()
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (r *AttemptRepository) Get(ctx context.Context, id string) (*domain.Attempt, error) {
	row := new(attemptRow)
	err := r.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	return row.toAttempt()
}

func (r *AttemptRepository) Update(ctx context.Context, id string, fn func(att *domain.Attempt) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(attemptRow)
		err := tx.NewSelect().Model(row).Where("id = ?", id).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return fmt.Errorf("lock attempt: %w", err)
		}
		att, err := row.toAttempt()
		if err != nil {
			return err
		}
		if err := fn(att); err != nil {
			return err
		}
		updated, err := rowFromAttempt(att)
		if err != nil {
			return err
		}
		if _, err := tx.NewUpdate().Model(updated).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}
		return nil
	})
}
