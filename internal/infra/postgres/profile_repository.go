package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"examprep-engine/internal/domain"
)

// ProfileRepository persists progression profiles in Postgres. Update locks
// the row so two attempts finishing at once cannot lose an XP grant.
type ProfileRepository struct {
	db *bun.DB
}

func NewProfileRepository(db *bun.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

type profileRow struct {
	bun.BaseModel `bun:"table:profiles"`

	UserID                string `bun:"user_id,pk"`
	TotalPoints           int    `bun:"total_points"`
	CurrentLevel          int    `bun:"current_level"`
	XP                    int    `bun:"xp"`
	XPToNextLevel         int    `bun:"xp_to_next_level"`
	Rank                  string `bun:"rank"`
	LongestStreak         int    `bun:"longest_streak"`
	TotalQuizzesCompleted int    `bun:"total_quizzes_completed"`
	TotalCorrectAnswers   int    `bun:"total_correct_answers"`
	TotalWrongAnswers     int    `bun:"total_wrong_answers"`
}

func rowFromProfile(p *domain.ProgressionProfile) *profileRow {
	return &profileRow{
		UserID:                p.UserID,
		TotalPoints:           p.TotalPoints,
		CurrentLevel:          p.CurrentLevel,
		XP:                    p.XP,
		XPToNextLevel:         p.XPToNextLevel,
		Rank:                  string(p.Rank),
		LongestStreak:         p.LongestStreak,
		TotalQuizzesCompleted: p.TotalQuizzesCompleted,
		TotalCorrectAnswers:   p.TotalCorrectAnswers,
		TotalWrongAnswers:     p.TotalWrongAnswers,
	}
}

func (r *profileRow) toProfile() *domain.ProgressionProfile {
	return &domain.ProgressionProfile{
		UserID:                r.UserID,
		TotalPoints:           r.TotalPoints,
		CurrentLevel:          r.CurrentLevel,
		XP:                    r.XP,
		XPToNextLevel:         r.XPToNextLevel,
		Rank:                  domain.Rank(r.Rank),
		LongestStreak:         r.LongestStreak,
		TotalQuizzesCompleted: r.TotalQuizzesCompleted,
		TotalCorrectAnswers:   r.TotalCorrectAnswers,
		TotalWrongAnswers:     r.TotalWrongAnswers,
	}
}

func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID string) (*domain.ProgressionProfile, error) {
	row := new(profileRow)
	err := r.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	if err == nil {
		return row.toProfile(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	fresh := rowFromProfile(domain.NewProgressionProfile(userID))
	if _, err := r.db.NewInsert().
		Model(fresh).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	// Re-read in case a concurrent creator won the insert.
	if err := r.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return row.toProfile(), nil
}

func (r *ProfileRepository) Update(ctx context.Context, userID string, fn func(p *domain.ProgressionProfile) error) error {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(profileRow)
		if err := tx.NewSelect().Model(row).Where("user_id = ?", userID).For("UPDATE").Scan(ctx); err != nil {
			return fmt.Errorf("lock profile: %w", err)
		}
		profile := row.toProfile()
		if err := fn(profile); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().Model(rowFromProfile(profile)).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return nil
	})
}
