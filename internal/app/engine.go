package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"examprep-engine/internal/domain"
	"examprep-engine/internal/selection"
)

// ContentStore loads question snapshots for a topic or exam.
type ContentStore interface {
	QuestionsByTopic(ctx context.Context, topicID string) ([]domain.QuestionSnapshot, error)
}

// AttemptRepository persists attempts. Update must serialize concurrent
// callers per attempt (the row-lock analogue), so two tabs submitting for
// the same attempt cannot both advance the cursor. GetOrCreate must be
// atomic with respect to the "does an in-progress attempt already exist for
// this owner and topic" check.
type AttemptRepository interface {
	// GetOrCreate stores att unless the owner already has an in-progress
	// attempt for the same topic; it returns the stored attempt and whether
	// att was newly created.
	GetOrCreate(ctx context.Context, att *domain.Attempt) (*domain.Attempt, bool, error)
	// Get returns a copy of the attempt.
	Get(ctx context.Context, id string) (*domain.Attempt, error)
	// Update runs fn against the attempt under its lock. If fn returns an
	// error the attempt must be left unchanged.
	Update(ctx context.Context, id string, fn func(att *domain.Attempt) error) error
}

// ProfileRepository persists progression profiles.
type ProfileRepository interface {
	// GetOrCreate returns the user's profile, lazily creating the default.
	GetOrCreate(ctx context.Context, userID string) (*domain.ProgressionProfile, error)
	// Update runs fn against the profile under its lock, creating the
	// default profile first if none exists.
	Update(ctx context.Context, userID string, fn func(p *domain.ProgressionProfile) error) error
}

// AttemptView is the caller-facing projection of an attempt: everything a
// client needs to render progress, and never a correct answer the user has
// not yet earned.
type AttemptView struct {
	ID             string                 `json:"id"`
	TopicID        string                 `json:"topicId"`
	Status         domain.AttemptStatus   `json:"status"`
	CurrentIndex   int                    `json:"currentIndex"`
	TotalQuestions int                    `json:"totalQuestions"`
	LivesRemaining int                    `json:"livesRemaining"`
	CurrentStreak  int                    `json:"currentStreak"`
	PointsEarned   int                    `json:"pointsEarned"`
	CorrectCount   int                    `json:"correctCount"`
	WrongCount     int                    `json:"wrongCount"`
	Resumed        bool                   `json:"resumed"`
	NextQuestion   *domain.QuestionPrompt `json:"nextQuestion,omitempty"`
}

// Engine wires the selector, the attempt state machine and the progression
// ledger behind the public quiz use cases.
type Engine struct {
	content  ContentStore
	attempts AttemptRepository
	profiles ProfileRepository
	selector *selection.Selector
	rules    domain.GameRules
	now      func() time.Time
	newID    func() string
}

func NewEngine(content ContentStore, attempts AttemptRepository, profiles ProfileRepository, selector *selection.Selector, rules domain.GameRules) *Engine {
	return &Engine{
		content:  content,
		attempts: attempts,
		profiles: profiles,
		selector: selector,
		rules:    rules,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// WithClock is test-only for deterministic timestamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithIDGenerator is test-only for predictable attempt IDs.
func (e *Engine) WithIDGenerator(gen func() string) *Engine {
	e.newID = gen
	return e
}

// StartAttempt starts a quiz or exam for the user. If the user already has
// an in-progress attempt for the topic it is resumed as-is: the question
// set was fixed at creation and is never re-randomized. Otherwise questions
// are snapshotted from the content store, the selector draws the set, and
// the attempt is persisted. Nothing is persisted when the topic has no
// questions.
func (e *Engine) StartAttempt(ctx context.Context, userID, topicID string, policy domain.SelectionPolicy) (AttemptView, error) {
	snapshots, err := e.content.QuestionsByTopic(ctx, topicID)
	if err != nil {
		return AttemptView{}, err
	}
	if len(snapshots) == 0 {
		return AttemptView{}, domain.ErrNoQuestionsAvailable
	}

	refs := make([]domain.QuestionRef, len(snapshots))
	byID := make(map[string]domain.QuestionSnapshot, len(snapshots))
	for i, s := range snapshots {
		refs[i] = s.Ref()
		byID[s.ID] = s
	}
	ids := e.selector.Select(refs, policy)
	if len(ids) == 0 {
		return AttemptView{}, domain.ErrNoQuestionsAvailable
	}
	ordered := make([]domain.QuestionSnapshot, len(ids))
	for i, id := range ids {
		ordered[i] = byID[id]
	}

	att := newAttempt(e.newID(), userID, topicID, ordered, e.rules, e.now())
	stored, created, err := e.attempts.GetOrCreate(ctx, att)
	if err != nil {
		return AttemptView{}, err
	}
	return e.view(stored, !created), nil
}

// ResumeAttempt returns the current state of an existing attempt without
// mutating it.
func (e *Engine) ResumeAttempt(ctx context.Context, userID, attemptID string) (AttemptView, error) {
	att, err := e.attempts.Get(ctx, attemptID)
	if err != nil {
		return AttemptView{}, err
	}
	if att.OwnerID != userID {
		return AttemptView{}, domain.ErrNotOwner
	}
	return e.view(att, true), nil
}

// SubmitAnswer records one answer for the attempt's current question. The
// whole check-then-mutate runs inside the repository's per-attempt lock; a
// rejected submission leaves every counter unchanged. A duplicate
// submission returns the original record's outcome alongside
// ErrAlreadyAnswered. When the answer completes the attempt, the points
// earned are credited to the owner's progression profile.
func (e *Engine) SubmitAnswer(ctx context.Context, userID, attemptID, questionID string, label domain.AnswerLabel, timeSpentSeconds int) (domain.AnswerOutcome, error) {
	var outcome domain.AnswerOutcome
	var completed *domain.Attempt

	err := e.attempts.Update(ctx, attemptID, func(att *domain.Attempt) error {
		if att.OwnerID != userID {
			return domain.ErrNotOwner
		}
		var applyErr error
		outcome, applyErr = applyAnswer(att, questionID, label, timeSpentSeconds, e.rules, e.now())
		if applyErr != nil {
			return applyErr
		}
		if att.Status == domain.StatusCompleted {
			completed = att.Clone()
		}
		return nil
	})
	if err != nil {
		// The duplicate case still carries the original outcome.
		if errors.Is(err, domain.ErrAlreadyAnswered) {
			return outcome, err
		}
		return domain.AnswerOutcome{}, err
	}

	if completed != nil {
		if err := e.profiles.Update(ctx, userID, func(p *domain.ProgressionProfile) error {
			p.ApplyAttempt(completed)
			return nil
		}); err != nil {
			return domain.AnswerOutcome{}, err
		}
	}
	return outcome, nil
}

// AbandonAttempt is the administrative transition out of in_progress. It is
// never triggered by answer submission and grants no XP.
func (e *Engine) AbandonAttempt(ctx context.Context, userID, attemptID string) error {
	return e.attempts.Update(ctx, attemptID, func(att *domain.Attempt) error {
		if att.OwnerID != userID {
			return domain.ErrNotOwner
		}
		if att.Status.Terminal() {
			return domain.ErrAttemptNotInProgress
		}
		att.Status = domain.StatusAbandoned
		att.CompletedAt = e.now()
		return nil
	})
}

// Profile returns the user's progression profile, creating the default on
// first read.
func (e *Engine) Profile(ctx context.Context, userID string) (*domain.ProgressionProfile, error) {
	return e.profiles.GetOrCreate(ctx, userID)
}

func (e *Engine) view(att *domain.Attempt, resumed bool) AttemptView {
	v := AttemptView{
		ID:             att.ID,
		TopicID:        att.TopicID,
		Status:         att.Status,
		CurrentIndex:   att.CurrentIndex,
		TotalQuestions: len(att.Questions),
		LivesRemaining: att.LivesRemaining,
		CurrentStreak:  att.CurrentStreak,
		PointsEarned:   att.PointsEarned,
		CorrectCount:   att.CorrectCount,
		WrongCount:     att.WrongCount,
		Resumed:        resumed,
	}
	if !att.Status.Terminal() {
		v.NextQuestion = nextPrompt(att)
	}
	return v
}
