package app

import (
	"time"

	"examprep-engine/internal/domain"
)

// newAttempt builds a fresh in-progress attempt over an already-selected,
// ordered question set. The order is fixed here and never changes.
func newAttempt(id, ownerID, topicID string, questions []domain.QuestionSnapshot, rules domain.GameRules, now time.Time) *domain.Attempt {
	return &domain.Attempt{
		ID:             id,
		OwnerID:        ownerID,
		TopicID:        topicID,
		Questions:      questions,
		LivesRemaining: rules.StartingLives,
		Status:         domain.StatusInProgress,
		Answers:        make(map[string]domain.AnswerRecord),
		StartedAt:      now,
	}
}

// applyAnswer is the single mutating transition of the attempt state
// machine. It validates the submission against the current slot, updates
// lives/streak/points, advances the cursor, runs the terminal checks
// (lives exhaustion before completion) and records the answer. On any
// validation error the attempt is left untouched.
func applyAnswer(att *domain.Attempt, questionID string, label domain.AnswerLabel, timeSpentSeconds int, rules domain.GameRules, now time.Time) (domain.AnswerOutcome, error) {
	if _, ok := att.Answers[questionID]; ok {
		return outcomeForRecorded(att, questionID), domain.ErrAlreadyAnswered
	}
	if att.Status.Terminal() {
		return domain.AnswerOutcome{}, domain.ErrAttemptNotInProgress
	}
	expected, ok := att.CurrentQuestion()
	if !ok || expected.ID != questionID {
		return domain.AnswerOutcome{}, domain.ErrOutOfOrderSubmission
	}

	isCorrect := label == expected.CorrectAnswer
	points := 0
	if isCorrect {
		att.CorrectCount++
		att.CurrentStreak++
		points = rules.PointsFor(att.CurrentStreak)
		att.PointsEarned += points
	} else {
		att.WrongCount++
		att.CurrentStreak = 0
		att.LivesRemaining--
	}
	att.CurrentIndex++

	// Lives exhaustion wins over completion when both trip on the same answer.
	if att.LivesRemaining <= 0 {
		att.Status = domain.StatusFailed
		att.CompletedAt = now
	} else if att.CurrentIndex >= len(att.Questions) {
		att.Status = domain.StatusCompleted
		att.CompletedAt = now
	}

	att.Answers[questionID] = domain.AnswerRecord{
		QuestionID:       questionID,
		SelectedLabel:    label,
		IsCorrect:        isCorrect,
		PointsAwarded:    points,
		TimeSpentSeconds: timeSpentSeconds,
		AnsweredAt:       now,
	}

	outcome := domain.AnswerOutcome{
		QuestionID:       questionID,
		IsCorrect:        isCorrect,
		PointsThisAnswer: points,
		CorrectAnswer:    expected.CorrectAnswer,
		Explanation:      expected.Explanation,
		Status:           att.Status,
		LivesRemaining:   att.LivesRemaining,
		CurrentStreak:    att.CurrentStreak,
		PointsEarned:     att.PointsEarned,
	}
	if !att.Status.Terminal() {
		outcome.NextQuestion = nextPrompt(att)
	}
	return outcome, nil
}

// outcomeForRecorded rebuilds the outcome of an already-recorded answer so
// a duplicate submission gets the original result back instead of a rewrite.
func outcomeForRecorded(att *domain.Attempt, questionID string) domain.AnswerOutcome {
	rec := att.Answers[questionID]
	outcome := domain.AnswerOutcome{
		QuestionID:       rec.QuestionID,
		IsCorrect:        rec.IsCorrect,
		PointsThisAnswer: rec.PointsAwarded,
		Status:           att.Status,
		LivesRemaining:   att.LivesRemaining,
		CurrentStreak:    att.CurrentStreak,
		PointsEarned:     att.PointsEarned,
	}
	for _, q := range att.Questions {
		if q.ID == questionID {
			outcome.CorrectAnswer = q.CorrectAnswer
			outcome.Explanation = q.Explanation
			break
		}
	}
	if !att.Status.Terminal() {
		outcome.NextQuestion = nextPrompt(att)
	}
	return outcome
}

func nextPrompt(att *domain.Attempt) *domain.QuestionPrompt {
	next, ok := att.CurrentQuestion()
	if !ok {
		return nil
	}
	prompt := next.Prompted(att.CurrentIndex+1, len(att.Questions))
	return &prompt
}
