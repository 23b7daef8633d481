package domain

import "time"

// AnswerLabel identifies one of the closed set of answer options (A–E).
type AnswerLabel string

const (
	LabelA AnswerLabel = "A"
	LabelB AnswerLabel = "B"
	LabelC AnswerLabel = "C"
	LabelD AnswerLabel = "D"
	LabelE AnswerLabel = "E"
)

// AttemptStatus is the lifecycle state of an Attempt.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "in_progress"
	StatusCompleted  AttemptStatus = "completed"
	StatusFailed     AttemptStatus = "failed"
	StatusAbandoned  AttemptStatus = "abandoned"
)

// Terminal reports whether the status accepts no further answers.
func (s AttemptStatus) Terminal() bool {
	return s != StatusInProgress
}

// QuestionRef is the selector's view of a question: identity, category tag
// and the correct label. Owned by the content store, never mutated here.
type QuestionRef struct {
	ID            string
	Category      string
	CorrectAnswer AnswerLabel
}

// Option is a single labeled answer choice.
type Option struct {
	Label AnswerLabel `json:"label"`
	Text  string      `json:"text"`
}

// QuestionSnapshot is the denormalized copy of a question taken once at
// attempt creation and never refreshed. Grading runs against the snapshot,
// so a content edit mid-attempt cannot change what the user was graded on.
type QuestionSnapshot struct {
	ID            string      `json:"id"`
	Category      string      `json:"category"`
	Prompt        string      `json:"prompt"`
	Options       []Option    `json:"options"`
	CorrectAnswer AnswerLabel `json:"correctAnswer"`
	Explanation   string      `json:"explanation,omitempty"`
}

// Ref projects the snapshot down to the selector's view.
func (q QuestionSnapshot) Ref() QuestionRef {
	return QuestionRef{ID: q.ID, Category: q.Category, CorrectAnswer: q.CorrectAnswer}
}

// Prompted returns the public-facing form of the question. The correct
// answer and explanation are withheld until the question has been answered.
func (q QuestionSnapshot) Prompted(position, total int) QuestionPrompt {
	return QuestionPrompt{
		ID:       q.ID,
		Prompt:   q.Prompt,
		Options:  q.Options,
		Position: position,
		Total:    total,
	}
}

// QuestionPrompt is what clients see before answering.
type QuestionPrompt struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	Options  []Option `json:"options"`
	Position int      `json:"position"`
	Total    int      `json:"total"`
}

// SelectionPolicy describes how many questions to draw and whether the draw
// must be balanced across categories.
type SelectionPolicy struct {
	TargetCount int  `json:"targetCount"`
	Balanced    bool `json:"balanced"`
}

// AnswerRecord is the immutable record of one answered question. There is
// exactly one per (attempt, question) pair; duplicates are rejected, never
// overwritten.
type AnswerRecord struct {
	QuestionID       string      `json:"questionId"`
	SelectedLabel    AnswerLabel `json:"selectedLabel"`
	IsCorrect        bool        `json:"isCorrect"`
	PointsAwarded    int         `json:"pointsAwarded"`
	TimeSpentSeconds int         `json:"timeSpentSeconds"`
	AnsweredAt       time.Time   `json:"answeredAt"`
}

// Attempt is one user's run through a fixed set of questions. Questions is
// populated exactly once at creation; its order is the presentation order
// and CurrentIndex is the cursor into it.
//
// Invariant: CurrentIndex == CorrectCount + WrongCount.
type Attempt struct {
	ID             string                  `json:"id"`
	OwnerID        string                  `json:"ownerId"`
	TopicID        string                  `json:"topicId"`
	Questions      []QuestionSnapshot      `json:"questions"`
	CurrentIndex   int                     `json:"currentIndex"`
	LivesRemaining int                     `json:"livesRemaining"`
	CurrentStreak  int                     `json:"currentStreak"`
	PointsEarned   int                     `json:"pointsEarned"`
	CorrectCount   int                     `json:"correctCount"`
	WrongCount     int                     `json:"wrongCount"`
	Status         AttemptStatus           `json:"status"`
	Answers        map[string]AnswerRecord `json:"answers"`
	StartedAt      time.Time               `json:"startedAt"`
	CompletedAt    time.Time               `json:"completedAt,omitempty"`
}

// SelectedQuestionIDs returns the fixed presentation order of question IDs.
func (a *Attempt) SelectedQuestionIDs() []string {
	ids := make([]string, len(a.Questions))
	for i, q := range a.Questions {
		ids[i] = q.ID
	}
	return ids
}

// CurrentQuestion returns the snapshot at the cursor, or false when the
// cursor has moved past the last question.
func (a *Attempt) CurrentQuestion() (QuestionSnapshot, bool) {
	if a.CurrentIndex < 0 || a.CurrentIndex >= len(a.Questions) {
		return QuestionSnapshot{}, false
	}
	return a.Questions[a.CurrentIndex], true
}

// Clone returns a deep copy safe to hand out while the original keeps
// mutating under its own lock.
func (a *Attempt) Clone() *Attempt {
	cp := *a
	cp.Questions = make([]QuestionSnapshot, len(a.Questions))
	copy(cp.Questions, a.Questions)
	cp.Answers = make(map[string]AnswerRecord, len(a.Answers))
	for k, v := range a.Answers {
		cp.Answers[k] = v
	}
	return &cp
}

// AnswerOutcome summarizes the result of a single recorded answer. The
// answered question's correct label and explanation are released here, and
// only here, once that question has itself been answered.
type AnswerOutcome struct {
	QuestionID       string          `json:"questionId"`
	IsCorrect        bool            `json:"isCorrect"`
	PointsThisAnswer int             `json:"pointsThisAnswer"`
	CorrectAnswer    AnswerLabel     `json:"correctAnswer"`
	Explanation      string          `json:"explanation,omitempty"`
	Status           AttemptStatus   `json:"status"`
	LivesRemaining   int             `json:"livesRemaining"`
	CurrentStreak    int             `json:"currentStreak"`
	PointsEarned     int             `json:"pointsEarned"`
	NextQuestion     *QuestionPrompt `json:"nextQuestion,omitempty"`
}

// GameRules holds the tunable scoring knobs for an attempt.
type GameRules struct {
	StartingLives   int
	BasePoints      int
	StreakBonusStep int
	StreakBonusCap  int
}

// DefaultGameRules matches production scoring: 3 lives, 100 base points and
// a +10 streak bonus per consecutive correct answer, capped at +50.
func DefaultGameRules() GameRules {
	return GameRules{
		StartingLives:   3,
		BasePoints:      100,
		StreakBonusStep: 10,
		StreakBonusCap:  50,
	}
}

// PointsFor computes the award for a correct answer. streak is the streak
// value after counting this answer, so the first correct answer (streak 1)
// earns the base with no bonus.
func (r GameRules) PointsFor(streak int) int {
	bonus := (streak - 1) * r.StreakBonusStep
	if bonus > r.StreakBonusCap {
		bonus = r.StreakBonusCap
	}
	if bonus < 0 {
		bonus = 0
	}
	return r.BasePoints + bonus
}
