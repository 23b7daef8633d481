package domain

// Rank is a cosmetic label derived purely from the current level.
type Rank string

const (
	RankRookie     Rank = "rookie"
	RankApprentice Rank = "apprentice"
	RankScholar    Rank = "scholar"
	RankExpert     Rank = "expert"
	RankMaster     Rank = "master"
	RankElite      Rank = "elite"
	RankLegend     Rank = "legend"
)

const (
	// InitialXPToNextLevel is the size of the level-1 XP bucket.
	InitialXPToNextLevel = 500
)

// rankThresholds maps minimum level to rank, highest first. The cut points
// are a policy table and can be retuned without touching the level math.
var rankThresholds = []struct {
	minLevel int
	rank     Rank
}{
	{50, RankLegend},
	{30, RankElite},
	{20, RankMaster},
	{12, RankExpert},
	{7, RankScholar},
	{3, RankApprentice},
	{1, RankRookie},
}

// RankForLevel resolves the rank for a level via the threshold table.
func RankForLevel(level int) Rank {
	for _, t := range rankThresholds {
		if level >= t.minLevel {
			return t.rank
		}
	}
	return RankRookie
}

// ProgressionProfile is the per-user gamification aggregate. One exists per
// user across all attempts; it is created lazily on first use and mutated
// only through AddXP and ApplyAttempt.
type ProgressionProfile struct {
	UserID                string `json:"userId"`
	TotalPoints           int    `json:"totalPoints"`
	CurrentLevel          int    `json:"currentLevel"`
	XP                    int    `json:"xp"`
	XPToNextLevel         int    `json:"xpToNextLevel"`
	Rank                  Rank   `json:"rank"`
	LongestStreak         int    `json:"longestStreak"`
	TotalQuizzesCompleted int    `json:"totalQuizzesCompleted"`
	TotalCorrectAnswers   int    `json:"totalCorrectAnswers"`
	TotalWrongAnswers     int    `json:"totalWrongAnswers"`
}

// NewProgressionProfile returns the default profile for a user.
func NewProgressionProfile(userID string) *ProgressionProfile {
	return &ProgressionProfile{
		UserID:        userID,
		CurrentLevel:  1,
		XPToNextLevel: InitialXPToNextLevel,
		Rank:          RankForLevel(1),
	}
}

// AddXP credits amount to the profile and applies level-ups. The bucket
// grows by 1.2x (floored) on every level-up, and a single large grant may
// advance several levels, so this loops rather than assuming one.
// Postcondition: 0 <= XP < XPToNextLevel.
func (p *ProgressionProfile) AddXP(amount int) {
	if amount <= 0 {
		return
	}
	p.XP += amount
	p.TotalPoints += amount
	for p.XP >= p.XPToNextLevel {
		p.XP -= p.XPToNextLevel
		p.CurrentLevel++
		p.XPToNextLevel = p.XPToNextLevel * 12 / 10
	}
	p.Rank = RankForLevel(p.CurrentLevel)
}

// ApplyAttempt folds a completed attempt into the lifetime aggregates.
// Called exactly once per attempt, on the transition to completed; failed
// and abandoned attempts never reach the ledger.
func (p *ProgressionProfile) ApplyAttempt(a *Attempt) {
	if a.CurrentStreak > p.LongestStreak {
		p.LongestStreak = a.CurrentStreak
	}
	p.TotalCorrectAnswers += a.CorrectCount
	p.TotalWrongAnswers += a.WrongCount
	p.TotalQuizzesCompleted++
	p.AddXP(a.PointsEarned)
}

// Clone returns a copy safe to hand out.
func (p *ProgressionProfile) Clone() *ProgressionProfile {
	cp := *p
	return &cp
}
