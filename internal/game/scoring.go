package game

import (
	"fmt"
	"math"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// ScoreReason tags every score change with why it happened.
type ScoreReason string

const (
	ReasonBattleWin        ScoreReason = "BATTLE_WIN"
	ReasonAdvancement      ScoreReason = "ADVANCEMENT"
	ReasonControl          ScoreReason = "CONTROL"
	ReasonChallengePenalty ScoreReason = "CHALLENGE_PENALTY"
)

// ScoringWeights are the point values for each scorable outcome.
type ScoringWeights struct {
	BattleWin        int
	Advancement      int
	Control          int
	ChallengePenalty int
}

// DefaultScoringWeights returns the standard point values.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		BattleWin:        1,
		Advancement:      1,
		Control:          1,
		ChallengePenalty: 1,
	}
}

// ScoreChange is one immutable entry in the bounded score history.
type ScoreChange struct {
	PlayerID  string
	Points    int // positive for awards, negative for deductions
	Reason    ScoreReason
	OldScore  int
	NewScore  int
	Timestamp time.Time
}

// Multiplier scales awards for a player inside a validity interval. When
// Reasons is non-empty it acts as an allow-list.
type Multiplier struct {
	Factor     float64
	ValidFrom  time.Time
	ValidUntil time.Time
	Reasons    []ScoreReason
}

func (m Multiplier) appliesTo(reason ScoreReason, now time.Time) bool {
	if now.Before(m.ValidFrom) || now.After(m.ValidUntil) {
		return false
	}
	if len(m.Reasons) == 0 {
		return true
	}
	for _, r := range m.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// AchievementID identifies an achievement. Each unlocks at most once per
// player per match.
type AchievementID string

const (
	AchievementFirstPoint AchievementID = "FIRST_POINT"
	AchievementScore5     AchievementID = "SCORE_5"
	AchievementScore10    AchievementID = "SCORE_10"
	AchievementScore20    AchievementID = "SCORE_20"
	AchievementBigScore   AchievementID = "BIG_SCORE"  // >= 5 points in one award
	AchievementWinStreak  AchievementID = "WIN_STREAK" // 3 battle wins within 10s
)

const (
	bigScoreThreshold   = 5
	streakWinCount      = 3
	streakWindow        = 10 * time.Second
	scoreHistoryLimit   = 200
	battleWinTimesLimit = 32
)

// ScoringEngine awards and deducts points, applies multipliers, keeps the
// bounded score history and unlocks achievements.
type ScoringEngine struct {
	gameID      string
	weights     ScoringWeights
	clock       Clock
	bus         *rules.EventBus
	logger      *zap.Logger
	history     []ScoreChange
	multipliers map[string][]Multiplier // player ID -> active multipliers
	unlocked    map[string]map[AchievementID]bool
	winTimes    map[string][]time.Time // player ID -> recent battle-win award times
}

// NewScoringEngine creates a scoring engine publishing to bus.
func NewScoringEngine(gameID string, weights ScoringWeights, clock Clock, bus *rules.EventBus, logger *zap.Logger) *ScoringEngine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ScoringEngine{
		gameID:      gameID,
		weights:     weights,
		clock:       clock,
		bus:         bus,
		logger:      logger,
		multipliers: make(map[string][]Multiplier),
		unlocked:    make(map[string]map[AchievementID]bool),
		winTimes:    make(map[string][]time.Time),
	}
}

// Weights returns the configured point values.
func (se *ScoringEngine) Weights() ScoringWeights {
	return se.weights
}

// AddMultiplier registers a time-windowed multiplier for a player.
func (se *ScoringEngine) AddMultiplier(playerID string, m Multiplier) {
	se.multipliers[playerID] = append(se.multipliers[playerID], m)
}

// AwardPoints adds points to the player after applying any active
// multipliers. Points must be non-negative.
func (se *ScoringEngine) AwardPoints(player *Player, points int, reason ScoreReason) error {
	if player == nil {
		return NewValidationError("scoring.award", fmt.Errorf("nil player"))
	}
	if points < 0 {
		return NewValidationError("scoring.award", fmt.Errorf("negative award %d for %s", points, player.Name))
	}

	now := se.clock.Now()
	factor := 1.0
	for _, m := range se.multipliers[player.ID] {
		if m.appliesTo(reason, now) {
			factor *= m.Factor
		}
	}
	final := int(math.Round(float64(points) * factor))

	old := player.Score
	player.Score += final
	se.record(ScoreChange{
		PlayerID:  player.ID,
		Points:    final,
		Reason:    reason,
		OldScore:  old,
		NewScore:  player.Score,
		Timestamp: now,
	})

	se.logger.Debug("points awarded",
		zap.String("player", player.Name),
		zap.Int("points", final),
		zap.String("reason", string(reason)),
		zap.Int("score", player.Score),
	)

	if se.bus != nil {
		evt := rules.NewEventWithAmount(rules.EventPointsAwarded, se.gameID, player.ID, player.ID, final)
		evt.Data = string(reason)
		se.bus.Publish(evt)
		se.bus.Publish(rules.NewEventWithAmount(rules.EventScoreUpdate, se.gameID, player.ID, player.ID, player.Score))
	}

	if reason == ReasonBattleWin {
		se.trackBattleWin(player, now)
	}
	se.scanAchievements(player, final)
	return nil
}

// DeductPoints removes points from the player, clamping the actual
// deduction to the current score so it never goes negative.
func (se *ScoringEngine) DeductPoints(player *Player, points int, reason ScoreReason) error {
	if player == nil {
		return NewValidationError("scoring.deduct", fmt.Errorf("nil player"))
	}
	if points < 0 {
		return NewValidationError("scoring.deduct", fmt.Errorf("negative deduction %d for %s", points, player.Name))
	}

	actual := points
	if actual > player.Score {
		actual = player.Score
	}
	old := player.Score
	player.Score -= actual
	se.record(ScoreChange{
		PlayerID:  player.ID,
		Points:    -actual,
		Reason:    reason,
		OldScore:  old,
		NewScore:  player.Score,
		Timestamp: se.clock.Now(),
	})

	se.logger.Debug("points deducted",
		zap.String("player", player.Name),
		zap.Int("points", actual),
		zap.String("reason", string(reason)),
		zap.Int("score", player.Score),
	)

	if se.bus != nil {
		evt := rules.NewEventWithAmount(rules.EventPointsDeducted, se.gameID, player.ID, player.ID, actual)
		evt.Data = string(reason)
		se.bus.Publish(evt)
		se.bus.Publish(rules.NewEventWithAmount(rules.EventScoreUpdate, se.gameID, player.ID, player.ID, player.Score))
	}
	return nil
}

// History returns a copy of the bounded score history, oldest first.
func (se *ScoringEngine) History() []ScoreChange {
	out := make([]ScoreChange, len(se.history))
	copy(out, se.history)
	return out
}

// Unlocked returns the achievements the player has unlocked this match.
func (se *ScoringEngine) Unlocked(playerID string) []AchievementID {
	out := make([]AchievementID, 0, len(se.unlocked[playerID]))
	for id := range se.unlocked[playerID] {
		out = append(out, id)
	}
	return out
}

func (se *ScoringEngine) record(change ScoreChange) {
	se.history = append(se.history, change)
	if len(se.history) > scoreHistoryLimit {
		se.history = se.history[len(se.history)-scoreHistoryLimit:]
	}
}

func (se *ScoringEngine) trackBattleWin(player *Player, now time.Time) {
	times := append(se.winTimes[player.ID], now)
	// Drop wins outside the sliding window.
	cutoff := now.Add(-streakWindow)
	trimmed := times[:0]
	for _, t := range times {
		if !t.Before(cutoff) {
			trimmed = append(trimmed, t)
		}
	}
	if len(trimmed) > battleWinTimesLimit {
		trimmed = trimmed[len(trimmed)-battleWinTimesLimit:]
	}
	se.winTimes[player.ID] = trimmed

	if len(trimmed) >= streakWinCount {
		se.unlock(player, AchievementWinStreak)
	}
}

func (se *ScoringEngine) scanAchievements(player *Player, awarded int) {
	if player.Score >= 1 {
		se.unlock(player, AchievementFirstPoint)
	}
	if player.Score >= 5 {
		se.unlock(player, AchievementScore5)
	}
	if player.Score >= 10 {
		se.unlock(player, AchievementScore10)
	}
	if player.Score >= 20 {
		se.unlock(player, AchievementScore20)
	}
	if awarded >= bigScoreThreshold {
		se.unlock(player, AchievementBigScore)
	}
}

func (se *ScoringEngine) unlock(player *Player, id AchievementID) {
	if se.unlocked[player.ID] == nil {
		se.unlocked[player.ID] = make(map[AchievementID]bool)
	}
	if se.unlocked[player.ID][id] {
		return
	}
	se.unlocked[player.ID][id] = true

	se.logger.Info("achievement unlocked",
		zap.String("player", player.Name),
		zap.String("achievement", string(id)),
	)
	if se.bus != nil {
		evt := rules.NewEvent(rules.EventAchievementUnlocked, se.gameID, player.ID, player.ID)
		evt.Data = string(id)
		se.bus.Publish(evt)
	}
}
