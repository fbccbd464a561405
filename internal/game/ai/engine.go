// Package ai implements the heuristic computer opponent: play selection
// over the grid, the bluff decision, the challenge decision, and adaptive
// traits that drift with match momentum.
package ai

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game"
	"go.uber.org/zap"
)

// Heuristic weighting constants for play selection.
const (
	centerWeight       = 1.0
	edgeBonus          = 0.25
	friendlyAdjWeight  = 0.3
	disruptionWeight   = 0.2
	strategyWeight     = 1.0
	balancedBlend      = 0.6
	selectionDepth     = 3 // weighted draw over the top candidates
	bluffNoiseSpan     = 0.1
	behindBluffBoost   = 0.10
	lowHandBluffBoost  = 0.10
	challengeDeterrent = 0.30 // discount per unit of opponent challenge rate
	bluffEstimateGain  = 0.40
	suspicionGain      = 0.30
	lowScoreAversion   = 0.25
	decisionLogLimit   = 32
)

// Candidate is one scored (card, position) pair.
type Candidate struct {
	CardID   string
	Position int
	Score    float64
}

// decisionNote is one entry in the bounded recent-decision log.
type decisionNote struct {
	Kind      string
	Detail    string
	Timestamp time.Time
}

// Engine is a per-player AI instance. It reasons over the shared grid and
// battle simulator plus its own bounded memory of opponent reveals.
type Engine struct {
	playerID   string
	difficulty Difficulty
	preset     Preset
	traits     Traits
	memory     *Memory
	grid       *game.Grid
	battle     *game.BattleEngine
	rng        *rand.Rand
	logger     *zap.Logger
	decisions  []decisionNote
}

// New creates an engine for playerID at the given difficulty.
func New(playerID string, difficulty Difficulty, grid *game.Grid, battle *game.BattleEngine, rng *rand.Rand, logger *zap.Logger) (*Engine, error) {
	preset, err := PresetFor(difficulty)
	if err != nil {
		return nil, err
	}
	if grid == nil || battle == nil {
		return nil, fmt.Errorf("ai engine needs a grid and a battle engine")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		playerID:   playerID,
		difficulty: difficulty,
		preset:     preset,
		traits:     DefaultTraits(),
		memory:     NewMemory(preset.MemoryDepth),
		grid:       grid,
		battle:     battle,
		rng:        rng,
		logger:     logger,
	}, nil
}

// Traits exposes the current personality for inspection.
func (e *Engine) Traits() Traits {
	return e.traits
}

// Memory exposes the observation memory for inspection.
func (e *Engine) Memory() *Memory {
	return e.memory
}

// PlanPlay selects a card, a position and a claimed type for the engine's
// turn. Returns ok=false when no play is possible.
func (e *Engine) PlanPlay(self, opponent *game.Player) (string, int, game.CardType, bool) {
	candidates := e.scoreCandidates(self, opponent)
	if len(candidates) == 0 {
		return "", 0, "", false
	}

	chosen := e.drawCandidate(candidates)
	card := self.CardInHand(chosen.CardID)
	if card == nil {
		return "", 0, "", false
	}
	claim := e.decideClaim(card, self, opponent)

	e.note("play", fmt.Sprintf("card=%s pos=%d claim=%s score=%.2f", chosen.CardID, chosen.Position, claim, chosen.Score))
	e.logger.Debug("ai play planned",
		zap.String("card", chosen.CardID),
		zap.Int("position", chosen.Position),
		zap.String("claim", string(claim)),
		zap.Float64("score", chosen.Score),
		zap.String("strategy", string(e.traits.DominantStrategy())),
	)
	return chosen.CardID, chosen.Position, claim, true
}

// scoreCandidates computes the composite score for every legal
// (card, empty position) pair.
func (e *Engine) scoreCandidates(self, opponent *game.Player) []Candidate {
	empty := e.grid.AvailablePositions()
	candidates := make([]Candidate, 0, len(self.Hand)*len(empty))
	for _, card := range self.Hand {
		for _, pos := range empty {
			score := e.battle.SimulatePlacement(card, pos)
			score += e.positionalValue(pos, self)
			score += strategyWeight * e.strategyTerm(card, pos, self)
			score += e.disruption(pos, self)
			score -= e.risk(card, pos, opponent)
			candidates = append(candidates, Candidate{CardID: card.ID, Position: pos, Score: score})
		}
	}
	return candidates
}

// drawCandidate picks among the top candidates by weighted random choice,
// with bounded randomness scaled by adaptability. Falls back to the single
// best candidate when every weight collapses to zero.
func (e *Engine) drawCandidate(candidates []Candidate) Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	top := candidates
	if len(top) > selectionDepth {
		top = top[:selectionDepth]
	}

	floor := top[len(top)-1].Score
	weights := make([]float64, len(top))
	total := 0.0
	for i, c := range top {
		noise := e.rng.Float64() * e.traits.Adaptability
		w := (c.Score - floor) + noise
		if w < 0 {
			w = 0
		}
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return top[0]
	}

	draw := e.rng.Float64() * total
	for i, w := range weights {
		draw -= w
		if draw <= 0 {
			return top[i]
		}
	}
	return top[0]
}

// positionalValue rewards center proximity, row-edge anchors and friendly
// adjacency.
func (e *Engine) positionalValue(pos int, self *game.Player) float64 {
	row, col, err := e.grid.PositionToCoords(pos)
	if err != nil {
		return 0
	}
	centerRow := float64(e.grid.Height-1) / 2
	centerCol := float64(e.grid.Width-1) / 2
	rowDist := abs(float64(row) - centerRow)
	colDist := abs(float64(col) - centerCol)
	maxDist := centerRow + centerCol
	value := 0.0
	if maxDist > 0 {
		value += centerWeight * (1 - (rowDist+colDist)/maxDist)
	}
	if col == 0 || col == e.grid.Width-1 {
		value += edgeBonus
	}
	adj, err := e.grid.Adjacent(pos, false)
	if err == nil {
		for _, n := range adj {
			if c := e.grid.CardAt(n); c != nil && c.OwnerID == self.ID {
				value += friendlyAdjWeight
			}
		}
	}
	return value
}

// strategyTerm applies the posture-specific bonus. Aggressive rewards
// positions that can defeat a horizontal opponent; defensive rewards
// protection and low exposure; balanced blends both.
func (e *Engine) strategyTerm(card *game.Card, pos int, self *game.Player) float64 {
	switch e.traits.DominantStrategy() {
	case StrategyAggressive:
		return e.aggressiveTerm(card, pos, self)
	case StrategyDefensive:
		return e.defensiveTerm(card, pos, self)
	default:
		return balancedBlend * (e.aggressiveTerm(card, pos, self) + e.defensiveTerm(card, pos, self))
	}
}

func (e *Engine) aggressiveTerm(card *game.Card, pos int, self *game.Player) float64 {
	term := 0.0
	neighbors, err := e.grid.HorizontalNeighbors(pos)
	if err != nil {
		return 0
	}
	for _, n := range neighbors {
		other := e.grid.CardAt(n)
		if other == nil || other.OwnerID == self.ID {
			continue
		}
		if card.Type.Beats(other.Type) {
			term += 1.0
		}
	}
	return term * e.traits.Aggression
}

func (e *Engine) defensiveTerm(card *game.Card, pos int, self *game.Player) float64 {
	term := 0.0
	neighbors, err := e.grid.HorizontalNeighbors(pos)
	if err != nil {
		return 0
	}
	exposed := 0
	for _, n := range neighbors {
		other := e.grid.CardAt(n)
		if other == nil {
			exposed++ // an opponent could still land here
			continue
		}
		if other.OwnerID == self.ID {
			term += 0.5 // shielded by a friendly flank
		} else if other.Type.Beats(card.Type) {
			term -= 1.0 // walking into a losing matchup
		}
	}
	term -= 0.25 * float64(exposed)
	return term * e.traits.Caution
}

// disruption rewards crowding the opponent's cards.
func (e *Engine) disruption(pos int, self *game.Player) float64 {
	adj, err := e.grid.Adjacent(pos, true)
	if err != nil {
		return 0
	}
	count := 0
	for _, n := range adj {
		if c := e.grid.CardAt(n); c != nil && c.OwnerID != self.ID {
			count++
		}
	}
	return disruptionWeight * float64(count)
}

// risk estimates probability-weighted exposure to a losing matchup on the
// still-empty horizontal flanks, scaled by caution.
func (e *Engine) risk(card *game.Card, pos int, opponent *game.Player) float64 {
	neighbors, err := e.grid.HorizontalNeighbors(pos)
	if err != nil {
		return 0
	}
	beater := beatingType(card.Type)
	total := 0.0
	for _, n := range neighbors {
		if !e.grid.IsAvailable(n) {
			continue
		}
		prob := 1.0 / 3.0
		if opponent != nil && e.memory.Len() > 0 {
			if f := e.memory.TypeFrequencyFor(opponent.ID, beater); f > 0 {
				prob = f
			}
		}
		total += prob
	}
	return total * e.traits.Caution
}

// decideClaim runs the bluff decision for a chosen card and returns the
// type to declare.
func (e *Engine) decideClaim(card *game.Card, self, opponent *game.Player) game.CardType {
	rate := e.preset.BluffRate
	if opponent != nil && self.Score < opponent.Score {
		rate += behindBluffBoost
	}
	if len(self.Hand) <= 2 {
		rate += lowHandBluffBoost
	}
	if opponent != nil {
		rate -= challengeDeterrent * opponent.Profile.ChallengeRate()
	}
	rate *= 0.5 + e.traits.Deception
	rate += (e.rng.Float64() - 0.5) * bluffNoiseSpan
	rate = clamp01(rate)

	if e.rng.Float64() >= rate {
		e.note("claim", "truthful")
		return card.Type
	}

	// Bluff: claim one of the two other types, uniformly.
	others := make([]game.CardType, 0, 2)
	for _, t := range game.CardTypes {
		if t != card.Type {
			others = append(others, t)
		}
	}
	claim := others[e.rng.Intn(len(others))]
	e.note("claim", fmt.Sprintf("bluff %s as %s", card.Type, claim))
	return claim
}

// ConsiderChallenge decides whether to contest the opponent's pending play.
func (e *Engine) ConsiderChallenge(pending *game.PendingPlay, self, opponent *game.Player) bool {
	if pending == nil || pending.PlayerID == self.ID {
		return false
	}

	rate := e.preset.ChallengeRate
	fallback := 0.0
	if opponent != nil {
		fallback = opponent.Profile.BluffRate()
	}
	estBluff := e.memory.BluffRateFor(pending.PlayerID, fallback)
	rate += bluffEstimateGain * estBluff
	rate += suspicionGain * e.memory.Suspicion(pending.PlayerID)

	// Risk aversion: a failed challenge costs points we cannot spare.
	if self.Score <= 1 {
		rate *= lowScoreAversion
	}

	rate *= 0.5 + e.traits.Aggression
	rate *= 1.5 - e.traits.Caution
	rate = clamp01(rate)

	challenge := e.rng.Float64() < rate
	e.note("challenge", fmt.Sprintf("rate=%.2f decision=%t", rate, challenge))
	e.logger.Debug("ai challenge considered",
		zap.Float64("rate", rate),
		zap.Float64("est_bluff", estBluff),
		zap.Bool("challenge", challenge),
	)
	return challenge
}

// ObserveReveal feeds a revealed play into the engine's bounded memory.
func (e *Engine) ObserveReveal(opponentID string, actual, claimed game.CardType, position int, wasBluff bool) {
	e.memory.Observe(Observation{
		OpponentID:  opponentID,
		ActualType:  actual,
		ClaimedType: claimed,
		Position:    position,
		WasBluff:    wasBluff,
		Timestamp:   time.Now(),
	})
}

// FinishRound drifts the traits based on the round's score differential
// (own score minus opponent's).
func (e *Engine) FinishRound(scoreDiff int) {
	e.traits.Drift(scoreDiff, e.preset.AdaptationRate)
	e.logger.Debug("ai traits adapted",
		zap.Int("score_diff", scoreDiff),
		zap.Float64("aggression", e.traits.Aggression),
		zap.Float64("caution", e.traits.Caution),
		zap.Float64("deception", e.traits.Deception),
	)
}

func (e *Engine) note(kind, detail string) {
	e.decisions = append(e.decisions, decisionNote{Kind: kind, Detail: detail, Timestamp: time.Now()})
	if len(e.decisions) > decisionLogLimit {
		e.decisions = e.decisions[len(e.decisions)-decisionLogLimit:]
	}
}

// beatingType returns the type that defeats t.
func beatingType(t game.CardType) game.CardType {
	switch t {
	case game.TypeRock:
		return game.TypePaper
	case game.TypePaper:
		return game.TypeScissors
	default:
		return game.TypeRock
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
