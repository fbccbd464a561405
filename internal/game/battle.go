package game

import (
	"fmt"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// BattleWinner identifies which side of a pair won.
type BattleWinner string

const (
	Card1Wins BattleWinner = "card1_wins"
	Card2Wins BattleWinner = "card2_wins"
	BattleTie BattleWinner = "tie"
)

// BattleResult is the outcome of one resolved pair.
type BattleResult struct {
	LeftPos   int
	RightPos  int
	LeftCard  string
	RightCard string
	LeftType  CardType
	RightType CardType
	Winner    BattleWinner
}

// ResolutionSummary reports one full battle-phase pass.
type ResolutionSummary struct {
	Battles           []BattleResult
	SkippedBattles    int // battles abandoned by the per-battle deadline
	AdvancementAwards int
	ControlAwards     int
}

// DefaultBattleTimeout is the defensive per-battle deadline. A battle that
// overruns it is abandoned; the rest of the queue still resolves.
const DefaultBattleTimeout = 2 * time.Second

// BattleEngine resolves all simultaneous horizontal adjacencies once per
// round, then awards advancement and control to the cards that never had
// to fight. Resolution compares actual types only; claims never matter
// here.
type BattleEngine struct {
	gameID     string
	grid       *Grid
	scoring    *ScoringEngine
	clock      Clock
	bus        *rules.EventBus
	logger     *zap.Logger
	timeout    time.Duration
	processing bool
}

// NewBattleEngine creates a battle engine over grid.
func NewBattleEngine(gameID string, grid *Grid, scoring *ScoringEngine, clock Clock, bus *rules.EventBus, logger *zap.Logger) *BattleEngine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &BattleEngine{
		gameID:  gameID,
		grid:    grid,
		scoring: scoring,
		clock:   clock,
		bus:     bus,
		logger:  logger,
		timeout: DefaultBattleTimeout,
	}
}

// SetBattleTimeout overrides the per-battle deadline.
func (be *BattleEngine) SetBattleTimeout(d time.Duration) {
	if d > 0 {
		be.timeout = d
	}
}

// Resolve compares two actual types under the fixed cyclic dominance.
// Pure: the same inputs always produce the same winner.
func Resolve(left, right CardType) BattleWinner {
	switch {
	case left.Beats(right):
		return Card1Wins
	case right.Beats(left):
		return Card2Wins
	default:
		return BattleTie
	}
}

// ResolveAll runs one battle-phase pass. Only one pass may be in flight per
// grid; re-entrant calls fail with ErrResolutionInProgress.
func (be *BattleEngine) ResolveAll(players map[string]*Player) (*ResolutionSummary, error) {
	if be.processing {
		return nil, NewStateError("battle.resolve", fmt.Errorf("%w", ErrResolutionInProgress))
	}
	be.processing = true
	defer func() { be.processing = false }()

	pairs := be.grid.BattlePairs()
	if len(pairs) > be.grid.TotalPositions() {
		// Defensive: more battles than slots means the pair enumeration is
		// corrupt. Abort the whole pass rather than score garbage.
		return nil, NewIntegrityError("battle.resolve",
			fmt.Errorf("anomalous battle count %d exceeds %d positions", len(pairs), be.grid.TotalPositions()))
	}

	summary := &ResolutionSummary{}
	battled := make(map[int]bool)

	if be.bus != nil {
		be.bus.Publish(rules.NewEventWithAmount(rules.EventBattleStart, be.gameID, "", "", len(pairs)))
	}

	for _, pair := range pairs {
		battled[pair.LeftPos] = true
		battled[pair.RightPos] = true

		deadline := be.clock.Now().Add(be.timeout)
		result, err := be.resolveBattle(pair, deadline, players)
		if err != nil {
			// A timed-out battle is logged and abandoned, never retried.
			be.logger.Warn("battle abandoned",
				zap.Int("left_pos", pair.LeftPos),
				zap.Int("right_pos", pair.RightPos),
				zap.Error(err),
			)
			summary.SkippedBattles++
			if be.bus != nil {
				evt := rules.NewEvent(rules.EventBattleSkipped, be.gameID, "", pair.Left.ID)
				evt.Position = pair.LeftPos
				be.bus.Publish(evt)
			}
			continue
		}
		summary.Battles = append(summary.Battles, *result)
	}

	if err := be.awardNonBattlers(players, battled, summary); err != nil {
		return nil, err
	}

	if be.bus != nil {
		be.bus.Publish(rules.NewEventWithAmount(rules.EventBattleEnd, be.gameID, "", "", len(summary.Battles)))
	}
	return summary, nil
}

// resolveBattle scores a single pair. The deadline is a defensive check:
// if it has already passed when the battle comes up, the battle is
// abandoned without mutating either card.
func (be *BattleEngine) resolveBattle(pair BattlePair, deadline time.Time, players map[string]*Player) (*BattleResult, error) {
	if be.clock.Now().After(deadline) {
		return nil, NewTimeoutError("battle.single",
			fmt.Errorf("battle at %d,%d overran deadline", pair.LeftPos, pair.RightPos))
	}

	winner := Resolve(pair.Left.Type, pair.Right.Type)
	result := &BattleResult{
		LeftPos:   pair.LeftPos,
		RightPos:  pair.RightPos,
		LeftCard:  pair.Left.ID,
		RightCard: pair.Right.ID,
		LeftType:  pair.Left.Type,
		RightType: pair.Right.Type,
		Winner:    winner,
	}

	now := be.clock.Now()
	leftOutcome, rightOutcome := OutcomeTie, OutcomeTie
	switch winner {
	case Card1Wins:
		leftOutcome, rightOutcome = OutcomeWin, OutcomeLoss
	case Card2Wins:
		leftOutcome, rightOutcome = OutcomeLoss, OutcomeWin
	}

	// Symmetric records: each card sees the battle from its own side.
	pair.Left.RecordBattle(BattleRecord{
		OpponentCardID: pair.Right.ID,
		OpponentType:   pair.Right.Type,
		Outcome:        leftOutcome,
		Position:       pair.LeftPos,
		Timestamp:      now,
	})
	pair.Right.RecordBattle(BattleRecord{
		OpponentCardID: pair.Left.ID,
		OpponentType:   pair.Left.Type,
		Outcome:        rightOutcome,
		Position:       pair.RightPos,
		Timestamp:      now,
	})

	switch winner {
	case Card1Wins:
		if err := be.scoreBattleWin(players, pair.Left.OwnerID, pair.Right.OwnerID); err != nil {
			return nil, err
		}
	case Card2Wins:
		if err := be.scoreBattleWin(players, pair.Right.OwnerID, pair.Left.OwnerID); err != nil {
			return nil, err
		}
	case BattleTie:
		// Ties score nothing for either side and neither card advances.
		if w := players[pair.Left.OwnerID]; w != nil {
			w.Stats.BattlesTied++
		}
		if l := players[pair.Right.OwnerID]; l != nil {
			l.Stats.BattlesTied++
		}
	}

	be.logger.Debug("battle resolved",
		zap.Int("left_pos", pair.LeftPos),
		zap.Int("right_pos", pair.RightPos),
		zap.String("left_type", string(pair.Left.Type)),
		zap.String("right_type", string(pair.Right.Type)),
		zap.String("winner", string(winner)),
	)
	if be.bus != nil {
		evt := rules.NewEvent(rules.EventBattleResult, be.gameID, "", pair.Left.ID)
		evt.Position = pair.LeftPos
		evt.Data = string(winner)
		be.bus.Publish(evt)
	}
	return result, nil
}

func (be *BattleEngine) scoreBattleWin(players map[string]*Player, winnerID, loserID string) error {
	winner := players[winnerID]
	if winner == nil {
		return NewIntegrityError("battle.score", fmt.Errorf("winning card owned by unknown player %s", winnerID))
	}
	winner.Stats.BattlesWon++
	if loser := players[loserID]; loser != nil {
		loser.Stats.BattlesLost++
	}
	return be.scoring.AwardPoints(winner, be.scoring.Weights().BattleWin, ReasonBattleWin)
}

// awardNonBattlers scores advancement and control for every placed card
// that sat out the battles.
func (be *BattleEngine) awardNonBattlers(players map[string]*Player, battled map[int]bool, summary *ResolutionSummary) error {
	for _, pos := range be.grid.OccupiedPositions() {
		if battled[pos] {
			continue
		}
		card := be.grid.CardAt(pos)
		owner := players[card.OwnerID]
		if owner == nil {
			return NewIntegrityError("battle.award", fmt.Errorf("card %s owned by unknown player %s", card.ID, card.OwnerID))
		}

		if right, ok := be.grid.RightNeighbor(pos); ok && be.grid.IsAvailable(right) {
			if err := be.scoring.AwardPoints(owner, be.scoring.Weights().Advancement, ReasonAdvancement); err != nil {
				return err
			}
			summary.AdvancementAwards++
		}

		neighbors, err := be.grid.Adjacent(pos, false)
		if err != nil {
			return err
		}
		for _, n := range neighbors {
			if other := be.grid.CardAt(n); other != nil && other.OwnerID == card.OwnerID {
				if err := be.scoring.AwardPoints(owner, be.scoring.Weights().Control, ReasonControl); err != nil {
					return err
				}
				summary.ControlAwards++
			}
		}
	}
	return nil
}

// SimulatePlacement estimates the immediate score delta of placing card at
// position without mutating anything. Horizontal opponents are scored by
// actual-type dominance; advancement and control follow the same rules as
// real resolution. The AI uses this as its base expected score.
func (be *BattleEngine) SimulatePlacement(card *Card, position int) float64 {
	if card == nil || !be.grid.IsAvailable(position) {
		return 0
	}
	weights := be.scoring.Weights()
	score := 0.0
	inBattle := false

	neighbors, err := be.grid.HorizontalNeighbors(position)
	if err != nil {
		return 0
	}
	for _, n := range neighbors {
		other := be.grid.CardAt(n)
		if other == nil {
			continue
		}
		inBattle = true
		switch {
		case card.Type.Beats(other.Type):
			score += float64(weights.BattleWin)
		case other.Type.Beats(card.Type):
			score -= float64(weights.BattleWin)
		}
	}

	if !inBattle {
		if right, ok := be.grid.RightNeighbor(position); ok && be.grid.IsAvailable(right) {
			score += float64(weights.Advancement)
		}
		adj, err := be.grid.Adjacent(position, false)
		if err == nil {
			for _, n := range adj {
				if other := be.grid.CardAt(n); other != nil && other.OwnerID == card.OwnerID {
					score += float64(weights.Control)
				}
			}
		}
	}
	return score
}
