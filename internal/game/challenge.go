package game

import (
	"fmt"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// ChallengeState is the protocol's lifecycle state.
type ChallengeState int

const (
	ChallengeIdle ChallengeState = iota
	ChallengeOpen // a play is challengeable
	ChallengeResolved
	ChallengeExpired
)

var challengeStateNames = map[ChallengeState]string{
	ChallengeIdle:     "IDLE",
	ChallengeOpen:     "CHALLENGEABLE",
	ChallengeResolved: "RESOLVED",
	ChallengeExpired:  "EXPIRED",
}

func (s ChallengeState) String() string {
	if name, ok := challengeStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CHALLENGE_STATE_%d", int(s))
}

// ChallengeResult is the outcome of a resolved challenge.
type ChallengeResult string

const (
	ChallengeSuccessful ChallengeResult = "CHALLENGE_SUCCESSFUL" // the play was a bluff
	ChallengeFailed     ChallengeResult = "CHALLENGE_FAILED"     // the claim was truthful
)

// PendingPlay captures the play currently open to challenge.
type PendingPlay struct {
	Card        *Card
	PlayerID    string
	ClaimedType CardType
	ActualType  CardType
	Position    int
	Timestamp   time.Time
}

// ChallengeRecord is the immutable record of one resolved challenge.
type ChallengeRecord struct {
	ChallengerID      string
	DefendingPlayerID string
	CardID            string
	ClaimedType       CardType
	ActualType        CardType
	Result            ChallengeResult
	PointsChanged     int // points lost by the challenger (zero on success)
	Timestamp         time.Time
}

const (
	challengeHistoryLimit = 100

	// MinChallengeWindow and MaxChallengeWindow bound the configurable
	// challenge window duration.
	MinChallengeWindow = 1 * time.Second
	MaxChallengeWindow = 30 * time.Second
	// DefaultChallengeWindow is used when no duration is configured.
	DefaultChallengeWindow = 5 * time.Second
)

// ClampChallengeWindow forces d into the allowed window bounds, substituting
// the default for a zero duration.
func ClampChallengeWindow(d time.Duration) time.Duration {
	if d == 0 {
		return DefaultChallengeWindow
	}
	if d < MinChallengeWindow {
		return MinChallengeWindow
	}
	if d > MaxChallengeWindow {
		return MaxChallengeWindow
	}
	return d
}

// ChallengeProtocol runs the claim/challenge state machine. At most one
// play is challengeable at a time; registering a new play invalidates the
// previous pending timer.
type ChallengeProtocol struct {
	gameID    string
	window    time.Duration
	scheduler Scheduler
	scoring   *ScoringEngine
	bus       *rules.EventBus
	logger    *zap.Logger

	state    ChallengeState
	pending  *PendingPlay
	timer    Timer
	history  []ChallengeRecord
	onClosed func() // orchestrator hook, fired once per window
}

// NewChallengeProtocol creates the protocol with the given window duration
// (clamped to the allowed bounds).
func NewChallengeProtocol(gameID string, window time.Duration, scheduler Scheduler, scoring *ScoringEngine, bus *rules.EventBus, logger *zap.Logger) *ChallengeProtocol {
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}
	return &ChallengeProtocol{
		gameID:    gameID,
		window:    ClampChallengeWindow(window),
		scheduler: scheduler,
		scoring:   scoring,
		bus:       bus,
		logger:    logger,
		state:     ChallengeIdle,
	}
}

// State returns the protocol's current state.
func (cp *ChallengeProtocol) State() ChallengeState {
	return cp.state
}

// Window returns the configured window duration.
func (cp *ChallengeProtocol) Window() time.Duration {
	return cp.window
}

// Pending returns the play currently open to challenge, or nil.
func (cp *ChallengeProtocol) Pending() *PendingPlay {
	if cp.state != ChallengeOpen {
		return nil
	}
	return cp.pending
}

// SetOnWindowClosed registers the hook fired when a window closes for any
// reason (expiry or resolution).
func (cp *ChallengeProtocol) SetOnWindowClosed(fn func()) {
	cp.onClosed = fn
}

// RegisterPlay opens a challenge window for the given play. Any previous
// pending timer is cancelled; only the newest play is challengeable.
func (cp *ChallengeProtocol) RegisterPlay(card *Card, playerID string) error {
	if card == nil {
		return NewValidationError("challenge.register", fmt.Errorf("nil card"))
	}
	if card.ClaimedType == "" {
		return NewValidationError("challenge.register", fmt.Errorf("card %s played without a claim", card.ID))
	}
	if !card.HasPosition {
		return NewValidationError("challenge.register", fmt.Errorf("card %s not on the grid", card.ID))
	}

	if cp.timer != nil {
		cp.timer.Stop()
		cp.timer = nil
	}

	cp.pending = &PendingPlay{
		Card:        card,
		PlayerID:    playerID,
		ClaimedType: card.ClaimedType,
		ActualType:  card.Type,
		Position:    card.Position,
		Timestamp:   cp.scheduler.Now(),
	}
	cp.state = ChallengeOpen
	cp.timer = cp.scheduler.Schedule(cp.window, cp.CloseChallengeWindow)

	cp.logger.Debug("challenge window opened",
		zap.String("player", playerID),
		zap.String("card", card.ID),
		zap.String("claimed", string(card.ClaimedType)),
		zap.Duration("window", cp.window),
	)
	if cp.bus != nil {
		evt := rules.NewEvent(rules.EventChallengeWindowOpen, cp.gameID, playerID, card.ID)
		evt.Position = card.Position
		evt.Data = string(card.ClaimedType)
		cp.bus.Publish(evt)
	}
	return nil
}

// MakeChallenge resolves the pending play against the challenger's doubt.
// On a bluff the deception is nullified and the card revealed; no points
// move. On a truthful claim the challenger pays the penalty, clamped at 0.
func (cp *ChallengeProtocol) MakeChallenge(challenger *Player, defender *Player) (*ChallengeRecord, error) {
	if challenger == nil {
		return nil, NewValidationError("challenge.make", fmt.Errorf("nil challenger"))
	}
	if cp.state != ChallengeOpen || cp.pending == nil {
		return nil, NewProtocolError("challenge.make", fmt.Errorf("%w", ErrNoChallengeablePlay))
	}
	if challenger.ID == cp.pending.PlayerID {
		return nil, NewProtocolError("challenge.make", fmt.Errorf("%w: %s", ErrSelfChallenge, challenger.Name))
	}

	pending := cp.pending
	pending.Card.Reveal()
	wasBluff := pending.ClaimedType != pending.ActualType

	rec := ChallengeRecord{
		ChallengerID:      challenger.ID,
		DefendingPlayerID: pending.PlayerID,
		CardID:            pending.Card.ID,
		ClaimedType:       pending.ClaimedType,
		ActualType:        pending.ActualType,
		Timestamp:         cp.scheduler.Now(),
	}

	challenger.Stats.ChallengesMade++
	if wasBluff {
		rec.Result = ChallengeSuccessful
		challenger.Stats.ChallengesWon++
		if defender != nil {
			defender.Stats.BluffsCaught++
		}
	} else {
		rec.Result = ChallengeFailed
		penalty := cp.scoring.Weights().ChallengePenalty
		before := challenger.Score
		if err := cp.scoring.DeductPoints(challenger, penalty, ReasonChallengePenalty); err != nil {
			return nil, err
		}
		rec.PointsChanged = before - challenger.Score
	}

	cp.history = append(cp.history, rec)
	if len(cp.history) > challengeHistoryLimit {
		cp.history = cp.history[len(cp.history)-challengeHistoryLimit:]
	}

	cp.logger.Info("challenge resolved",
		zap.String("challenger", challenger.Name),
		zap.String("result", string(rec.Result)),
		zap.String("claimed", string(rec.ClaimedType)),
		zap.String("actual", string(rec.ActualType)),
	)
	if cp.bus != nil {
		evt := rules.NewEvent(rules.EventChallengeMade, cp.gameID, challenger.ID, rec.CardID)
		evt.Data = string(rec.Result)
		cp.bus.Publish(evt)
		revealed := rules.NewEvent(rules.EventCardRevealed, cp.gameID, pending.PlayerID, rec.CardID)
		revealed.Data = string(rec.ActualType)
		revealed.Position = pending.Position
		cp.bus.Publish(revealed)
	}

	cp.state = ChallengeResolved
	cp.closeWindow()
	return &rec, nil
}

// CloseChallengeWindow expires the pending play, making it permanently
// non-challengeable. Idempotent: repeated calls beyond the first are no-ops
// and produce no duplicate side effects.
func (cp *ChallengeProtocol) CloseChallengeWindow() {
	if cp.state != ChallengeOpen {
		// Already resolved or expired; still cancel a stray timer.
		if cp.timer != nil {
			cp.timer.Stop()
			cp.timer = nil
		}
		return
	}
	cp.state = ChallengeExpired
	cp.logger.Debug("challenge window expired",
		zap.String("player", cp.pending.PlayerID),
		zap.String("card", cp.pending.Card.ID),
	)
	cp.closeWindow()
}

// closeWindow cancels the timer, publishes the closed notification and
// fires the orchestrator hook. Runs once per window by construction: both
// callers flip state away from ChallengeOpen first.
func (cp *ChallengeProtocol) closeWindow() {
	if cp.timer != nil {
		cp.timer.Stop()
		cp.timer = nil
	}
	var playerID, cardID string
	if cp.pending != nil {
		playerID, cardID = cp.pending.PlayerID, cp.pending.Card.ID
	}
	cp.pending = nil
	if cp.bus != nil {
		cp.bus.Publish(rules.NewEvent(rules.EventChallengeWindowClosed, cp.gameID, playerID, cardID))
	}
	if cp.onClosed != nil {
		cp.onClosed()
	}
}

// Reset returns the protocol to idle between rounds without firing hooks.
func (cp *ChallengeProtocol) Reset() {
	if cp.timer != nil {
		cp.timer.Stop()
		cp.timer = nil
	}
	cp.pending = nil
	cp.state = ChallengeIdle
}

// History returns a copy of the bounded challenge history, oldest first.
func (cp *ChallengeProtocol) History() []ChallengeRecord {
	out := make([]ChallengeRecord, len(cp.history))
	copy(out, cp.history)
	return out
}
