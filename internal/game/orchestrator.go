package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Strategist is the seam between the orchestrator and a computer opponent.
// The bluff decision belongs to the strategist, not to the player model.
type Strategist interface {
	// PlanPlay selects a card, position and claimed type, or ok=false when
	// no play is possible.
	PlanPlay(self, opponent *Player) (cardID string, position int, claim CardType, ok bool)
	// ConsiderChallenge decides whether to contest the pending play.
	ConsiderChallenge(pending *PendingPlay, self, opponent *Player) bool
	// ObserveReveal feeds a revealed play into the strategist's memory.
	ObserveReveal(opponentID string, actual, claimed CardType, position int, wasBluff bool)
	// FinishRound lets the strategist adapt to the round's score
	// differential (own score minus opponent's).
	FinishRound(scoreDiff int)
}

// Config carries the engine-level knobs for one game.
type Config struct {
	GridWidth       int
	GridHeight      int
	HandSize        int
	VictoryPoints   int
	MinVictoryLead  int
	MaxRounds       int
	ChallengeWindow time.Duration
	BattleTimeout   time.Duration
	PacingDelay     time.Duration // pause between battle and scoring, zero for none
	Weights         ScoringWeights
}

// DefaultConfig returns the standard rule set: 5x3 grid, 5-card hands,
// first to 10 with a lead of 2.
func DefaultConfig() Config {
	return Config{
		GridWidth:       5,
		GridHeight:      3,
		HandSize:        5,
		VictoryPoints:   10,
		MinVictoryLead:  2,
		MaxRounds:       50,
		ChallengeWindow: DefaultChallengeWindow,
		BattleTimeout:   DefaultBattleTimeout,
		Weights:         DefaultScoringWeights(),
	}
}

// Validate rejects configurations the engine cannot run.
func (c Config) Validate() error {
	if c.GridWidth <= 1 || c.GridHeight <= 0 {
		return fmt.Errorf("grid must be at least 2x1, got %dx%d", c.GridWidth, c.GridHeight)
	}
	if c.HandSize <= 0 {
		return fmt.Errorf("hand size must be positive, got %d", c.HandSize)
	}
	if c.HandSize*2 > c.GridWidth*c.GridHeight {
		return fmt.Errorf("two hands of %d cannot fit a %dx%d grid", c.HandSize, c.GridWidth, c.GridHeight)
	}
	if c.VictoryPoints <= 0 {
		return fmt.Errorf("victory points must be positive, got %d", c.VictoryPoints)
	}
	if c.MinVictoryLead < 1 {
		return fmt.Errorf("victory lead must be at least 1, got %d", c.MinVictoryLead)
	}
	return nil
}

// Game orchestrates one match: the turn/phase state machine composing the
// grid, battle engine, challenge protocol, scoring engine and strategists.
type Game struct {
	ID  string
	cfg Config

	mu          sync.Mutex
	grid        *Grid
	players     map[string]*Player
	order       [2]string // play order, order[0] acts first in round 1
	scoring     *ScoringEngine
	challenge   *ChallengeProtocol
	battle      *BattleEngine
	rounds      *rules.RoundManager
	states      *rules.StateMachine
	bus         *rules.EventBus
	scheduler   Scheduler
	factory     CardFactory
	logger      *zap.Logger
	strategists map[string]Strategist

	// staged human selections, keyed by player ID
	selectedCard map[string]string
	selectedPos  map[string]int
	stagedClaim  map[string]CardType

	awaitingWindow bool
	roundFirst     string         // who opened the current round
	roundScores    map[string]int // each player's score entering the round
	deferred       func() error   // continuation stashed while paused, replayed by Resume
	pacingTimer    Timer
	winnerID       string
	startedAt      time.Time
}

// lockedScheduler routes timer callbacks through the game lock so scheduled
// work never races the command surface.
type lockedScheduler struct {
	game  *Game
	inner Scheduler
}

func (s *lockedScheduler) Now() time.Time { return s.inner.Now() }

func (s *lockedScheduler) Schedule(d time.Duration, fn func()) Timer {
	return s.inner.Schedule(d, func() {
		s.game.mu.Lock()
		defer s.game.mu.Unlock()
		fn()
	})
}

// NewGame wires a match between two players. Dependencies are explicit:
// the bus, scheduler and card factory are injected, never global.
func NewGame(id string, cfg Config, p1, p2 *Player, scheduler Scheduler, factory CardFactory, bus *rules.EventBus, logger *zap.Logger) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, NewValidationError("game.new", err)
	}
	if p1 == nil || p2 == nil {
		return nil, NewValidationError("game.new", fmt.Errorf("two players required"))
	}
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}
	if bus == nil {
		bus = rules.NewEventBus()
	}

	grid, err := NewGrid(cfg.GridWidth, cfg.GridHeight)
	if err != nil {
		return nil, err
	}

	g := &Game{
		ID:           id,
		cfg:          cfg,
		grid:         grid,
		players:      map[string]*Player{p1.ID: p1, p2.ID: p2},
		order:        [2]string{p1.ID, p2.ID},
		rounds:       rules.NewRoundManager(p1.ID),
		states:       rules.NewStateMachine(),
		bus:          bus,
		scheduler:    scheduler,
		factory:      factory,
		logger:       logger.With(zap.String("game_id", id)),
		strategists:  make(map[string]Strategist),
		selectedCard: make(map[string]string),
		selectedPos:  make(map[string]int),
		stagedClaim:  make(map[string]CardType),
	}

	locked := &lockedScheduler{game: g, inner: scheduler}
	g.scoring = NewScoringEngine(id, cfg.Weights, scheduler, bus, g.logger)
	g.challenge = NewChallengeProtocol(id, cfg.ChallengeWindow, locked, g.scoring, bus, g.logger)
	g.challenge.SetOnWindowClosed(g.handleWindowClosedLocked)
	g.battle = NewBattleEngine(id, grid, g.scoring, scheduler, bus, g.logger)
	g.battle.SetBattleTimeout(cfg.BattleTimeout)
	return g, nil
}

// AttachStrategist binds a computer opponent to the player with the given
// ID. Must be called before Start.
func (g *Game) AttachStrategist(playerID string, s Strategist) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	player, ok := g.players[playerID]
	if !ok {
		return NewValidationError("game.attach", fmt.Errorf("unknown player %s", playerID))
	}
	if player.Kind != PlayerAI {
		return NewValidationError("game.attach", fmt.Errorf("player %s is not an AI", player.Name))
	}
	g.strategists[playerID] = s
	return nil
}

// Start moves the match from the menu into play and begins the first round.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range g.order {
		p := g.players[id]
		if p.Kind == PlayerAI && g.strategists[id] == nil {
			return NewStateError("game.start", fmt.Errorf("AI player %s has no strategist", p.Name))
		}
	}

	if err := g.transitionLocked(rules.StateLoading); err != nil {
		return err
	}
	if err := g.transitionLocked(rules.StatePlaying); err != nil {
		return err
	}
	g.startedAt = g.scheduler.Now()
	g.logger.Info("match started",
		zap.String("player1", g.players[g.order[0]].Name),
		zap.String("player2", g.players[g.order[1]].Name),
	)
	return g.startRoundLocked()
}

// Pause suspends the match. The pacing timer is cancelled and its
// continuation stashed for Resume; the challenge timer keeps running and
// stashes its own continuation through the window-closed hook if it fires.
func (g *Game) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.transitionLocked(rules.StatePaused); err != nil {
		return err
	}
	if g.pacingTimer != nil {
		g.pacingTimer.Stop()
		g.pacingTimer = nil
		g.deferred = g.scoringPhaseLocked
	}
	return nil
}

// Resume returns a paused match to play and replays any continuation that
// was suspended during the pause.
func (g *Game) Resume() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.transitionLocked(rules.StatePlaying); err != nil {
		return err
	}
	if fn := g.deferred; fn != nil {
		g.deferred = nil
		if err := fn(); err != nil {
			return g.failLocked(err)
		}
	}
	return nil
}

// State returns the coarse match state.
func (g *Game) State() rules.GameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.states.Current()
}

// Phase returns the current round phase.
func (g *Game) Phase() rules.Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rounds.CurrentPhase()
}

// Round returns the current round number.
func (g *Game) Round() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rounds.RoundNumber()
}

// CurrentPlayer returns the ID of the player whose turn it is.
func (g *Game) CurrentPlayer() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rounds.CurrentPlayer()
}

// PlayerByID returns the player with the given ID, or nil.
func (g *Game) PlayerByID(id string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.players[id]
}

// Players returns both players in seating order.
func (g *Game) Players() []*Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return []*Player{g.players[g.order[0]], g.players[g.order[1]]}
}

// Opponent returns the other player.
func (g *Game) Opponent(playerID string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.players[g.otherOfLocked(playerID)]
}

// Winner returns the winning player's ID once the match is over.
func (g *Game) Winner() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winnerID
}

// Grid exposes the grid for read-only inspection by views and tests.
func (g *Game) Grid() *Grid {
	return g.grid
}

// Scoring exposes the scoring engine.
func (g *Game) Scoring() *ScoringEngine {
	return g.scoring
}

// Challenge exposes the challenge protocol.
func (g *Game) Challenge() *ChallengeProtocol {
	return g.challenge
}

// Bus exposes the notification channel.
func (g *Game) Bus() *rules.EventBus {
	return g.bus
}

// HasWon reports whether the player currently satisfies the victory
// condition: score at or above the victory threshold and a lead of at
// least the minimum margin.
func (g *Game) HasWon(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasWonLocked(playerID)
}

func (g *Game) hasWonLocked(playerID string) bool {
	player := g.players[playerID]
	opponent := g.players[g.otherOfLocked(playerID)]
	if player == nil || opponent == nil {
		return false
	}
	return player.Score >= g.cfg.VictoryPoints &&
		player.Score-opponent.Score >= g.cfg.MinVictoryLead
}

// Play places cardID at position with the given claim for playerID. This
// is the complete play path used by both the command surface and the AI.
func (g *Game) Play(playerID, cardID string, position int, claim CardType) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playLocked(playerID, cardID, position, claim)
}

// MakeChallenge lets challengerID contest the pending play.
func (g *Game) MakeChallenge(challengerID string) (*ChallengeRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.makeChallengeLocked(challengerID)
}

func (g *Game) transitionLocked(target rules.GameState) error {
	from := g.states.Current()
	if err := g.states.Transition(target); err != nil {
		g.logger.Warn("rejected state transition",
			zap.String("from", string(from)),
			zap.String("to", string(target)),
		)
		return NewStateError("game.transition", err)
	}
	evt := rules.NewEvent(rules.EventGameStateChanged, g.ID, "", "")
	evt.Data = string(target)
	evt.Metadata["from"] = string(from)
	g.bus.Publish(evt)
	return nil
}

// forceTransitionLocked is the error-recovery escape hatch around the
// transition whitelist.
func (g *Game) forceTransitionLocked(target rules.GameState) {
	from := g.states.Current()
	g.states.ForceTransition(target)
	g.logger.Warn("forced state transition",
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	evt := rules.NewEvent(rules.EventGameStateChanged, g.ID, "", "")
	evt.Data = string(target)
	evt.Metadata["from"] = string(from)
	evt.Metadata["forced"] = "true"
	g.bus.Publish(evt)
}

func (g *Game) otherOfLocked(playerID string) string {
	if g.order[0] == playerID {
		return g.order[1]
	}
	return g.order[0]
}

// startRoundLocked clears the grid, deals fresh hands and enters the
// placement phase. Card history from previous rounds stays with the
// players' profiles; the cards themselves are discarded.
func (g *Game) startRoundLocked() error {
	g.grid.Clear()
	g.challenge.Reset()
	g.clearStagedLocked()
	g.awaitingWindow = false

	round := g.rounds.RoundNumber()
	g.roundScores = make(map[string]int, 2)
	for _, id := range g.order {
		p := g.players[id]
		p.ResetForRound()
		g.roundScores[id] = p.Score
		hand, err := g.factory.Deal(id, g.cfg.HandSize)
		if err != nil {
			return g.failLocked(err)
		}
		p.AddToHand(hand...)
		g.bus.Publish(rules.NewEventWithAmount(rules.EventCardDealt, g.ID, id, id, len(hand)))
	}

	// Advance Setup -> Placement.
	g.rounds.AdvancePhase("")
	g.publishPhaseLocked()
	g.roundFirst = g.rounds.CurrentPlayer()

	g.logger.Info("round started", zap.Int("round", round),
		zap.String("first_player", g.players[g.rounds.CurrentPlayer()].Name))
	g.bus.Publish(rules.NewEventWithAmount(rules.EventRoundStarted, g.ID, g.rounds.CurrentPlayer(), "", round))
	g.publishTurnLocked()

	g.runAITurnsLocked()
	return nil
}

func (g *Game) publishPhaseLocked() {
	evt := rules.NewEvent(rules.EventPhaseChanged, g.ID, g.rounds.CurrentPlayer(), "")
	evt.Data = g.rounds.CurrentPhase().String()
	g.bus.Publish(evt)
}

func (g *Game) publishTurnLocked() {
	g.bus.Publish(rules.NewEvent(rules.EventTurnStarted, g.ID, g.rounds.CurrentPlayer(), ""))
}

func (g *Game) playLocked(playerID, cardID string, position int, claim CardType) error {
	if g.states.Current() != rules.StatePlaying {
		return NewStateError("game.play", fmt.Errorf("match is %s, not playing", g.states.Current()))
	}
	if g.rounds.CurrentPhase() != rules.PhasePlacement {
		return NewStateError("game.play", fmt.Errorf("phase is %s, not placement", g.rounds.CurrentPhase()))
	}
	if g.rounds.CurrentPlayer() != playerID {
		return NewStateError("game.play", fmt.Errorf("not %s's turn", playerID))
	}
	if g.awaitingWindow {
		return NewStateError("game.play", fmt.Errorf("challenge window still open"))
	}
	player := g.players[playerID]
	if player == nil {
		return NewValidationError("game.play", fmt.Errorf("unknown player %s", playerID))
	}
	if !claim.Valid() {
		return NewValidationError("game.play", fmt.Errorf("invalid claim %q", claim))
	}

	card := player.CardInHand(cardID)
	if card == nil {
		return NewValidationError("game.play", fmt.Errorf("card %s not in hand", cardID))
	}
	if err := g.grid.Place(card, position); err != nil {
		return err
	}
	if _, err := player.RemoveFromHand(cardID); err != nil {
		// The card was just placed; hand removal failing means the model
		// diverged. Treat as fatal.
		return g.failLocked(NewIntegrityError("game.play", err))
	}
	if err := card.Claim(claim); err != nil {
		return err
	}
	player.MarkPlaced(cardID)
	player.Stats.CardsPlayed++
	if card.IsBluffing() {
		player.Stats.BluffsAttempted++
	}
	player.Profile.RecordPlay(claim, position, card.IsBluffing())

	g.logger.Info("card played",
		zap.String("player", player.Name),
		zap.Int("position", position),
		zap.String("claimed", string(claim)),
	)
	// The outbound payload carries the claim, never the actual type.
	evt := rules.NewEvent(rules.EventCardPlayed, g.ID, playerID, cardID)
	evt.Position = position
	evt.Data = string(claim)
	g.bus.Publish(evt)

	if err := g.challenge.RegisterPlay(card, playerID); err != nil {
		return err
	}
	g.clearStagedForLocked(playerID)

	opponentID := g.otherOfLocked(playerID)
	opponent := g.players[opponentID]
	if strategist := g.strategists[opponentID]; strategist != nil {
		// A computer opponent decides immediately; no need to hold the
		// window open for it.
		pending := g.challenge.Pending()
		if strategist.ConsiderChallenge(pending, opponent, player) {
			opponent.Profile.RecordChallengeOpportunity(true)
			if _, err := g.makeChallengeLocked(opponentID); err != nil {
				return err
			}
		} else {
			opponent.Profile.RecordChallengeOpportunity(false)
			g.challenge.CloseChallengeWindow()
		}
		return nil
	}

	// A human opponent gets the full window; phase advancement suspends
	// until it closes or a challenge resolves.
	g.awaitingWindow = true
	return nil
}

func (g *Game) makeChallengeLocked(challengerID string) (*ChallengeRecord, error) {
	challenger := g.players[challengerID]
	if challenger == nil {
		return nil, NewValidationError("game.challenge", fmt.Errorf("unknown player %s", challengerID))
	}
	pending := g.challenge.Pending()
	defenderID := ""
	if pending != nil {
		defenderID = pending.PlayerID
	}
	rec, err := g.challenge.MakeChallenge(challenger, g.players[defenderID])
	if err != nil {
		return nil, err
	}
	// Every strategist learns from a public reveal.
	for id, s := range g.strategists {
		if id != rec.DefendingPlayerID {
			s.ObserveReveal(rec.DefendingPlayerID, rec.ActualType, rec.ClaimedType, pending.Position, rec.Result == ChallengeSuccessful)
		}
	}
	return rec, nil
}

// handleWindowClosedLocked resumes phase advancement after the challenge
// window closes, whether by expiry or resolution. Called with the game
// lock held (the protocol's timer is routed through lockedScheduler).
func (g *Game) handleWindowClosedLocked() {
	wasAwaiting := g.awaitingWindow
	g.awaitingWindow = false

	if wasAwaiting {
		// The human opponent had the window and let it pass or used it.
		playerID := g.rounds.CurrentPlayer()
		opponentID := g.otherOfLocked(playerID)
		if opp := g.players[opponentID]; opp != nil && opp.Kind == PlayerHuman {
			opp.Profile.RecordChallengeOpportunity(g.challenge.State() == ChallengeResolved)
		}
	}

	if g.states.Current() != rules.StatePlaying {
		// The window timer fired while the match was paused. Finish the
		// turn on resume instead of dropping it.
		g.deferred = func() error {
			g.completeTurnLocked()
			return nil
		}
		return
	}
	g.completeTurnLocked()
}

// completeTurnLocked alternates the turn, or moves to the battle phase when
// both hands are empty.
func (g *Game) completeTurnLocked() {
	if g.bothHandsEmptyLocked() {
		if err := g.beginBattleLocked(); err != nil {
			g.failLocked(err)
		}
		return
	}

	next := g.otherOfLocked(g.rounds.CurrentPlayer())
	if g.players[next].HandSize() == 0 {
		// Opponent is out of cards; the same player continues.
		next = g.rounds.CurrentPlayer()
	}
	g.rounds.SetCurrentPlayer(next)
	g.publishTurnLocked()
	g.runAITurnsLocked()
}

func (g *Game) bothHandsEmptyLocked() bool {
	return g.players[g.order[0]].HandSize() == 0 && g.players[g.order[1]].HandSize() == 0
}

// runAITurnsLocked executes a computer turn synchronously. Successive AI
// turns chain through the window-closed hook, so consecutive computer
// plays recurse here rather than loop.
func (g *Game) runAITurnsLocked() {
	if g.states.Current() != rules.StatePlaying ||
		g.rounds.CurrentPhase() != rules.PhasePlacement ||
		g.awaitingWindow {
		return
	}
	currentID := g.rounds.CurrentPlayer()
	strategist := g.strategists[currentID]
	if strategist == nil {
		return // human turn, wait for commands
	}
	self := g.players[currentID]
	opponent := g.players[g.otherOfLocked(currentID)]
	cardID, position, claim, ok := strategist.PlanPlay(self, opponent)
	if !ok {
		// No playable move; treat as a finished hand.
		g.completeTurnLocked()
		return
	}
	if err := g.playLocked(currentID, cardID, position, claim); err != nil {
		g.failLocked(err)
		return
	}
	// The play either suspended on an open challenge window or already
	// completed the turn through the window-closed hook.
}

// beginBattleLocked advances to the battle phase and resolves all pairs.
func (g *Game) beginBattleLocked() error {
	g.rounds.AdvancePhase("")
	g.publishPhaseLocked()

	if _, err := g.battle.ResolveAll(g.players); err != nil {
		return err
	}

	if g.cfg.PacingDelay > 0 {
		// Presentation pacing lives outside the resolution algorithm: the
		// orchestrator consults the scheduler, the battle engine stays pure.
		locked := &lockedScheduler{game: g, inner: g.scheduler}
		g.pacingTimer = locked.Schedule(g.cfg.PacingDelay, func() {
			g.pacingTimer = nil
			if err := g.scoringPhaseLocked(); err != nil {
				g.failLocked(err)
			}
		})
		return nil
	}
	return g.scoringPhaseLocked()
}

// scoringPhaseLocked closes out the round: adaptation, victory check, and
// either the next round or game over.
func (g *Game) scoringPhaseLocked() error {
	g.rounds.AdvancePhase("")
	g.publishPhaseLocked()

	p1 := g.players[g.order[0]]
	p2 := g.players[g.order[1]]

	// The round goes to whoever gained more points in it.
	gain1 := p1.Score - g.roundScores[p1.ID]
	gain2 := p2.Score - g.roundScores[p2.ID]
	if gain1 > gain2 {
		p1.Stats.RoundsWon++
	} else if gain2 > gain1 {
		p2.Stats.RoundsWon++
	}

	if s := g.strategists[p1.ID]; s != nil {
		s.FinishRound(p1.Score - p2.Score)
	}
	if s := g.strategists[p2.ID]; s != nil {
		s.FinishRound(p2.Score - p1.Score)
	}

	round := g.rounds.RoundNumber()
	g.bus.Publish(rules.NewEventWithAmount(rules.EventRoundEnded, g.ID, "", "", round))

	winnerID := ""
	switch {
	case g.hasWonLocked(p1.ID):
		winnerID = p1.ID
	case g.hasWonLocked(p2.ID):
		winnerID = p2.ID
	case round >= g.cfg.MaxRounds:
		// Round cap reached: the leader takes it, ties stand unresolved.
		if p1.Score > p2.Score {
			winnerID = p1.ID
		} else if p2.Score > p1.Score {
			winnerID = p2.ID
		}
	}

	if winnerID != "" || round >= g.cfg.MaxRounds {
		return g.endGameLocked(winnerID)
	}

	if err := g.transitionLocked(rules.StateRoundEnd); err != nil {
		return err
	}
	if err := g.transitionLocked(rules.StatePlaying); err != nil {
		return err
	}

	// Advance Scoring -> Setup of the next round; the other player opens.
	nextFirst := g.otherOfLocked(g.roundFirst)
	g.rounds.AdvancePhase(nextFirst)
	return g.startRoundLocked()
}

func (g *Game) endGameLocked(winnerID string) error {
	g.winnerID = winnerID
	if winner := g.players[winnerID]; winner != nil {
		g.logger.Info("match over", zap.String("winner", winner.Name), zap.Int("score", winner.Score))
	} else {
		g.logger.Info("match over with no winner")
	}
	if err := g.transitionLocked(rules.StateGameOver); err != nil {
		return err
	}
	evt := rules.NewEvent(rules.EventGameOver, g.ID, winnerID, winnerID)
	g.bus.Publish(evt)
	return nil
}

// failLocked is the phase-boundary failure handler: it emits an error
// notification and, for integrity failures, pauses the match instead of
// letting corrupted state spread.
func (g *Game) failLocked(err error) error {
	g.logger.Error("game error", zap.String("kind", KindOf(err).String()), zap.Error(err))
	evt := rules.NewEvent(rules.EventError, g.ID, "", "")
	evt.Data = err.Error()
	evt.Metadata["kind"] = KindOf(err).String()
	g.bus.Publish(evt)

	if IsIntegrity(err) {
		if g.states.CanTransition(rules.StatePaused) {
			if terr := g.transitionLocked(rules.StatePaused); terr == nil {
				return err
			}
		}
		g.forceTransitionLocked(rules.StatePaused)
	}
	return err
}

func (g *Game) clearStagedLocked() {
	g.selectedCard = make(map[string]string)
	g.selectedPos = make(map[string]int)
	g.stagedClaim = make(map[string]CardType)
}

func (g *Game) clearStagedForLocked(playerID string) {
	delete(g.selectedCard, playerID)
	delete(g.selectedPos, playerID)
	delete(g.stagedClaim, playerID)
}
