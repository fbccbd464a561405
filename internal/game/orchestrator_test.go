package game

import (
	"testing"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedDeal hands each player a predetermined type sequence, cycling
// when a hand outlasts its script.
type scriptedDeal struct {
	hands map[string][]CardType
}

func (d scriptedDeal) Deal(ownerID string, count int) ([]*Card, error) {
	types := d.hands[ownerID]
	if len(types) == 0 {
		types = []CardType{TypeRock}
	}
	return FixedDeal{Types: types}.Deal(ownerID, count)
}

// scriptedStrategist plays the first card in hand at the first empty
// position, claiming a fixed offset from the truth.
type scriptedStrategist struct {
	grid        *Grid
	challenge   bool
	claimBluffs bool
}

func (s *scriptedStrategist) PlanPlay(self, _ *Player) (string, int, CardType, bool) {
	if len(self.Hand) == 0 {
		return "", 0, "", false
	}
	empty := s.grid.AvailablePositions()
	if len(empty) == 0 {
		return "", 0, "", false
	}
	card := self.Hand[0]
	claim := card.Type
	if s.claimBluffs {
		claim = beatingTypeOf(card.Type)
	}
	return card.ID, empty[0], claim, true
}

func (s *scriptedStrategist) ConsiderChallenge(*PendingPlay, *Player, *Player) bool {
	return s.challenge
}

func (s *scriptedStrategist) ObserveReveal(string, CardType, CardType, int, bool) {}

func (s *scriptedStrategist) FinishRound(int) {}

func beatingTypeOf(t CardType) CardType {
	switch t {
	case TypeRock:
		return TypePaper
	case TypePaper:
		return TypeScissors
	default:
		return TypeRock
	}
}

type gameFixture struct {
	game  *Game
	sched *ManualScheduler
	bus   *rules.EventBus
	p1    *Player
	p2    *Player
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.GridWidth = 2
	cfg.GridHeight = 2
	cfg.HandSize = 1
	cfg.VictoryPoints = 1
	cfg.MinVictoryLead = 1
	return cfg
}

func newGameFixture(t *testing.T, cfg Config, deal CardFactory) *gameFixture {
	t.Helper()
	p1 := NewPlayer("Alice", PlayerHuman)
	p2 := NewPlayer("Bob", PlayerHuman)
	if deal == nil {
		deal = scriptedDeal{hands: map[string][]CardType{
			p1.ID: {TypeRock},
			p2.ID: {TypeScissors},
		}}
	}
	sched := NewManualScheduler(time.Unix(5000, 0))
	bus := rules.NewEventBus()
	g, err := NewGame("match-1", cfg, p1, p2, sched, deal, bus, zaptest.NewLogger(t))
	require.NoError(t, err)
	return &gameFixture{game: g, sched: sched, bus: bus, p1: p1, p2: p2}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.GridWidth = 1
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.HandSize = 8 // 16 cards cannot fit 15 slots
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.MinVictoryLead = 0
	assert.Error(t, bad.Validate())
}

func TestStartDealsHandsAndEntersPlacement(t *testing.T) {
	f := newGameFixture(t, DefaultConfig(), nil)
	require.NoError(t, f.game.Start())

	assert.Equal(t, rules.StatePlaying, f.game.State())
	assert.Equal(t, rules.PhasePlacement, f.game.Phase())
	assert.Equal(t, 1, f.game.Round())
	assert.Equal(t, f.p1.ID, f.game.CurrentPlayer())
	assert.Equal(t, 5, f.p1.HandSize())
	assert.Equal(t, 5, f.p2.HandSize())
}

func TestPlayValidations(t *testing.T) {
	f := newGameFixture(t, DefaultConfig(), nil)
	require.NoError(t, f.game.Start())

	card := f.p1.Hand[0]

	// Not Bob's turn.
	err := f.game.Play(f.p2.ID, f.p2.Hand[0].ID, 0, TypeRock)
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))

	// Invalid claim.
	err = f.game.Play(f.p1.ID, card.ID, 0, CardType("lizard"))
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	// Unknown card.
	err = f.game.Play(f.p1.ID, "nope", 0, TypeRock)
	assert.Error(t, err)

	// Valid play, then the open window blocks another.
	require.NoError(t, f.game.Play(f.p1.ID, card.ID, 0, TypeRock))
	err = f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 1, TypeRock)
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

func TestTurnAlternatesAfterWindowExpires(t *testing.T) {
	f := newGameFixture(t, DefaultConfig(), nil)
	require.NoError(t, f.game.Start())

	require.NoError(t, f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypeRock))
	assert.Equal(t, f.p1.ID, f.game.CurrentPlayer(), "turn holds while the window is open")

	f.sched.Advance(DefaultChallengeWindow)
	assert.Equal(t, f.p2.ID, f.game.CurrentPlayer())
	assert.Equal(t, 4, f.p1.HandSize())
}

func TestPlayedEventCarriesClaimNotActualType(t *testing.T) {
	f := newGameFixture(t, DefaultConfig(), nil)
	var played []rules.Event
	f.bus.SubscribeTyped(rules.EventCardPlayed, func(evt rules.Event) { played = append(played, evt) })
	require.NoError(t, f.game.Start())

	card := f.p1.Hand[0] // rock per the scripted deal
	require.NoError(t, f.game.Play(f.p1.ID, card.ID, 0, TypePaper))

	require.Len(t, played, 1)
	assert.Equal(t, string(TypePaper), played[0].Data, "opponents see the claim only")
	assert.True(t, card.IsBluffing())
	assert.Equal(t, 1, f.p1.Stats.BluffsAttempted)
}

func TestChallengeDuringWindowAdvancesTurn(t *testing.T) {
	f := newGameFixture(t, DefaultConfig(), nil)
	require.NoError(t, f.game.Start())

	// Alice bluffs: rock claimed as paper.
	require.NoError(t, f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypePaper))

	rec, err := f.game.MakeChallenge(f.p2.ID)
	require.NoError(t, err)
	assert.Equal(t, ChallengeSuccessful, rec.Result)
	assert.Equal(t, 0, f.p2.Score)

	// Resolution closed the window; the turn moved without the timer.
	assert.Equal(t, f.p2.ID, f.game.CurrentPlayer())
}

func TestFullRoundResolvesAndDeclaresWinner(t *testing.T) {
	f := newGameFixture(t, smallConfig(), nil)
	var over []rules.Event
	f.bus.SubscribeTyped(rules.EventGameOver, func(evt rules.Event) { over = append(over, evt) })
	require.NoError(t, f.game.Start())

	require.NoError(t, f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypeRock))
	f.sched.Advance(DefaultChallengeWindow)
	require.NoError(t, f.game.Play(f.p2.ID, f.p2.Hand[0].ID, 1, TypeScissors))
	f.sched.Advance(DefaultChallengeWindow)

	// Rock beat scissors; Alice reached the victory threshold with lead.
	assert.Equal(t, 1, f.p1.Score)
	assert.Equal(t, rules.StateGameOver, f.game.State())
	assert.Equal(t, f.p1.ID, f.game.Winner())
	require.Len(t, over, 1)
	assert.Equal(t, f.p1.ID, over[0].PlayerID)

	// A finished match accepts no further plays.
	err := f.game.Play(f.p2.ID, "x", 2, TypeRock)
	assert.Error(t, err)
}

func TestVictoryRequiresLead(t *testing.T) {
	cfg := DefaultConfig() // first to 10, lead of 2
	f := newGameFixture(t, cfg, nil)
	f.p1.Score = 10
	f.p2.Score = 9
	assert.False(t, f.game.HasWon(f.p1.ID), "threshold met but lead short")

	f.p2.Score = 8
	assert.True(t, f.game.HasWon(f.p1.ID))

	cfg.MinVictoryLead = 1
	f2 := newGameFixture(t, cfg, nil)
	f2.p1.Score = 10
	f2.p2.Score = 9
	assert.True(t, f2.game.HasWon(f2.p1.ID), "lead of one suffices when configured")
}

func TestRoundCapDeclaresLeader(t *testing.T) {
	cfg := smallConfig()
	cfg.VictoryPoints = 100 // unreachable; only the round cap ends this
	cfg.MaxRounds = 1
	f := newGameFixture(t, cfg, nil)
	require.NoError(t, f.game.Start())

	require.NoError(t, f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypeRock))
	f.sched.Advance(DefaultChallengeWindow)
	require.NoError(t, f.game.Play(f.p2.ID, f.p2.Hand[0].ID, 1, TypeScissors))
	f.sched.Advance(DefaultChallengeWindow)

	assert.Equal(t, rules.StateGameOver, f.game.State())
	assert.Equal(t, f.p1.ID, f.game.Winner(), "leader takes a capped match")
}

func TestNextRoundAlternatesFirstPlayer(t *testing.T) {
	cfg := smallConfig()
	cfg.VictoryPoints = 100
	cfg.MaxRounds = 10
	f := newGameFixture(t, cfg, nil)
	require.NoError(t, f.game.Start())

	require.NoError(t, f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypeRock))
	f.sched.Advance(DefaultChallengeWindow)
	require.NoError(t, f.game.Play(f.p2.ID, f.p2.Hand[0].ID, 1, TypeScissors))
	f.sched.Advance(DefaultChallengeWindow)

	assert.Equal(t, 2, f.game.Round())
	assert.Equal(t, f.p2.ID, f.game.CurrentPlayer(), "round two opens with the other player")
	assert.Equal(t, 1, f.p1.HandSize(), "fresh hands each round")
	assert.Empty(t, f.game.Grid().OccupiedPositions(), "grid cleared between rounds")
}

func TestPacingDelayDefersScoring(t *testing.T) {
	cfg := smallConfig()
	cfg.PacingDelay = 2 * time.Second
	f := newGameFixture(t, cfg, nil)
	require.NoError(t, f.game.Start())

	require.NoError(t, f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypeRock))
	f.sched.Advance(DefaultChallengeWindow)
	require.NoError(t, f.game.Play(f.p2.ID, f.p2.Hand[0].ID, 1, TypeScissors))
	f.sched.Advance(DefaultChallengeWindow)

	// Battle has resolved but the round outcome waits on the pacing timer.
	assert.Equal(t, rules.StatePlaying, f.game.State())
	f.sched.Advance(2 * time.Second)
	assert.Equal(t, rules.StateGameOver, f.game.State())
}

func TestPauseBlocksPlays(t *testing.T) {
	f := newGameFixture(t, DefaultConfig(), nil)
	require.NoError(t, f.game.Start())

	require.NoError(t, f.game.Pause())
	assert.Equal(t, rules.StatePaused, f.game.State())

	err := f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypeRock)
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))

	require.NoError(t, f.game.Resume())
	require.NoError(t, f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypeRock))
}

func TestResumeCompletesTurnWhenWindowExpiredDuringPause(t *testing.T) {
	f := newGameFixture(t, DefaultConfig(), nil)
	require.NoError(t, f.game.Start())

	require.NoError(t, f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypeRock))
	require.NoError(t, f.game.Pause())

	// The challenge timer keeps running across the pause and fires here.
	f.sched.Advance(DefaultChallengeWindow)
	assert.Equal(t, rules.StatePaused, f.game.State())
	assert.Equal(t, ChallengeExpired, f.game.Challenge().State())
	assert.Equal(t, f.p1.ID, f.game.CurrentPlayer(), "turn held while paused")

	require.NoError(t, f.game.Resume())
	assert.Equal(t, f.p2.ID, f.game.CurrentPlayer(), "turn completes on resume")
	require.NoError(t, f.game.Play(f.p2.ID, f.p2.Hand[0].ID, 1, TypeScissors))
}

func TestResumeReplaysPacingCancelledByPause(t *testing.T) {
	cfg := smallConfig()
	cfg.PacingDelay = 2 * time.Second
	f := newGameFixture(t, cfg, nil)
	require.NoError(t, f.game.Start())

	require.NoError(t, f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypeRock))
	f.sched.Advance(DefaultChallengeWindow)
	require.NoError(t, f.game.Play(f.p2.ID, f.p2.Hand[0].ID, 1, TypeScissors))
	f.sched.Advance(DefaultChallengeWindow)

	// The pause lands inside the pacing delay and cancels its timer.
	require.NoError(t, f.game.Pause())
	f.sched.Advance(time.Minute)
	assert.Equal(t, rules.StatePaused, f.game.State(), "scoring waits for resume")

	require.NoError(t, f.game.Resume())
	assert.Equal(t, rules.StateGameOver, f.game.State())
	assert.Equal(t, f.p1.ID, f.game.Winner())
}

func TestRoundLeaderCreditedWithRoundWin(t *testing.T) {
	f := newGameFixture(t, smallConfig(), nil)
	require.NoError(t, f.game.Start())

	require.NoError(t, f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypeRock))
	f.sched.Advance(DefaultChallengeWindow)
	require.NoError(t, f.game.Play(f.p2.ID, f.p2.Hand[0].ID, 1, TypeScissors))
	f.sched.Advance(DefaultChallengeWindow)

	// Rock took the battle, so Alice gained the round's points.
	assert.Equal(t, 1, f.p1.Stats.RoundsWon)
	assert.Equal(t, 0, f.p2.Stats.RoundsWon)
}

func TestStartRequiresStrategistForAIPlayer(t *testing.T) {
	p1 := NewPlayer("Alice", PlayerHuman)
	p2 := NewPlayer("Computer", PlayerAI)
	sched := NewManualScheduler(time.Unix(5000, 0))
	deal := scriptedDeal{hands: map[string][]CardType{}}
	g, err := NewGame("match-2", smallConfig(), p1, p2, sched, deal, rules.NewEventBus(), zaptest.NewLogger(t))
	require.NoError(t, err)

	err = g.Start()
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

func TestAttachStrategistValidation(t *testing.T) {
	f := newGameFixture(t, DefaultConfig(), nil)
	s := &scriptedStrategist{grid: f.game.Grid()}
	assert.Error(t, f.game.AttachStrategist("ghost", s))
	assert.Error(t, f.game.AttachStrategist(f.p1.ID, s), "humans take no strategist")
}

func TestAIVersusAIMatchRunsToCompletion(t *testing.T) {
	p1 := NewPlayer("Bot A", PlayerAI)
	p2 := NewPlayer("Bot B", PlayerAI)
	cfg := smallConfig()
	cfg.VictoryPoints = 3
	cfg.MaxRounds = 20
	deal := scriptedDeal{hands: map[string][]CardType{
		p1.ID: {TypeRock},
		p2.ID: {TypeScissors},
	}}
	sched := NewManualScheduler(time.Unix(5000, 0))
	g, err := NewGame("match-3", cfg, p1, p2, sched, deal, rules.NewEventBus(), zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, g.AttachStrategist(p1.ID, &scriptedStrategist{grid: g.Grid()}))
	require.NoError(t, g.AttachStrategist(p2.ID, &scriptedStrategist{grid: g.Grid()}))

	// Computer opponents resolve windows synchronously, so the whole match
	// runs inside Start.
	require.NoError(t, g.Start())
	assert.Equal(t, rules.StateGameOver, g.State())
	assert.Equal(t, p1.ID, g.Winner(), "rock-only beats scissors-only")
	require.NoError(t, g.Grid().CheckInvariant())
}

func TestAIChallengerPunishesBluffs(t *testing.T) {
	human := NewPlayer("Alice", PlayerHuman)
	bot := NewPlayer("Computer", PlayerAI)
	cfg := smallConfig()
	cfg.VictoryPoints = 100
	cfg.MaxRounds = 5
	deal := scriptedDeal{hands: map[string][]CardType{
		human.ID: {TypeRock},
		bot.ID:   {TypePaper},
	}}
	sched := NewManualScheduler(time.Unix(5000, 0))
	bus := rules.NewEventBus()
	g, err := NewGame("match-4", cfg, human, bot, sched, deal, bus, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, g.AttachStrategist(bot.ID, &scriptedStrategist{grid: g.Grid(), challenge: true}))
	require.NoError(t, g.Start())

	// Alice bluffs; the always-challenging bot catches it instantly.
	card := human.Hand[0]
	require.NoError(t, g.Play(human.ID, card.ID, 0, TypeScissors))
	assert.True(t, card.IsRevealed)
	assert.Equal(t, 1, bot.Stats.ChallengesWon)
	assert.Equal(t, 1, human.Stats.BluffsCaught)
}

func TestCommandSurfaceStagedPlay(t *testing.T) {
	f := newGameFixture(t, DefaultConfig(), nil)
	require.NoError(t, f.game.Start())
	card := f.p1.Hand[0]

	assert.False(t, f.game.ConfirmPlay(f.p1.ID), "nothing staged yet")

	assert.True(t, f.game.SelectCard(f.p1.ID, card.ID))
	assert.Equal(t, CardSelected, card.State)
	assert.True(t, f.game.SelectPosition(f.p1.ID, 3))
	assert.True(t, f.game.MakeClaim(f.p1.ID, TypePaper))
	assert.True(t, f.game.ConfirmPlay(f.p1.ID))

	assert.Equal(t, 3, card.Position)
	assert.True(t, card.IsBluffing())
	assert.False(t, f.game.ConfirmPlay(f.p1.ID), "staging cleared after the play")
}

func TestCommandSurfaceRejections(t *testing.T) {
	f := newGameFixture(t, DefaultConfig(), nil)
	require.NoError(t, f.game.Start())

	assert.False(t, f.game.SelectCard("ghost", "x"))
	assert.False(t, f.game.SelectCard(f.p1.ID, "not-held"))
	assert.False(t, f.game.MakeClaim(f.p1.ID, CardType("lizard")))
	assert.False(t, f.game.ChallengeClaim(f.p1.ID), "no pending play to challenge")

	require.NoError(t, f.game.Play(f.p1.ID, f.p1.Hand[0].ID, 0, TypeRock))
	assert.False(t, f.game.SelectPosition(f.p2.ID, 0), "occupied position")
	assert.True(t, f.game.ChallengeClaim(f.p2.ID))
}

func TestCancelPlayRestoresSelection(t *testing.T) {
	f := newGameFixture(t, DefaultConfig(), nil)
	require.NoError(t, f.game.Start())
	card := f.p1.Hand[0]

	require.True(t, f.game.SelectCard(f.p1.ID, card.ID))
	require.True(t, f.game.SelectPosition(f.p1.ID, 2))
	require.True(t, f.game.CancelPlay(f.p1.ID))

	assert.Equal(t, CardInHand, card.State)
	assert.False(t, f.game.ConfirmPlay(f.p1.ID))
	assert.Equal(t, 5, f.p1.HandSize())
}
