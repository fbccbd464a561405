package game

import (
	"errors"
	"testing"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type challengeFixture struct {
	protocol *ChallengeProtocol
	scoring  *ScoringEngine
	bus      *rules.EventBus
	sched    *ManualScheduler
	alice    *Player
	bob      *Player
}

func newChallengeFixture(t *testing.T) *challengeFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	bus := rules.NewEventBus()
	sched := NewManualScheduler(time.Unix(2000, 0))
	scoring := NewScoringEngine("g1", DefaultScoringWeights(), sched, bus, logger)
	protocol := NewChallengeProtocol("g1", 5*time.Second, sched, scoring, bus, logger)
	return &challengeFixture{
		protocol: protocol,
		scoring:  scoring,
		bus:      bus,
		sched:    sched,
		alice:    NewPlayer("Alice", PlayerHuman),
		bob:      NewPlayer("Bob", PlayerHuman),
	}
}

// playCard places a claimed card for the player and registers it with the
// protocol.
func (f *challengeFixture) playCard(t *testing.T, player *Player, actual, claimed CardType) *Card {
	t.Helper()
	card := mustCard(t, actual, player.ID)
	card.SetPlaced(0)
	require.NoError(t, card.Claim(claimed))
	require.NoError(t, f.protocol.RegisterPlay(card, player.ID))
	return card
}

func TestClampChallengeWindow(t *testing.T) {
	assert.Equal(t, DefaultChallengeWindow, ClampChallengeWindow(0))
	assert.Equal(t, MinChallengeWindow, ClampChallengeWindow(10*time.Millisecond))
	assert.Equal(t, MaxChallengeWindow, ClampChallengeWindow(time.Hour))
	assert.Equal(t, 7*time.Second, ClampChallengeWindow(7*time.Second))
}

func TestRegisterPlayOpensWindow(t *testing.T) {
	f := newChallengeFixture(t)
	card := f.playCard(t, f.alice, TypeRock, TypePaper)

	assert.Equal(t, ChallengeOpen, f.protocol.State())
	pending := f.protocol.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, card.ID, pending.Card.ID)
	assert.Equal(t, TypePaper, pending.ClaimedType)
	assert.Equal(t, TypeRock, pending.ActualType)
}

func TestRegisterPlayValidation(t *testing.T) {
	f := newChallengeFixture(t)

	assert.Error(t, f.protocol.RegisterPlay(nil, f.alice.ID))

	unclaimed := mustCard(t, TypeRock, f.alice.ID)
	unclaimed.SetPlaced(0)
	assert.Error(t, f.protocol.RegisterPlay(unclaimed, f.alice.ID))

	offGrid := mustCard(t, TypeRock, f.alice.ID)
	require.NoError(t, offGrid.Claim(TypeRock))
	assert.Error(t, f.protocol.RegisterPlay(offGrid, f.alice.ID))
}

func TestChallengeCatchesBluff(t *testing.T) {
	f := newChallengeFixture(t)
	f.alice.Score = 3
	f.bob.Score = 3
	card := f.playCard(t, f.alice, TypeRock, TypePaper)

	rec, err := f.protocol.MakeChallenge(f.bob, f.alice)
	require.NoError(t, err)
	assert.Equal(t, ChallengeSuccessful, rec.Result)
	assert.Equal(t, 0, rec.PointsChanged, "successful challenges move no points")
	assert.Equal(t, 3, f.bob.Score)
	assert.Equal(t, 3, f.alice.Score)

	assert.True(t, card.IsRevealed, "deception nullified by reveal")
	assert.Equal(t, 1, f.bob.Stats.ChallengesMade)
	assert.Equal(t, 1, f.bob.Stats.ChallengesWon)
	assert.Equal(t, 1, f.alice.Stats.BluffsCaught)
	assert.Equal(t, ChallengeResolved, f.protocol.State())
}

func TestChallengeAgainstTruthfulClaimCostsPenalty(t *testing.T) {
	f := newChallengeFixture(t)
	f.bob.Score = 2
	card := f.playCard(t, f.alice, TypeRock, TypeRock)

	rec, err := f.protocol.MakeChallenge(f.bob, f.alice)
	require.NoError(t, err)
	assert.Equal(t, ChallengeFailed, rec.Result)
	assert.Equal(t, 1, rec.PointsChanged)
	assert.Equal(t, 1, f.bob.Score)
	assert.True(t, card.IsRevealed, "even a truthful card is revealed by the challenge")
	assert.Equal(t, 0, f.bob.Stats.ChallengesWon)
}

func TestChallengePenaltyClampsAtZero(t *testing.T) {
	f := newChallengeFixture(t)
	f.bob.Score = 0
	f.playCard(t, f.alice, TypeScissors, TypeScissors)

	rec, err := f.protocol.MakeChallenge(f.bob, f.alice)
	require.NoError(t, err)
	assert.Equal(t, ChallengeFailed, rec.Result)
	assert.Equal(t, 0, rec.PointsChanged)
	assert.Equal(t, 0, f.bob.Score, "score never goes negative")
}

func TestSelfChallengeRejected(t *testing.T) {
	f := newChallengeFixture(t)
	f.playCard(t, f.alice, TypeRock, TypePaper)

	_, err := f.protocol.MakeChallenge(f.alice, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSelfChallenge))
	assert.Equal(t, ChallengeOpen, f.protocol.State(), "window survives a rejected challenge")
}

func TestChallengeWithoutPendingPlay(t *testing.T) {
	f := newChallengeFixture(t)
	_, err := f.protocol.MakeChallenge(f.bob, f.alice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoChallengeablePlay))
}

func TestWindowExpiryMakesPlayUnchallengeable(t *testing.T) {
	f := newChallengeFixture(t)
	f.playCard(t, f.alice, TypeRock, TypePaper)

	f.sched.Advance(5 * time.Second)
	assert.Equal(t, ChallengeExpired, f.protocol.State())
	assert.Nil(t, f.protocol.Pending())

	_, err := f.protocol.MakeChallenge(f.bob, f.alice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoChallengeablePlay), "an expired bluff is permanently safe")
}

func TestWindowClosureIsIdempotent(t *testing.T) {
	f := newChallengeFixture(t)
	closed := 0
	f.bus.SubscribeTyped(rules.EventChallengeWindowClosed, func(rules.Event) { closed++ })
	hookFired := 0
	f.protocol.SetOnWindowClosed(func() { hookFired++ })

	f.playCard(t, f.alice, TypeRock, TypePaper)

	f.protocol.CloseChallengeWindow()
	f.protocol.CloseChallengeWindow()
	f.protocol.CloseChallengeWindow()
	f.sched.Advance(10 * time.Second) // stale timer must not re-fire the hook

	assert.Equal(t, 1, closed, "exactly one closed notification")
	assert.Equal(t, 1, hookFired, "hook fires once per window")
}

func TestNewPlayReplacesPendingWindow(t *testing.T) {
	f := newChallengeFixture(t)
	f.playCard(t, f.alice, TypeRock, TypePaper)
	second := f.playCard(t, f.bob, TypeScissors, TypeScissors)

	pending := f.protocol.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, second.ID, pending.Card.ID, "only the newest play is challengeable")

	// The first play's timer was cancelled; advancing past the original
	// deadline only expires the second window, once.
	closed := 0
	f.bus.SubscribeTyped(rules.EventChallengeWindowClosed, func(rules.Event) { closed++ })
	f.sched.Advance(time.Minute)
	assert.Equal(t, 1, closed)
	assert.Equal(t, ChallengeExpired, f.protocol.State())
}

func TestChallengeHistoryBounded(t *testing.T) {
	f := newChallengeFixture(t)
	for i := 0; i < challengeHistoryLimit+10; i++ {
		f.playCard(t, f.alice, TypeRock, TypePaper)
		_, err := f.protocol.MakeChallenge(f.bob, f.alice)
		require.NoError(t, err)
	}
	assert.Len(t, f.protocol.History(), challengeHistoryLimit)
}

func TestProtocolReset(t *testing.T) {
	f := newChallengeFixture(t)
	hookFired := false
	f.protocol.SetOnWindowClosed(func() { hookFired = true })
	f.playCard(t, f.alice, TypeRock, TypePaper)

	f.protocol.Reset()
	assert.Equal(t, ChallengeIdle, f.protocol.State())
	assert.Nil(t, f.protocol.Pending())
	assert.False(t, hookFired, "reset never fires the closed hook")

	f.sched.Advance(time.Minute)
	assert.Equal(t, ChallengeIdle, f.protocol.State(), "reset cancels the timer")
}
