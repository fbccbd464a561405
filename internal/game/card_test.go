package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardTypeBeats(t *testing.T) {
	assert.True(t, TypeRock.Beats(TypeScissors))
	assert.True(t, TypeScissors.Beats(TypePaper))
	assert.True(t, TypePaper.Beats(TypeRock))

	assert.False(t, TypeScissors.Beats(TypeRock))
	assert.False(t, TypePaper.Beats(TypeScissors))
	assert.False(t, TypeRock.Beats(TypePaper))

	for _, ct := range CardTypes {
		assert.False(t, ct.Beats(ct), "type %s should not beat itself", ct)
	}
}

func TestCardTypeValid(t *testing.T) {
	for _, ct := range CardTypes {
		assert.True(t, ct.Valid())
	}
	assert.False(t, CardType("lizard").Valid())
	assert.False(t, CardType("").Valid())
}

func TestNewCardRejectsUnknownType(t *testing.T) {
	_, err := NewCard(CardType("spock"), "p1")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestCardClaimAndBluffing(t *testing.T) {
	card, err := NewCard(TypeRock, "p1")
	require.NoError(t, err)

	assert.False(t, card.IsBluffing(), "unclaimed card is not bluffing")

	require.NoError(t, card.Claim(TypeRock))
	assert.False(t, card.IsBluffing())

	require.NoError(t, card.Claim(TypePaper))
	assert.True(t, card.IsBluffing())

	assert.Error(t, card.Claim(CardType("nope")))
}

func TestCardLifecycle(t *testing.T) {
	card, err := NewCard(TypeScissors, "p1")
	require.NoError(t, err)
	assert.Equal(t, CardInHand, card.State)
	require.NoError(t, card.CheckInvariant())

	card.SetPlaced(7)
	assert.Equal(t, CardPlaced, card.State)
	assert.True(t, card.HasPosition)
	assert.Equal(t, 7, card.Position)
	require.NoError(t, card.CheckInvariant())

	card.Reveal()
	assert.Equal(t, CardRevealed, card.State)
	assert.True(t, card.IsRevealed)
	assert.Equal(t, 7, card.Position, "revealed cards keep their position")
	require.NoError(t, card.CheckInvariant())

	card.ReturnToHand()
	assert.Equal(t, CardInHand, card.State)
	assert.False(t, card.HasPosition)
	assert.Empty(t, string(card.ClaimedType))
	require.NoError(t, card.CheckInvariant())
}

func TestCardInvariantViolation(t *testing.T) {
	card, err := NewCard(TypeRock, "p1")
	require.NoError(t, err)

	card.HasPosition = true // placed flag without placed state
	err = card.CheckInvariant()
	require.Error(t, err)
	assert.True(t, IsIntegrity(err))
}

func TestCardBattleHistoryIsAppendOnlyCopy(t *testing.T) {
	card, err := NewCard(TypeRock, "p1")
	require.NoError(t, err)

	card.RecordBattle(BattleRecord{OpponentCardID: "x", Outcome: OutcomeWin})
	card.RecordBattle(BattleRecord{OpponentCardID: "y", Outcome: OutcomeLoss})

	history := card.BattleHistory()
	require.Len(t, history, 2)
	assert.Equal(t, OutcomeWin, history[0].Outcome)

	history[0].Outcome = OutcomeTie
	assert.Equal(t, OutcomeWin, card.BattleHistory()[0].Outcome, "history must be a copy")
}

func TestFixedDealCycles(t *testing.T) {
	deal := FixedDeal{Types: []CardType{TypeRock, TypePaper}}
	cards, err := deal.Deal("p1", 5)
	require.NoError(t, err)
	require.Len(t, cards, 5)
	assert.Equal(t, TypeRock, cards[0].Type)
	assert.Equal(t, TypePaper, cards[1].Type)
	assert.Equal(t, TypeRock, cards[2].Type)
	assert.Equal(t, TypeRock, cards[4].Type)
	for _, c := range cards {
		assert.Equal(t, "p1", c.OwnerID)
		assert.Equal(t, CardInHand, c.State)
	}

	_, err = FixedDeal{}.Deal("p1", 1)
	assert.Error(t, err)
}

type fixedIntn struct {
	vals []int
	i    int
}

func (f *fixedIntn) Intn(n int) int {
	v := f.vals[f.i%len(f.vals)] % n
	f.i++
	return v
}

func TestRandomDealUsesSource(t *testing.T) {
	deal := RandomDeal{Rand: &fixedIntn{vals: []int{0, 1, 2}}}
	cards, err := deal.Deal("p2", 3)
	require.NoError(t, err)
	assert.Equal(t, TypeRock, cards[0].Type)
	assert.Equal(t, TypePaper, cards[1].Type)
	assert.Equal(t, TypeScissors, cards[2].Type)
}
