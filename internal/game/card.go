package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CardType is the actual (or claimed) type of a card.
type CardType string

const (
	TypeRock     CardType = "rock"
	TypePaper    CardType = "paper"
	TypeScissors CardType = "scissors"
)

// CardTypes lists the closed set of valid card types in dominance order.
var CardTypes = []CardType{TypeRock, TypePaper, TypeScissors}

// Valid reports whether t is one of the three playable types.
func (t CardType) Valid() bool {
	switch t {
	case TypeRock, TypePaper, TypeScissors:
		return true
	}
	return false
}

// Beats reports whether t defeats other under the fixed cyclic dominance
// rock > scissors > paper > rock. Equal types never beat each other.
func (t CardType) Beats(other CardType) bool {
	switch t {
	case TypeRock:
		return other == TypeScissors
	case TypePaper:
		return other == TypeRock
	case TypeScissors:
		return other == TypePaper
	}
	return false
}

// CardState tracks a card through its round lifecycle.
type CardState int

const (
	CardInHand CardState = iota
	CardSelected
	CardPlaced
	CardRevealed
)

var cardStateNames = map[CardState]string{
	CardInHand:   "IN_HAND",
	CardSelected: "SELECTED",
	CardPlaced:   "PLACED",
	CardRevealed: "REVEALED",
}

func (s CardState) String() string {
	if name, ok := cardStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CARD_STATE_%d", int(s))
}

// BattleOutcome records which side of a battle a card was on.
type BattleOutcome string

const (
	OutcomeWin  BattleOutcome = "WIN"
	OutcomeLoss BattleOutcome = "LOSS"
	OutcomeTie  BattleOutcome = "TIE"
)

// BattleRecord is one entry in a card's append-only battle history.
type BattleRecord struct {
	OpponentCardID string
	OpponentType   CardType
	Outcome        BattleOutcome
	Position       int
	Timestamp      time.Time
}

// Card is the unit of play. The actual type is fixed at creation; the
// claimed type is declared (possibly falsely) at play time. The owner is
// a player ID, never a pointer, so snapshots stay acyclic.
type Card struct {
	ID          string
	Type        CardType
	ClaimedType CardType // empty until declared
	State       CardState
	Position    int // valid only when HasPosition
	HasPosition bool
	OwnerID     string
	IsRevealed  bool

	history []BattleRecord
}

// NewCard creates a card of the given actual type owned by ownerID.
func NewCard(cardType CardType, ownerID string) (*Card, error) {
	if !cardType.Valid() {
		return nil, NewValidationError("card.new", fmt.Errorf("unknown card type %q", cardType))
	}
	return &Card{
		ID:      uuid.NewString(),
		Type:    cardType,
		State:   CardInHand,
		OwnerID: ownerID,
	}, nil
}

// Claim records the declared type for this card. The claim may differ from
// the actual type; that is the whole game.
func (c *Card) Claim(claimed CardType) error {
	if !claimed.Valid() {
		return NewValidationError("card.claim", fmt.Errorf("unknown claimed type %q", claimed))
	}
	c.ClaimedType = claimed
	return nil
}

// IsBluffing reports whether the card has a claim that differs from its
// actual type.
func (c *Card) IsBluffing() bool {
	return c.ClaimedType != "" && c.ClaimedType != c.Type
}

// SetPlaced moves the card onto the grid at position and keeps the
// position/state invariant intact.
func (c *Card) SetPlaced(position int) {
	c.Position = position
	c.HasPosition = true
	c.State = CardPlaced
}

// Reveal exposes the card's actual type. Revealed cards keep their position.
func (c *Card) Reveal() {
	c.IsRevealed = true
	if c.HasPosition {
		c.State = CardRevealed
	}
}

// ReturnToHand clears positional state, e.g. on a cancelled play.
func (c *Card) ReturnToHand() {
	c.Position = 0
	c.HasPosition = false
	c.State = CardInHand
	c.ClaimedType = ""
}

// RecordBattle appends a battle record to the card's history.
func (c *Card) RecordBattle(rec BattleRecord) {
	c.history = append(c.history, rec)
}

// BattleHistory returns a copy of the card's battle records in order.
func (c *Card) BattleHistory() []BattleRecord {
	out := make([]BattleRecord, len(c.history))
	copy(out, c.history)
	return out
}

// CheckInvariant verifies the position/state coupling: a position is set
// iff the card is placed or revealed on the grid.
func (c *Card) CheckInvariant() error {
	onGrid := c.State == CardPlaced || c.State == CardRevealed
	if c.HasPosition != onGrid {
		return NewIntegrityError("card.invariant",
			fmt.Errorf("card %s state %s with hasPosition=%t", c.ID, c.State, c.HasPosition))
	}
	return nil
}

// CardFactory deals fresh cards. Injected where cards are created so tests
// can control the deal.
type CardFactory interface {
	Deal(ownerID string, count int) ([]*Card, error)
}

// RandomDeal produces hands with uniformly random types drawn from the
// provided source.
type RandomDeal struct {
	Rand interface{ Intn(n int) int }
}

// Deal creates count cards owned by ownerID with random types.
func (f RandomDeal) Deal(ownerID string, count int) ([]*Card, error) {
	cards := make([]*Card, 0, count)
	for i := 0; i < count; i++ {
		card, err := NewCard(CardTypes[f.Rand.Intn(len(CardTypes))], ownerID)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// FixedDeal deals a predetermined sequence of types, cycling when count
// exceeds the sequence. Used by tests and the tutorial.
type FixedDeal struct {
	Types []CardType
}

func (f FixedDeal) Deal(ownerID string, count int) ([]*Card, error) {
	if len(f.Types) == 0 {
		return nil, NewValidationError("card.deal", fmt.Errorf("fixed deal with no types"))
	}
	cards := make([]*Card, 0, count)
	for i := 0; i < count; i++ {
		card, err := NewCard(f.Types[i%len(f.Types)], ownerID)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}
