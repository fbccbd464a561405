package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlayerKind distinguishes the two controller variants. Closed set; no
// runtime instance sniffing.
type PlayerKind string

const (
	PlayerHuman PlayerKind = "human"
	PlayerAI    PlayerKind = "ai"
)

// PlayerStats accumulates per-match counters.
type PlayerStats struct {
	CardsPlayed     int
	BluffsAttempted int
	BluffsCaught    int // own bluffs that were challenged successfully
	ChallengesMade  int
	ChallengesWon   int
	BattlesWon      int
	BattlesLost     int
	BattlesTied     int
	RoundsWon       int
}

// ProfileAction is one entry in the bounded recent-action window used for
// opponent modeling.
type ProfileAction struct {
	Kind      string // "play", "bluff", "challenge"
	CardType  CardType
	Position  int
	Timestamp time.Time
}

// BehaviorProfile tracks rolling tendencies of a player: how often they
// bluff, how often they challenge, and what types/positions they favor.
type BehaviorProfile struct {
	plays          int
	bluffs         int
	challengeOpps  int // plays by opponents this player could have challenged
	challenges     int
	typeCounts     map[CardType]int
	positionCounts map[int]int
	recent         []ProfileAction
	recentLimit    int
}

// NewBehaviorProfile creates an empty profile with the given recent-action
// window size.
func NewBehaviorProfile(recentLimit int) *BehaviorProfile {
	if recentLimit <= 0 {
		recentLimit = 20
	}
	return &BehaviorProfile{
		typeCounts:     make(map[CardType]int),
		positionCounts: make(map[int]int),
		recentLimit:    recentLimit,
	}
}

// RecordPlay notes a completed play and whether it was a bluff.
func (bp *BehaviorProfile) RecordPlay(cardType CardType, position int, wasBluff bool) {
	bp.plays++
	if wasBluff {
		bp.bluffs++
	}
	bp.typeCounts[cardType]++
	bp.positionCounts[position]++
	kind := "play"
	if wasBluff {
		kind = "bluff"
	}
	bp.pushRecent(ProfileAction{Kind: kind, CardType: cardType, Position: position, Timestamp: time.Now()})
}

// RecordChallengeOpportunity notes that this player saw a challengeable play
// and whether they took it.
func (bp *BehaviorProfile) RecordChallengeOpportunity(challenged bool) {
	bp.challengeOpps++
	if challenged {
		bp.challenges++
		bp.pushRecent(ProfileAction{Kind: "challenge", Timestamp: time.Now()})
	}
}

func (bp *BehaviorProfile) pushRecent(a ProfileAction) {
	bp.recent = append(bp.recent, a)
	if len(bp.recent) > bp.recentLimit {
		bp.recent = bp.recent[len(bp.recent)-bp.recentLimit:]
	}
}

// BluffRate returns the observed fraction of plays that were bluffs.
// Returns 0 before any play is observed.
func (bp *BehaviorProfile) BluffRate() float64 {
	if bp.plays == 0 {
		return 0
	}
	return float64(bp.bluffs) / float64(bp.plays)
}

// ChallengeRate returns the observed fraction of challenge opportunities
// this player took.
func (bp *BehaviorProfile) ChallengeRate() float64 {
	if bp.challengeOpps == 0 {
		return 0
	}
	return float64(bp.challenges) / float64(bp.challengeOpps)
}

// PreferredType returns the most-played type, or ok=false before any play.
func (bp *BehaviorProfile) PreferredType() (CardType, bool) {
	best, bestCount := CardType(""), 0
	for _, t := range CardTypes {
		if bp.typeCounts[t] > bestCount {
			best, bestCount = t, bp.typeCounts[t]
		}
	}
	return best, bestCount > 0
}

// RecentActions returns a copy of the bounded recent-action window.
func (bp *BehaviorProfile) RecentActions() []ProfileAction {
	out := make([]ProfileAction, len(bp.recent))
	copy(out, bp.recent)
	return out
}

// Player holds identity, hand, score and behavioral history. Players
// persist across rounds within a match; ResetForRound clears only the
// per-round card state.
type Player struct {
	ID      string
	Name    string
	Kind    PlayerKind
	Score   int
	Hand    []*Card
	Placed  []string // card IDs currently on the grid
	Stats   PlayerStats
	Profile *BehaviorProfile
}

// NewPlayer creates a player with an empty hand and zero score.
func NewPlayer(name string, kind PlayerKind) *Player {
	return &Player{
		ID:      uuid.NewString(),
		Name:    name,
		Kind:    kind,
		Profile: NewBehaviorProfile(20),
	}
}

// AddToHand appends cards to the player's hand, claiming ownership.
func (p *Player) AddToHand(cards ...*Card) {
	for _, c := range cards {
		c.OwnerID = p.ID
		p.Hand = append(p.Hand, c)
	}
}

// CardInHand returns the held card with the given ID, or nil.
func (p *Player) CardInHand(cardID string) *Card {
	for _, c := range p.Hand {
		if c.ID == cardID {
			return c
		}
	}
	return nil
}

// RemoveFromHand takes the card with the given ID out of the hand and
// returns it, or an error if not held.
func (p *Player) RemoveFromHand(cardID string) (*Card, error) {
	for i, c := range p.Hand {
		if c.ID == cardID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return c, nil
		}
	}
	return nil, NewValidationError("player.hand", fmt.Errorf("card %s not in hand of %s", cardID, p.Name))
}

// MarkPlaced records that the player's card is now on the grid.
func (p *Player) MarkPlaced(cardID string) {
	p.Placed = append(p.Placed, cardID)
}

// HandSize returns the number of cards still held.
func (p *Player) HandSize() int {
	return len(p.Hand)
}

// ResetForRound clears hand and placed-card state; score, stats and
// behavior profile persist for the rest of the match.
func (p *Player) ResetForRound() {
	p.Hand = nil
	p.Placed = nil
}
