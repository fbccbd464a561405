package game

import (
	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Inbound command surface. Each command maps 1:1 onto an orchestrator
// action and returns plain success/failure; a failed command is a silent
// no-op as far as the engine is concerned, the input layer owns any
// user-facing messaging.

// SelectCard stages a card from the player's hand for the next play.
func (g *Game) SelectCard(playerID, cardID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.states.Current() != rules.StatePlaying || g.rounds.CurrentPhase() != rules.PhasePlacement {
		return false
	}
	player := g.players[playerID]
	if player == nil {
		return false
	}
	card := player.CardInHand(cardID)
	if card == nil {
		return false
	}
	card.State = CardSelected
	if prev, ok := g.selectedCard[playerID]; ok && prev != cardID {
		if prevCard := player.CardInHand(prev); prevCard != nil {
			prevCard.State = CardInHand
		}
	}
	g.selectedCard[playerID] = cardID
	g.bus.Publish(rules.NewEvent(rules.EventCardSelected, g.ID, playerID, cardID))
	return true
}

// SelectPosition stages the grid position for the next play.
func (g *Game) SelectPosition(playerID string, position int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.states.Current() != rules.StatePlaying || g.rounds.CurrentPhase() != rules.PhasePlacement {
		return false
	}
	if _, ok := g.players[playerID]; !ok {
		return false
	}
	if !g.grid.IsAvailable(position) {
		return false
	}
	g.selectedPos[playerID] = position
	return true
}

// MakeClaim stages the declared type for the next play.
func (g *Game) MakeClaim(playerID string, claim CardType) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.players[playerID]; !ok {
		return false
	}
	if !claim.Valid() {
		return false
	}
	g.stagedClaim[playerID] = claim
	return true
}

// ConfirmPlay commits the staged card/position/claim as a play.
func (g *Game) ConfirmPlay(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	cardID, okCard := g.selectedCard[playerID]
	position, okPos := g.selectedPos[playerID]
	claim, okClaim := g.stagedClaim[playerID]
	if !okCard || !okPos || !okClaim {
		return false
	}
	if err := g.playLocked(playerID, cardID, position, claim); err != nil {
		g.logger.Debug("confirm-play rejected", zap.String("player", playerID), zap.Error(err))
		return false
	}
	return true
}

// CancelPlay discards any staged selection.
func (g *Game) CancelPlay(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	player := g.players[playerID]
	if player == nil {
		return false
	}
	if cardID, ok := g.selectedCard[playerID]; ok {
		if card := player.CardInHand(cardID); card != nil {
			card.State = CardInHand
		}
	}
	g.clearStagedForLocked(playerID)
	g.bus.Publish(rules.NewEvent(rules.EventPlayCanceled, g.ID, playerID, ""))
	return true
}

// ChallengeClaim contests the pending play on behalf of playerID.
func (g *Game) ChallengeClaim(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	player := g.players[playerID]
	if player == nil {
		return false
	}
	// The challenge-opportunity bookkeeping happens in the window-closed
	// hook, which sees both taken and passed windows.
	if _, err := g.makeChallengeLocked(playerID); err != nil {
		g.logger.Debug("challenge rejected", zap.String("player", playerID), zap.Error(err))
		return false
	}
	return true
}
