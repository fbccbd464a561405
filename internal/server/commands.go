package server

import (
	"github.com/bluffgrid/bluffgrid-server-go/internal/game"
	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Command is one inbound client frame.
type Command struct {
	Action   string `json:"action"`
	GameID   string `json:"game_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	Name     string `json:"name,omitempty"`
	CardID   string `json:"card_id,omitempty"`
	Position int    `json:"position,omitempty"`
	Claim    string `json:"claim,omitempty"`
}

// outboundFrame is one frame pushed to the client: either an engine
// notification or a direct command acknowledgement.
type outboundFrame struct {
	Type      string            `json:"type"`
	GameID    string            `json:"game_id,omitempty"`
	PlayerID  string            `json:"player_id,omitempty"`
	TargetID  string            `json:"target_id,omitempty"`
	Position  *int              `json:"position,omitempty"`
	Amount    int               `json:"amount,omitempty"`
	Data      string            `json:"data,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Action    string            `json:"action,omitempty"`
	Accepted  bool              `json:"accepted,omitempty"`
	ErrorText string            `json:"error,omitempty"`
}

func frameFromEvent(evt rules.Event) outboundFrame {
	frame := outboundFrame{
		Type:     string(evt.Type),
		GameID:   evt.GameID,
		PlayerID: evt.PlayerID,
		TargetID: evt.TargetID,
		Amount:   evt.Amount,
		Data:     evt.Data,
		Metadata: evt.Metadata,
	}
	if evt.Position >= 0 {
		pos := evt.Position
		frame.Position = &pos
	}
	return frame
}

func ack(cmd Command, accepted bool) outboundFrame {
	return outboundFrame{Type: "command-result", Action: cmd.Action, Accepted: accepted}
}

func reject(cmd Command, reason string) outboundFrame {
	return outboundFrame{Type: "command-result", Action: cmd.Action, ErrorText: reason}
}

func (sess *session) dispatch(cmd Command) {
	if cmd.Action == "new-game" {
		sess.handleNewGame(cmd)
		return
	}

	sess.mu.Lock()
	g := sess.game
	playerID := sess.humanID
	sess.mu.Unlock()
	if g == nil {
		sess.enqueue(reject(cmd, "no active game"))
		return
	}
	if cmd.PlayerID != "" {
		playerID = cmd.PlayerID
	}

	switch cmd.Action {
	case "select-card":
		sess.enqueue(ack(cmd, g.SelectCard(playerID, cmd.CardID)))
	case "select-position":
		sess.enqueue(ack(cmd, g.SelectPosition(playerID, cmd.Position)))
	case "make-claim":
		claim := game.CardType(cmd.Claim)
		if !claim.Valid() {
			sess.enqueue(reject(cmd, "unknown card type"))
			return
		}
		sess.enqueue(ack(cmd, g.MakeClaim(playerID, claim)))
	case "confirm-play":
		sess.enqueue(ack(cmd, g.ConfirmPlay(playerID)))
	case "cancel-play":
		sess.enqueue(ack(cmd, g.CancelPlay(playerID)))
	case "challenge-claim":
		sess.enqueue(ack(cmd, g.ChallengeClaim(playerID)))
	case "pause":
		sess.enqueue(ack(cmd, g.Pause() == nil))
	case "resume":
		sess.enqueue(ack(cmd, g.Resume() == nil))
	default:
		sess.enqueue(reject(cmd, "unknown action"))
	}
}

func (sess *session) handleNewGame(cmd Command) {
	sess.mu.Lock()
	already := sess.game != nil
	sess.mu.Unlock()
	if already {
		sess.enqueue(reject(cmd, "game already running"))
		return
	}

	name := cmd.Name
	if name == "" {
		name = "Player"
	}
	g, err := sess.server.manager.CreateGame(sess.server.gameCfg, name, sess.server.factory)
	if err != nil {
		sess.logger.Error("failed to create game", zap.Error(err))
		sess.enqueue(reject(cmd, "could not create game"))
		return
	}
	humanID := ""
	for _, p := range g.Players() {
		if p.Kind == game.PlayerHuman {
			humanID = p.ID
			break
		}
	}
	sess.attachGame(g, humanID)
	if sess.server.recorder != nil {
		sess.server.recorder.Attach(g)
	}

	if err := g.Start(); err != nil {
		sess.logger.Error("failed to start game", zap.Error(err))
		sess.server.manager.RemoveGame(g.ID)
		sess.enqueue(reject(cmd, "could not start game"))
		return
	}
	sess.enqueue(outboundFrame{
		Type:     "game-created",
		GameID:   g.ID,
		PlayerID: humanID,
		Accepted: true,
	})
}
