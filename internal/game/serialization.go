package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game/rules"
)

// CardRecord is the plain serialized form of a Card. Owner references are
// IDs; resolution back to Player objects happens on restore through an
// externally supplied map.
type CardRecord struct {
	ID          string
	Type        CardType
	ClaimedType CardType
	State       CardState
	Position    int
	HasPosition bool
	OwnerID     string
	IsRevealed  bool
	History     []BattleRecord
}

// PlayerRecord is the plain serialized form of a Player.
type PlayerRecord struct {
	ID      string
	Name    string
	Kind    PlayerKind
	Score   int
	HandIDs []string
	Placed  []string
	Stats   PlayerStats
}

// Snapshot is a complete, acyclic record of one game's state, sufficient
// to reconstruct it.
type Snapshot struct {
	GameID        string
	State         rules.GameState
	Phase         rules.Phase
	Round         int
	CurrentPlayer string
	GridWidth     int
	GridHeight    int
	Slots         []string // card ID per slot, empty string for vacant
	Cards         map[string]CardRecord
	Players       map[string]PlayerRecord
	PlayerOrder   []string
	WinnerID      string
	Timestamp     time.Time
}

// SnapshotChecksum is a deterministic digest of a snapshot, used to guard
// against divergent restores.
type SnapshotChecksum struct {
	Hash    string
	Version int
}

// Snapshot captures the game's current state as plain records.
func (g *Game) Snapshot() *Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := &Snapshot{
		GameID:        g.ID,
		State:         g.states.Current(),
		Phase:         g.rounds.CurrentPhase(),
		Round:         g.rounds.RoundNumber(),
		CurrentPlayer: g.rounds.CurrentPlayer(),
		GridWidth:     g.grid.Width,
		GridHeight:    g.grid.Height,
		Slots:         make([]string, g.grid.TotalPositions()),
		Cards:         make(map[string]CardRecord),
		Players:       make(map[string]PlayerRecord),
		PlayerOrder:   []string{g.order[0], g.order[1]},
		WinnerID:      g.winnerID,
		Timestamp:     g.scheduler.Now(),
	}

	record := func(c *Card) {
		snap.Cards[c.ID] = CardRecord{
			ID:          c.ID,
			Type:        c.Type,
			ClaimedType: c.ClaimedType,
			State:       c.State,
			Position:    c.Position,
			HasPosition: c.HasPosition,
			OwnerID:     c.OwnerID,
			IsRevealed:  c.IsRevealed,
			History:     c.BattleHistory(),
		}
	}

	for pos := 0; pos < g.grid.TotalPositions(); pos++ {
		if c := g.grid.CardAt(pos); c != nil {
			snap.Slots[pos] = c.ID
			record(c)
		}
	}
	for _, id := range g.order {
		p := g.players[id]
		rec := PlayerRecord{
			ID:     p.ID,
			Name:   p.Name,
			Kind:   p.Kind,
			Score:  p.Score,
			Placed: append([]string(nil), p.Placed...),
			Stats:  p.Stats,
		}
		for _, c := range p.Hand {
			rec.HandIDs = append(rec.HandIDs, c.ID)
			record(c)
		}
		snap.Players[id] = rec
	}
	return snap
}

// RestoreCards rebuilds Card objects from a snapshot, resolving owners
// through the supplied id -> player map. Cards are re-attached to hands
// and grid slots.
func (s *Snapshot) RestoreCards(grid *Grid, players map[string]*Player) error {
	if grid.Width != s.GridWidth || grid.Height != s.GridHeight {
		return NewValidationError("snapshot.restore",
			fmt.Errorf("grid %dx%d does not match snapshot %dx%d", grid.Width, grid.Height, s.GridWidth, s.GridHeight))
	}

	built := make(map[string]*Card, len(s.Cards))
	for id, rec := range s.Cards {
		if _, ok := players[rec.OwnerID]; !ok {
			return NewValidationError("snapshot.restore", fmt.Errorf("card %s owned by unknown player %s", id, rec.OwnerID))
		}
		card := &Card{
			ID:          rec.ID,
			Type:        rec.Type,
			ClaimedType: rec.ClaimedType,
			State:       rec.State,
			Position:    rec.Position,
			HasPosition: rec.HasPosition,
			OwnerID:     rec.OwnerID,
			IsRevealed:  rec.IsRevealed,
		}
		for _, h := range rec.History {
			card.RecordBattle(h)
		}
		if err := card.CheckInvariant(); err != nil {
			return err
		}
		built[id] = card
	}

	grid.Clear()
	for pos, id := range s.Slots {
		if id == "" {
			continue
		}
		card, ok := built[id]
		if !ok {
			return NewIntegrityError("snapshot.restore", fmt.Errorf("slot %d references missing card %s", pos, id))
		}
		grid.slots[pos] = card
		card.Position = pos
		card.HasPosition = true
	}

	for id, rec := range s.Players {
		p := players[id]
		if p == nil {
			return NewValidationError("snapshot.restore", fmt.Errorf("snapshot player %s has no live counterpart", id))
		}
		p.Score = rec.Score
		p.Stats = rec.Stats
		p.Hand = nil
		p.Placed = append([]string(nil), rec.Placed...)
		for _, cardID := range rec.HandIDs {
			card, ok := built[cardID]
			if !ok {
				return NewIntegrityError("snapshot.restore", fmt.Errorf("hand references missing card %s", cardID))
			}
			p.Hand = append(p.Hand, card)
		}
	}
	return grid.CheckInvariant()
}

// ComputeChecksum generates a deterministic checksum over the snapshot,
// independent of map iteration order and of the capture timestamp.
func (s *Snapshot) ComputeChecksum() (*SnapshotChecksum, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%s|%s|%d|%s|%s\n",
		s.GameID, s.State, s.Phase, s.Round, s.CurrentPlayer, s.WinnerID)
	fmt.Fprintf(&buf, "GRID:%dx%d\n", s.GridWidth, s.GridHeight)
	for pos, id := range s.Slots {
		if id != "" {
			fmt.Fprintf(&buf, "SLOT:%d=%s\n", pos, id)
		}
	}

	cardIDs := make([]string, 0, len(s.Cards))
	for id := range s.Cards {
		cardIDs = append(cardIDs, id)
	}
	sort.Strings(cardIDs)
	for _, id := range cardIDs {
		c := s.Cards[id]
		fmt.Fprintf(&buf, "CARD:%s|%s|%s|%s|%d|%t|%s|%t|%d\n",
			c.ID, c.Type, c.ClaimedType, c.State, c.Position, c.HasPosition, c.OwnerID, c.IsRevealed, len(c.History))
	}

	playerIDs := make([]string, 0, len(s.Players))
	for id := range s.Players {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)
	for _, id := range playerIDs {
		p := s.Players[id]
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%s|%d|%d|%d\n",
			p.ID, p.Name, p.Kind, p.Score, len(p.HandIDs), len(p.Placed))
		for _, cardID := range p.HandIDs {
			fmt.Fprintf(&buf, "  HAND:%s\n", cardID)
		}
	}

	fmt.Fprintf(&buf, "ORDER:%v\n", s.PlayerOrder)

	hash := sha256.Sum256(buf.Bytes())
	return &SnapshotChecksum{
		Hash:    hex.EncodeToString(hash[:]),
		Version: 1,
	}, nil
}

// SerializeToBytes encodes the snapshot with gob.
func (s *Snapshot) SerializeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeFromBytes decodes a snapshot produced by SerializeToBytes.
func DeserializeFromBytes(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// ValidateSerializationRoundtrip verifies a snapshot survives encode and
// decode without drift by comparing checksums.
func ValidateSerializationRoundtrip(s *Snapshot) error {
	original, err := s.ComputeChecksum()
	if err != nil {
		return err
	}
	data, err := s.SerializeToBytes()
	if err != nil {
		return err
	}
	decoded, err := DeserializeFromBytes(data)
	if err != nil {
		return err
	}
	restored, err := decoded.ComputeChecksum()
	if err != nil {
		return err
	}
	if original.Hash != restored.Hash {
		return fmt.Errorf("checksum mismatch: original=%s, restored=%s", original.Hash, restored.Hash)
	}
	return nil
}
