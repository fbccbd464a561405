package game

import (
	"fmt"
)

// Grid is a fixed-size positional store of cards. Positions are row-major:
// index = row*width + col. The grid exclusively owns the slot references;
// a card's owner is a player, never the grid.
type Grid struct {
	Width  int
	Height int
	slots  []*Card
}

// BattlePair is a pair of column-adjacent occupied positions in the same row.
type BattlePair struct {
	LeftPos  int
	RightPos int
	Left     *Card
	Right    *Card
}

// NewGrid creates an empty width x height grid.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, NewValidationError("grid.new", fmt.Errorf("invalid dimensions %dx%d", width, height))
	}
	return &Grid{
		Width:  width,
		Height: height,
		slots:  make([]*Card, width*height),
	}, nil
}

// TotalPositions returns the number of slots on the grid.
func (g *Grid) TotalPositions() int {
	return g.Width * g.Height
}

// InRange reports whether position indexes a valid slot.
func (g *Grid) InRange(position int) bool {
	return position >= 0 && position < len(g.slots)
}

// PositionToCoords decomposes a position into (row, col).
func (g *Grid) PositionToCoords(position int) (row, col int, err error) {
	if !g.InRange(position) {
		return 0, 0, NewValidationError("grid.coords", fmt.Errorf("%w: %d", ErrInvalidPosition, position))
	}
	return position / g.Width, position % g.Width, nil
}

// CoordsToPosition composes (row, col) into a position index.
func (g *Grid) CoordsToPosition(row, col int) (int, error) {
	if row < 0 || row >= g.Height || col < 0 || col >= g.Width {
		return 0, NewValidationError("grid.position", fmt.Errorf("%w: row=%d col=%d", ErrInvalidPosition, row, col))
	}
	return row*g.Width + col, nil
}

// Place puts card into the slot at position. The slot must be empty.
func (g *Grid) Place(card *Card, position int) error {
	if card == nil {
		return NewValidationError("grid.place", fmt.Errorf("nil card"))
	}
	if !g.InRange(position) {
		return NewValidationError("grid.place", fmt.Errorf("%w: %d", ErrInvalidPosition, position))
	}
	if g.slots[position] != nil {
		return NewValidationError("grid.place", fmt.Errorf("%w: %d", ErrPositionOccupied, position))
	}
	g.slots[position] = card
	card.SetPlaced(position)
	return nil
}

// Remove clears the slot at position and returns the removed card, or nil
// if the slot was empty.
func (g *Grid) Remove(position int) (*Card, error) {
	if !g.InRange(position) {
		return nil, NewValidationError("grid.remove", fmt.Errorf("%w: %d", ErrInvalidPosition, position))
	}
	card := g.slots[position]
	g.slots[position] = nil
	if card != nil {
		card.ReturnToHand()
	}
	return card, nil
}

// CardAt returns the card occupying position, or nil.
func (g *Grid) CardAt(position int) *Card {
	if !g.InRange(position) {
		return nil
	}
	return g.slots[position]
}

// IsAvailable reports whether position is in range and empty.
func (g *Grid) IsAvailable(position int) bool {
	return g.InRange(position) && g.slots[position] == nil
}

// IsOccupied reports whether position holds a card.
func (g *Grid) IsOccupied(position int) bool {
	return g.InRange(position) && g.slots[position] != nil
}

// AvailablePositions returns every empty slot index in ascending order.
func (g *Grid) AvailablePositions() []int {
	out := make([]int, 0, len(g.slots))
	for i, c := range g.slots {
		if c == nil {
			out = append(out, i)
		}
	}
	return out
}

// OccupiedPositions returns every occupied slot index in ascending order.
func (g *Grid) OccupiedPositions() []int {
	out := make([]int, 0, len(g.slots))
	for i, c := range g.slots {
		if c != nil {
			out = append(out, i)
		}
	}
	return out
}

// Adjacent returns the neighboring positions of position. Orthogonal
// neighbors always; diagonals only when includeDiagonals is set.
func (g *Grid) Adjacent(position int, includeDiagonals bool) ([]int, error) {
	row, col, err := g.PositionToCoords(position)
	if err != nil {
		return nil, err
	}
	deltas := [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	if includeDiagonals {
		deltas = append(deltas, [2]int{-1, -1}, [2]int{-1, 1}, [2]int{1, -1}, [2]int{1, 1})
	}
	out := make([]int, 0, len(deltas))
	for _, d := range deltas {
		r, c := row+d[0], col+d[1]
		if r < 0 || r >= g.Height || c < 0 || c >= g.Width {
			continue
		}
		out = append(out, r*g.Width+c)
	}
	return out, nil
}

// HorizontalNeighbors returns the in-row left and right neighbors of
// position, in that order, omitting positions past a row edge.
func (g *Grid) HorizontalNeighbors(position int) ([]int, error) {
	row, col, err := g.PositionToCoords(position)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, 2)
	if col > 0 {
		out = append(out, row*g.Width+col-1)
	}
	if col < g.Width-1 {
		out = append(out, row*g.Width+col+1)
	}
	return out, nil
}

// RightNeighbor returns the position one column to the right, or ok=false
// at the row edge.
func (g *Grid) RightNeighbor(position int) (int, bool) {
	row, col, err := g.PositionToCoords(position)
	if err != nil || col >= g.Width-1 {
		return 0, false
	}
	return row*g.Width + col + 1, true
}

// BattlePairs enumerates all simultaneous battles left-to-right, top-to-
// bottom. A pair forms only when position and position+1 share a row, are
// column-adjacent, and both slots are occupied. The same-row check stops
// wraparound pairing across row boundaries.
func (g *Grid) BattlePairs() []BattlePair {
	pairs := make([]BattlePair, 0)
	for pos := 0; pos < len(g.slots)-1; pos++ {
		if pos%g.Width == g.Width-1 {
			continue // row edge, position+1 wraps to the next row
		}
		left, right := g.slots[pos], g.slots[pos+1]
		if left == nil || right == nil {
			continue
		}
		pairs = append(pairs, BattlePair{
			LeftPos:  pos,
			RightPos: pos + 1,
			Left:     left,
			Right:    right,
		})
	}
	return pairs
}

// Clear empties every slot, returning removed cards to hand state.
func (g *Grid) Clear() {
	for i, c := range g.slots {
		if c != nil {
			c.ReturnToHand()
		}
		g.slots[i] = nil
	}
}

// CheckInvariant verifies that every occupied slot's card records the slot
// index it occupies.
func (g *Grid) CheckInvariant() error {
	for i, c := range g.slots {
		if c == nil {
			continue
		}
		if !c.HasPosition || c.Position != i {
			return NewIntegrityError("grid.invariant",
				fmt.Errorf("slot %d holds card %s recording position %d (hasPosition=%t)",
					i, c.ID, c.Position, c.HasPosition))
		}
	}
	return nil
}
