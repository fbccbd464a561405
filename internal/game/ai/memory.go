package ai

import (
	"time"

	"github.com/bluffgrid/bluffgrid-server-go/internal/game"
)

// Observation is one remembered reveal of an opponent's play.
type Observation struct {
	OpponentID  string
	ActualType  game.CardType
	ClaimedType game.CardType
	Position    int
	WasBluff    bool
	Timestamp   time.Time
}

// Memory is a bounded ring of observations. Once capacity is reached the
// oldest entries are evicted first.
type Memory struct {
	entries  []Observation
	capacity int
}

// NewMemory creates a memory holding at most capacity observations.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 8
	}
	return &Memory{capacity: capacity}
}

// Observe records a reveal, evicting the oldest entry at capacity.
func (m *Memory) Observe(obs Observation) {
	m.entries = append(m.entries, obs)
	if len(m.entries) > m.capacity {
		m.entries = m.entries[len(m.entries)-m.capacity:]
	}
}

// Len returns the number of stored observations.
func (m *Memory) Len() int {
	return len(m.entries)
}

// BluffRateFor estimates how often the opponent's remembered reveals were
// bluffs. Returns fallback when nothing is remembered about them.
func (m *Memory) BluffRateFor(opponentID string, fallback float64) float64 {
	seen, bluffs := 0, 0
	for _, obs := range m.entries {
		if obs.OpponentID != opponentID {
			continue
		}
		seen++
		if obs.WasBluff {
			bluffs++
		}
	}
	if seen == 0 {
		return fallback
	}
	return float64(bluffs) / float64(seen)
}

// Suspicion scores how much the opponent's recent behavior warrants a
// challenge, weighting newer observations more heavily. Result is in [0,1].
func (m *Memory) Suspicion(opponentID string) float64 {
	var weight, total float64
	n := 0
	for _, obs := range m.entries {
		if obs.OpponentID != opponentID {
			continue
		}
		n++
		// Later entries are newer; weight ramps linearly with recency.
		w := float64(n)
		total += w
		if obs.WasBluff {
			weight += w
		}
	}
	if total == 0 {
		return 0
	}
	return weight / total
}

// TypeFrequencyFor returns how often the opponent's remembered actual types
// matched t, in [0,1].
func (m *Memory) TypeFrequencyFor(opponentID string, t game.CardType) float64 {
	seen, matches := 0, 0
	for _, obs := range m.entries {
		if obs.OpponentID != opponentID {
			continue
		}
		seen++
		if obs.ActualType == t {
			matches++
		}
	}
	if seen == 0 {
		return 0
	}
	return float64(matches) / float64(seen)
}
