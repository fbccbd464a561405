package ai

import "fmt"

// Difficulty selects a preset parameterization for the decision engine.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Preset parameterizes an engine instance.
type Preset struct {
	BluffRate      float64 // base probability of bluffing on a play
	ChallengeRate  float64 // base probability of challenging a pending play
	MemoryDepth    int     // bounded observation memory per engine
	AdaptationRate float64 // how fast traits drift after each round
}

var presets = map[Difficulty]Preset{
	DifficultyEasy: {
		BluffRate:      0.15,
		ChallengeRate:  0.20,
		MemoryDepth:    8,
		AdaptationRate: 0.05,
	},
	DifficultyMedium: {
		BluffRate:      0.30,
		ChallengeRate:  0.35,
		MemoryDepth:    16,
		AdaptationRate: 0.10,
	},
	DifficultyHard: {
		BluffRate:      0.45,
		ChallengeRate:  0.50,
		MemoryDepth:    32,
		AdaptationRate: 0.20,
	},
}

// PresetFor returns the preset for the difficulty, or an error for an
// unknown one.
func PresetFor(d Difficulty) (Preset, error) {
	p, ok := presets[d]
	if !ok {
		return Preset{}, fmt.Errorf("unknown difficulty %q", d)
	}
	return p, nil
}

// Strategy is the play-selection posture.
type Strategy string

const (
	StrategyAggressive Strategy = "aggressive"
	StrategyDefensive  Strategy = "defensive"
	StrategyBalanced   Strategy = "balanced"
)

// Trait bounds. Drift never pushes a trait outside these.
const (
	traitMin = 0.1
	traitMax = 0.9
)

// Traits are the tunable personality dials. All live in [traitMin, traitMax].
type Traits struct {
	Aggression   float64 // favors attacking placements and challenges
	Caution      float64 // scales risk discounting and challenge restraint
	Deception    float64 // scales bluff likelihood
	Adaptability float64 // scales selection randomness
}

// DefaultTraits returns a neutral personality.
func DefaultTraits() Traits {
	return Traits{
		Aggression:   0.5,
		Caution:      0.5,
		Deception:    0.5,
		Adaptability: 0.5,
	}
}

func clampTrait(v float64) float64 {
	if v < traitMin {
		return traitMin
	}
	if v > traitMax {
		return traitMax
	}
	return v
}

// Drift moves the traits after a round based on the score differential
// (own score minus opponent's). Ahead drifts cautious and defensive;
// behind drifts aggressive and deceptive.
func (t *Traits) Drift(scoreDiff int, rate float64) {
	switch {
	case scoreDiff > 0:
		t.Caution = clampTrait(t.Caution + rate)
		t.Aggression = clampTrait(t.Aggression - rate)
		t.Deception = clampTrait(t.Deception - rate/2)
	case scoreDiff < 0:
		t.Aggression = clampTrait(t.Aggression + rate)
		t.Deception = clampTrait(t.Deception + rate)
		t.Caution = clampTrait(t.Caution - rate/2)
	}
}

// DominantStrategy derives the posture from the current traits.
func (t Traits) DominantStrategy() Strategy {
	switch {
	case t.Aggression > t.Caution+0.1:
		return StrategyAggressive
	case t.Caution > t.Aggression+0.1:
		return StrategyDefensive
	default:
		return StrategyBalanced
	}
}
