package ai

import "testing"

func TestPresetFor(t *testing.T) {
	easy, err := PresetFor(DifficultyEasy)
	if err != nil {
		t.Fatalf("PresetFor(easy): %v", err)
	}
	hard, err := PresetFor(DifficultyHard)
	if err != nil {
		t.Fatalf("PresetFor(hard): %v", err)
	}
	if easy.BluffRate >= hard.BluffRate {
		t.Errorf("easy bluff rate %v should be below hard %v", easy.BluffRate, hard.BluffRate)
	}
	if easy.ChallengeRate >= hard.ChallengeRate {
		t.Errorf("easy challenge rate %v should be below hard %v", easy.ChallengeRate, hard.ChallengeRate)
	}
	if easy.MemoryDepth >= hard.MemoryDepth {
		t.Errorf("easy memory depth %d should be below hard %d", easy.MemoryDepth, hard.MemoryDepth)
	}

	if _, err := PresetFor(Difficulty("nightmare")); err == nil {
		t.Error("unknown difficulty accepted")
	}
}

func TestDriftDirections(t *testing.T) {
	ahead := DefaultTraits()
	ahead.Drift(3, 0.1)
	if ahead.Caution <= 0.5 || ahead.Aggression >= 0.5 {
		t.Errorf("winning should drift cautious: %+v", ahead)
	}

	behind := DefaultTraits()
	behind.Drift(-3, 0.1)
	if behind.Aggression <= 0.5 || behind.Deception <= 0.5 {
		t.Errorf("losing should drift aggressive and deceptive: %+v", behind)
	}

	even := DefaultTraits()
	even.Drift(0, 0.1)
	if even != DefaultTraits() {
		t.Errorf("a tied round should not move traits: %+v", even)
	}
}

func TestDriftClampsAtBounds(t *testing.T) {
	tr := DefaultTraits()
	for i := 0; i < 50; i++ {
		tr.Drift(-1, 0.2)
	}
	if tr.Aggression != traitMax || tr.Deception != traitMax {
		t.Errorf("traits should saturate at %v: %+v", traitMax, tr)
	}
	if tr.Caution != traitMin {
		t.Errorf("caution should floor at %v, got %v", traitMin, tr.Caution)
	}

	for i := 0; i < 50; i++ {
		tr.Drift(1, 0.2)
	}
	if tr.Caution != traitMax || tr.Aggression != traitMin {
		t.Errorf("traits should saturate the other way: %+v", tr)
	}
}

func TestDominantStrategy(t *testing.T) {
	cases := []struct {
		name string
		tr   Traits
		want Strategy
	}{
		{"balanced default", DefaultTraits(), StrategyBalanced},
		{"aggressive", Traits{Aggression: 0.8, Caution: 0.2}, StrategyAggressive},
		{"defensive", Traits{Aggression: 0.2, Caution: 0.8}, StrategyDefensive},
		{"inside the band", Traits{Aggression: 0.55, Caution: 0.5}, StrategyBalanced},
	}
	for _, tc := range cases {
		if got := tc.tr.DominantStrategy(); got != tc.want {
			t.Errorf("%s: DominantStrategy() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
