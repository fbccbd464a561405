package rules

import (
	"fmt"
	"strings"
)

// Phase represents the phases of a single round.
type Phase int

const (
	PhaseSetup Phase = iota
	PhasePlacement
	PhaseBattle
	PhaseScoring
)

var phaseNames = map[Phase]string{
	PhaseSetup:     "SETUP",
	PhasePlacement: "PLACEMENT",
	PhaseBattle:    "BATTLE",
	PhaseScoring:   "SCORING",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// phaseSequence is the fixed round structure.
var phaseSequence = []Phase{
	PhaseSetup,
	PhasePlacement,
	PhaseBattle,
	PhaseScoring,
}

// RoundManager tracks the current player and round/phase progression.
type RoundManager struct {
	orderIndex    int
	roundNumber   int
	currentPlayer string
}

// NewRoundManager creates a round manager initialized at round 1, setup
// phase, with the given player acting first.
func NewRoundManager(firstPlayer string) *RoundManager {
	return &RoundManager{
		orderIndex:    0,
		roundNumber:   1,
		currentPlayer: strings.TrimSpace(firstPlayer),
	}
}

// CurrentPhase returns the phase currently in progress.
func (rm *RoundManager) CurrentPhase() Phase {
	return phaseSequence[rm.orderIndex]
}

// RoundNumber returns the current round number (1-based).
func (rm *RoundManager) RoundNumber() int {
	return rm.roundNumber
}

// CurrentPlayer returns the player whose turn it is.
func (rm *RoundManager) CurrentPlayer() string {
	return rm.currentPlayer
}

// SetCurrentPlayer hands the turn to player.
func (rm *RoundManager) SetCurrentPlayer(player string) {
	rm.currentPlayer = strings.TrimSpace(player)
}

// AdvancePhase advances to the next phase of the round. When the end of the
// round is reached the round number is incremented and the turn passes to
// nextFirstPlayer if provided.
func (rm *RoundManager) AdvancePhase(nextFirstPlayer string) Phase {
	rm.orderIndex++
	if rm.orderIndex >= len(phaseSequence) {
		rm.orderIndex = 0
		rm.roundNumber++
		if next := strings.TrimSpace(nextFirstPlayer); next != "" {
			rm.currentPlayer = next
		}
	}
	return rm.CurrentPhase()
}

// GameState is the coarse match-level state machine.
type GameState string

const (
	StateMenu     GameState = "MENU"
	StateLoading  GameState = "LOADING"
	StatePlaying  GameState = "PLAYING"
	StatePaused   GameState = "PAUSED"
	StateRoundEnd GameState = "ROUND_END"
	StateGameOver GameState = "GAME_OVER"
	StateTutorial GameState = "TUTORIAL"
)

// allowedTransitions whitelists legal state changes. Anything else is
// rejected unless forced.
var allowedTransitions = map[GameState][]GameState{
	StateMenu:     {StateLoading, StateTutorial},
	StateLoading:  {StatePlaying, StateMenu},
	StatePlaying:  {StatePaused, StateRoundEnd, StateGameOver},
	StatePaused:   {StatePlaying, StateMenu, StateGameOver},
	StateRoundEnd: {StatePlaying, StateGameOver},
	StateGameOver: {StateMenu, StateLoading},
	StateTutorial: {StateMenu, StateLoading},
}

// StateMachine guards the coarse game state with an explicit transition
// whitelist.
type StateMachine struct {
	current GameState
}

// NewStateMachine starts the machine in the menu state.
func NewStateMachine() *StateMachine {
	return &StateMachine{current: StateMenu}
}

// Current returns the current state.
func (sm *StateMachine) Current() GameState {
	return sm.current
}

// CanTransition reports whether moving to target is whitelisted from the
// current state.
func (sm *StateMachine) CanTransition(target GameState) bool {
	for _, allowed := range allowedTransitions[sm.current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Transition moves to target if the whitelist permits it.
func (sm *StateMachine) Transition(target GameState) error {
	if !sm.CanTransition(target) {
		return fmt.Errorf("illegal transition %s -> %s", sm.current, target)
	}
	sm.current = target
	return nil
}

// ForceTransition moves to target regardless of the whitelist. Error
// recovery escape hatch; callers should log when they use it.
func (sm *StateMachine) ForceTransition(target GameState) {
	sm.current = target
}
