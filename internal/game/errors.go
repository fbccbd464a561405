package game

import (
	"errors"
	"fmt"
)

// Sentinel errors for the most common rejection paths. Callers match these
// with errors.Is; richer context travels in the wrapping error.
var (
	// ErrPositionOccupied is returned when a card is placed on a non-empty slot.
	ErrPositionOccupied = errors.New("position already occupied")
	// ErrInvalidPosition is returned for positions outside the grid range.
	ErrInvalidPosition = errors.New("invalid grid position")
	// ErrNoChallengeablePlay is returned when a challenge arrives with no
	// pending play or after the window elapsed.
	ErrNoChallengeablePlay = errors.New("no challengeable play")
	// ErrSelfChallenge is returned when a player challenges their own play.
	ErrSelfChallenge = errors.New("cannot challenge own play")
	// ErrResolutionInProgress is returned when a battle resolution pass is
	// requested while another is still in flight on the same grid.
	ErrResolutionInProgress = errors.New("battle resolution already in progress")
)

// ErrorKind classifies a failure for the orchestrator's phase-boundary
// handling. Validation, state and protocol failures are caller-recoverable;
// integrity failures pause the match.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindState
	KindProtocol
	KindTimeout
	KindIntegrity
)

var errorKindNames = map[ErrorKind]string{
	KindValidation: "VALIDATION",
	KindState:      "STATE",
	KindProtocol:   "PROTOCOL",
	KindTimeout:    "TIMEOUT",
	KindIntegrity:  "INTEGRITY",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ERROR_KIND_%d", int(k))
}

// GameError carries a classified failure through the engine.
type GameError struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "grid.place"
	Err  error
}

func (e *GameError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *GameError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps err as a caller-recoverable validation failure.
func NewValidationError(op string, err error) *GameError {
	return &GameError{Kind: KindValidation, Op: op, Err: err}
}

// NewStateError wraps err as an illegal-for-current-state failure.
func NewStateError(op string, err error) *GameError {
	return &GameError{Kind: KindState, Op: op, Err: err}
}

// NewProtocolError wraps err as a challenge-protocol failure.
func NewProtocolError(op string, err error) *GameError {
	return &GameError{Kind: KindProtocol, Op: op, Err: err}
}

// NewTimeoutError wraps err as a deadline overrun on a single battle.
func NewTimeoutError(op string, err error) *GameError {
	return &GameError{Kind: KindTimeout, Op: op, Err: err}
}

// NewIntegrityError wraps err as a fatal invariant violation. The
// orchestrator pauses the match when one of these propagates.
func NewIntegrityError(op string, err error) *GameError {
	return &GameError{Kind: KindIntegrity, Op: op, Err: err}
}

// IsIntegrity reports whether err carries an integrity classification.
func IsIntegrity(err error) bool {
	var ge *GameError
	return errors.As(err, &ge) && ge.Kind == KindIntegrity
}

// KindOf extracts the classification from err, defaulting to validation
// for unclassified errors.
func KindOf(err error) ErrorKind {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindValidation
}
