package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced session does not exist.
	ErrNotFound = errors.New("game not found")

	// ErrNotAuthorized means the caller's identity does not own the session.
	ErrNotAuthorized = errors.New("not authorized for this game")

	// ErrLevelEnded is returned for clicks arriving after the level's time
	// budget elapsed, even if the expiry timer has not fired yet.
	ErrLevelEnded = errors.New("level has already ended")

	// ErrRoundLimit means startLevel was called with the level counter past
	// the per-round limit. Correct round-completion handling resets the
	// counter, so hitting this indicates a caller logic error.
	ErrRoundLimit = errors.New("round is complete")

	// ErrGuestNotAllowed means a guest identity requested an operation that
	// requires a verifiable credential.
	ErrGuestNotAllowed = errors.New("full verification is not available for guest players")

	// ErrVerification wraps verification-gateway call failures that are
	// fatal to the calling operation.
	ErrVerification = errors.New("verification failed")

	// ErrGameInProgress means a settlement operation was requested before
	// the game ended.
	ErrGameInProgress = errors.New("game is still in progress")

	// ErrNoLedger means no ledger submitter is configured.
	ErrNoLedger = errors.New("ledger submission is not configured")
)

// StateError reports an action attempted outside its legal states. It
// carries enough structure for a client to reconcile and retry.
type StateError struct {
	Action   Action
	Current  State
	Expected []State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("action %s not allowed in state %s (expected one of %v)", e.Action, e.Current, e.Expected)
}

// ActiveSessionError is returned when an identity that already owns an
// active session tries to create another. SessionID is the existing one.
type ActiveSessionError struct {
	SessionID string
}

func (e *ActiveSessionError) Error() string {
	return fmt.Sprintf("player already has active game: %s", e.SessionID)
}
