package server

import (
	"errors"
	"net/http"

	"github.com/Blockchain-Gods/block-nonce-minigame/internal/game"
)

// StateErrorResponse is the 409 payload for actions attempted outside
// their legal states. It carries enough for a client to reconcile its
// view of the session and retry.
type StateErrorResponse struct {
	Error          string        `json:"error"`
	CurrentState   game.State    `json:"currentState"`
	ExpectedStates []game.State  `json:"expectedStates"`
	ValidActions   []game.Action `json:"validActions"`
}

// ActiveGameResponse is the 409 payload for duplicate session creation,
// pointing the client at its existing session.
type ActiveGameResponse struct {
	Error  string `json:"error"`
	GameID string `json:"gameId"`
}

// writeGameError maps engine errors onto the HTTP surface.
func writeGameError(w http.ResponseWriter, err error) {
	var stateErr *game.StateError
	if errors.As(err, &stateErr) {
		writeJSON(w, http.StatusConflict, StateErrorResponse{
			Error:          stateErr.Error(),
			CurrentState:   stateErr.Current,
			ExpectedStates: stateErr.Expected,
			ValidActions:   game.ValidActions(stateErr.Current),
		})
		return
	}
	var activeErr *game.ActiveSessionError
	if errors.As(err, &activeErr) {
		writeJSON(w, http.StatusConflict, ActiveGameResponse{
			Error:  activeErr.Error(),
			GameID: activeErr.SessionID,
		})
		return
	}

	switch {
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrNotAuthorized), errors.Is(err, game.ErrGuestNotAllowed):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrLevelEnded), errors.Is(err, game.ErrRoundLimit):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrGameInProgress):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrVerification):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, game.ErrNoLedger):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
