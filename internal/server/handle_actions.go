package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Blockchain-Gods/block-nonce-minigame/internal/game"
)

var knownStates = map[game.State]bool{
	game.StateCreated:       true,
	game.StateLevelStarted:  true,
	game.StateLevelEnded:    true,
	game.StateRoundComplete: true,
	game.StateGameComplete:  true,
}

type ValidActionsResponse struct {
	State        game.State    `json:"state"`
	ValidActions []game.Action `json:"validActions"`
}

func handleValidActions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := game.State(chi.URLParam(r, "state"))
		if !knownStates[state] {
			writeError(w, http.StatusNotFound, "unknown state")
			return
		}
		writeJSON(w, http.StatusOK, ValidActionsResponse{
			State:        state,
			ValidActions: game.ValidActions(state),
		})
	}
}
