package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Blockchain-Gods/block-nonce-minigame/internal/game"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/stats"
)

type ActiveGameProbe struct {
	HasActiveGame bool   `json:"hasActiveGame"`
	GameID        string `json:"gameId,omitempty"`
	RemainingMs   int64  `json:"remainingTime,omitempty"`
}

func handleActiveGame(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := engine.ActiveSession(r.Context(), chi.URLParam(r, "address"))
		if err != nil {
			writeGameError(w, err)
			return
		}
		if info == nil {
			writeJSON(w, http.StatusOK, ActiveGameProbe{HasActiveGame: false})
			return
		}
		writeJSON(w, http.StatusOK, ActiveGameProbe{
			HasActiveGame: true,
			GameID:        info.SessionID,
			RemainingMs:   info.RemainingTime.Milliseconds(),
		})
	}
}

func handlePlayerStats(players *stats.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := players.PlayerStats(r.Context(), chi.URLParam(r, "address"))
		if errors.Is(err, stats.ErrNotFound) {
			writeError(w, http.StatusNotFound, "stats not found for address")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, ps)
	}
}
