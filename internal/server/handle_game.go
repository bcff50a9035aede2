package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Blockchain-Gods/block-nonce-minigame/internal/game"
)

type CreateGameRequest struct {
	Address string `json:"address"`
}

type CreateGameResponse struct {
	GameID string `json:"gameId"`
}

func handleCreateGame(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Address = strings.TrimSpace(req.Address)
		if req.Address == "" {
			writeError(w, http.StatusBadRequest, "address is required")
			return
		}

		id, err := engine.CreateSession(r.Context(), req.Address)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, CreateGameResponse{GameID: id})
	}
}

type AddressRequest struct {
	Address string `json:"address"`
}

func handleStartLevel(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddressRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		start, err := engine.StartLevel(r.Context(), chi.URLParam(r, "gameID"), req.Address)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, start)
	}
}

type ClickRequest struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Address string `json:"address"`
}

type ClickResponse struct {
	State        game.State    `json:"state"`
	ValidActions []game.Action `json:"validActions"`
}

func handleClick(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClickRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		pos := game.Position{X: req.X, Y: req.Y}
		state, err := engine.HandleClick(r.Context(), chi.URLParam(r, "gameID"), pos, req.Address)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ClickResponse{
			State:        state,
			ValidActions: game.ValidActions(state),
		})
	}
}

type EndLevelResponse struct {
	Success bool               `json:"success"`
	GameID  string             `json:"gameId"`
	Outcome *game.LevelOutcome `json:"result"`
}

func handleEndLevel(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "gameID")

		out, err := engine.EndLevel(r.Context(), id, game.EndManual)
		if err != nil {
			writeGameError(w, err)
			return
		}
		if out == nil {
			// Already ended, usually a race with the expiry timer.
			writeError(w, http.StatusConflict, "level has already ended")
			return
		}
		writeJSON(w, http.StatusOK, EndLevelResponse{
			Success: true,
			GameID:  id,
			Outcome: out,
		})
	}
}

type EndGameResponse struct {
	Success bool             `json:"success"`
	GameID  string           `json:"gameId"`
	Result  *game.GameResult `json:"result"`
}

func handleEndGame(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "gameID")

		result, err := engine.EndGame(r.Context(), id, game.EndManual)
		if err != nil {
			writeGameError(w, err)
			return
		}
		if result == nil {
			// Unknown session or already settled.
			result, err = engine.GetResult(r.Context(), id)
			if err != nil {
				writeGameError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, EndGameResponse{
			Success: true,
			GameID:  id,
			Result:  result,
		})
	}
}

func handleEndGameFull(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "gameID")

		result, err := engine.EndGameFull(r.Context(), id, game.EndManual)
		if err != nil {
			writeGameError(w, err)
			return
		}
		if result == nil {
			writeError(w, http.StatusNotFound, game.ErrNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, EndGameResponse{
			Success: true,
			GameID:  id,
			Result:  result,
		})
	}
}

type TransactionRequest struct {
	Address  string `json:"address"`
	SignedTx string `json:"signedTransaction"`
}

type TransactionResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash"`
}

func handleTransaction(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransactionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SignedTx == "" {
			writeError(w, http.StatusBadRequest, "signedTransaction is required")
			return
		}

		hash, err := engine.ProcessTransaction(r.Context(), chi.URLParam(r, "gameID"), req.Address, req.SignedTx)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, TransactionResponse{Success: true, TxHash: hash})
	}
}

func handleGameState(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := r.URL.Query().Get("address")

		snap, err := engine.GetState(r.Context(), chi.URLParam(r, "gameID"), address)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleGameResult(engine *game.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := engine.GetResult(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
