package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/Blockchain-Gods/block-nonce-minigame/internal/game"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/stats"
)

// ErrorResponse is returned for all plain error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Block Nonce API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Block Nonce bug-hunt game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /ws/echo
	getWSEcho, _ := r.NewOperationContext(http.MethodGet, "/ws/echo")
	getWSEcho.SetSummary("WebSocket echo")
	getWSEcho.SetDescription("Upgrades to a WebSocket connection that echoes messages back.")
	getWSEcho.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWSEcho)

	// POST /api/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/api/games")
	createGame.SetSummary("Create game session")
	createGame.SetDescription("Creates a session for the player. An identity may own at most one active session; a duplicate returns 409 with the existing gameId.")
	createGame.AddReqStructure(CreateGameRequest{})
	createGame.AddRespStructure(CreateGameResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ActiveGameResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createGame)

	// POST /api/games/{gameID}/level/start
	startLevel, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/level/start")
	startLevel.SetSummary("Start next level")
	startLevel.SetDescription("Generates the level layout, arms verification for non-guest players, and starts the timer.")
	startLevel.AddReqStructure(AddressRequest{})
	startLevel.AddRespStructure(game.LevelStart{}, openapi.WithHTTPStatus(http.StatusOK))
	startLevel.AddRespStructure(StateErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	startLevel.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	startLevel.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(startLevel)

	// POST /api/games/{gameID}/click
	click, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/click")
	click.SetSummary("Click a cell")
	click.SetDescription("Records a cell attempt during an active level. Clicks after the time budget are rejected.")
	click.AddReqStructure(ClickRequest{})
	click.AddRespStructure(ClickResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	click.AddRespStructure(StateErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(click)

	// POST /api/games/{gameID}/level/end
	endLevel, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/level/end")
	endLevel.SetSummary("End current level")
	endLevel.SetDescription("Concludes the active level and reports the score plus round and game progression.")
	endLevel.AddRespStructure(EndLevelResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	endLevel.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(endLevel)

	// POST /api/games/{gameID}/end
	endGame, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/end")
	endGame.SetSummary("End game with local verification")
	endGame.SetDescription("Settles the session. Guest results settle immediately; others verify through the proof gateway first.")
	endGame.AddRespStructure(EndGameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	endGame.AddRespStructure(StateErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	endGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(endGame)

	// POST /api/games/{gameID}/end/full
	endFull, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/end/full")
	endFull.SetSummary("End game with full verification")
	endFull.SetDescription("Settles through the proof gateway including on-chain verification. Not available to guests.")
	endFull.AddRespStructure(EndGameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	endFull.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	endFull.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(endFull)

	// POST /api/games/{gameID}/transaction
	tx, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/transaction")
	tx.SetSummary("Submit settlement transaction")
	tx.SetDescription("Relays a client-signed transaction to the chain and removes the session on success.")
	tx.AddReqStructure(TransactionRequest{})
	tx.AddRespStructure(TransactionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	tx.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	tx.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(tx)

	// GET /api/games/{gameID}/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/state")
	getState.SetSummary("Get session state")
	getState.SetDescription("Returns the full session snapshot. Pass the owning address as a query parameter.")
	getState.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getState)

	// GET /api/games/{gameID}/result
	getResult, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/result")
	getResult.SetSummary("Get final result")
	getResult.SetDescription("Returns the settled result once the game has ended.")
	getResult.AddRespStructure(game.GameResult{}, openapi.WithHTTPStatus(http.StatusOK))
	getResult.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getResult.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getResult)

	// GET /api/games/{gameID}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of session lifecycle events.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/players/{address}/active
	getActive, _ := r.NewOperationContext(http.MethodGet, "/api/players/{address}/active")
	getActive.SetSummary("Active-game probe")
	getActive.SetDescription("Reports whether the player has an active session and the remaining level time in milliseconds.")
	getActive.AddRespStructure(ActiveGameProbe{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getActive)

	// GET /api/players/{address}/stats
	getStats, _ := r.NewOperationContext(http.MethodGet, "/api/players/{address}/stats")
	getStats.SetSummary("Player statistics")
	getStats.SetDescription("Lifetime aggregates: games played, highest score, highest round.")
	getStats.AddRespStructure(stats.PlayerStats{}, openapi.WithHTTPStatus(http.StatusOK))
	getStats.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getStats)

	// GET /api/actions/{state}
	getActions, _ := r.NewOperationContext(http.MethodGet, "/api/actions/{state}")
	getActions.SetSummary("Valid actions for a state")
	getActions.SetDescription("Returns the actions legal in the given lifecycle state.")
	getActions.AddRespStructure(ValidActionsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getActions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getActions)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
