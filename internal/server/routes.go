package server

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"

	"github.com/Blockchain-Gods/block-nonce-minigame/internal/game"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/stats"
)

func addRoutes(r chi.Router, logger *slog.Logger, engine *game.Engine, players *stats.Store, db *sql.DB, rdb *redis.Client, webDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Block Nonce API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))
	r.Get("/ws/echo", handleWSEcho(logger))

	// Game session lifecycle.
	r.Route("/api/games", func(r chi.Router) {
		r.Post("/", handleCreateGame(engine))
		r.Post("/{gameID}/level/start", handleStartLevel(engine))
		r.Post("/{gameID}/click", handleClick(engine))
		r.Post("/{gameID}/level/end", handleEndLevel(engine))
		r.Post("/{gameID}/end", handleEndGame(engine))
		r.Post("/{gameID}/end/full", handleEndGameFull(engine))
		r.Post("/{gameID}/transaction", handleTransaction(engine))
		r.Get("/{gameID}/state", handleGameState(engine))
		r.Get("/{gameID}/result", handleGameResult(engine))
		r.Get("/{gameID}/events", handleEvents(engine.Events()))
	})

	// Player lookups.
	r.Route("/api/players/{address}", func(r chi.Router) {
		r.Get("/active", handleActiveGame(engine))
		r.Get("/stats", handlePlayerStats(players))
	})

	// State machine introspection.
	r.Get("/api/actions/{state}", handleValidActions())

	if webDir != "" {
		if info, err := os.Stat(webDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", webDir)
			r.NotFound(handleSPA(webDir))
		}
	}
}
