package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Blockchain-Gods/block-nonce-minigame/internal/config"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/database"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/game"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/migrations"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/server"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/stats"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/verifier"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Session store ---
	var store game.SessionStore = game.NewMemoryStore()
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		store = game.NewRedisStore(rdb, cfg.SessionTTL)
		logger.Info("connected to redis")
	}

	// --- Ledger (optional) ---
	var ledger game.LedgerSubmitter
	if cfg.RPCURL != "" {
		ledger = verifier.NewLedger(cfg.RPCURL)
		logger.Info("ledger submission enabled", "rpc", cfg.RPCURL)
	}

	// --- Engine ---
	players := stats.NewStore(db)

	tuning := game.DefaultTuning()
	tuning.LevelsPerRound = cfg.LevelsPerRound
	tuning.MaxRounds = cfg.MaxRounds

	engine := game.NewEngine(game.EngineConfig{
		Store:    store,
		Verifier: verifier.New(cfg.ProverURL),
		Ledger:   ledger,
		Recorder: players,
		Logger:   logger,
		Tuning:   tuning,
	})
	defer engine.Close()

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, engine, players, db, rdb, cfg.WebDir)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
