package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/blocknonce.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	WebDir   string     `env:"WEB_DIR" envDefault:"../web/dist"`

	// REDIS_URL selects the redis-backed session store; empty keeps
	// sessions in memory.
	RedisURL   string        `env:"REDIS_URL"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`

	// ProverURL points at the verification gateway. RPCURL enables the
	// on-chain ledger submitter; empty disables chain settlement.
	ProverURL string `env:"PROVER_URL" envDefault:"http://localhost:3001"`
	RPCURL    string `env:"RPC_URL"`

	LevelsPerRound int `env:"LEVELS_PER_ROUND" envDefault:"5"`
	MaxRounds      int `env:"MAX_ROUNDS" envDefault:"3"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
