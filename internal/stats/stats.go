// Package stats persists per-player aggregates across completed games.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("player not found")

// PlayerStats is the lifetime aggregate for one player identity.
type PlayerStats struct {
	Address      string `json:"address"`
	GamesPlayed  int    `json:"gamesPlayed"`
	HighestScore int    `json:"highestScore"`
	HighestRound int    `json:"highestRound"`
}

// Store reads and writes player aggregates.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordGame folds a completed game into the player's aggregates. The
// counters only ever grow: games_played increments, the score and round
// columns keep their maximum.
func (s *Store) RecordGame(ctx context.Context, identity string, score, round int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO player_stats (address, games_played, highest_score, highest_round, updated_at)
		VALUES (?, 1, ?, ?, datetime('now'))
		ON CONFLICT (address) DO UPDATE SET
			games_played  = games_played + 1,
			highest_score = MAX(highest_score, excluded.highest_score),
			highest_round = MAX(highest_round, excluded.highest_round),
			updated_at    = datetime('now')`,
		identity, score, round,
	)
	if err != nil {
		return fmt.Errorf("recording game for %s: %w", identity, err)
	}
	return nil
}

// PlayerStats returns the aggregates for one identity.
func (s *Store) PlayerStats(ctx context.Context, address string) (*PlayerStats, error) {
	var ps PlayerStats
	err := s.db.QueryRowContext(ctx, `
		SELECT address, games_played, highest_score, highest_round
		FROM player_stats WHERE address = ?`, address,
	).Scan(&ps.Address, &ps.GamesPlayed, &ps.HighestScore, &ps.HighestRound)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading stats for %s: %w", address, err)
	}
	return &ps, nil
}
