package game

import (
	"math/rand/v2"
	"time"
)

// Tuning holds the game's difficulty parameters. Levels get a larger
// grid and a shorter clock as they advance; the bug count is drawn
// uniformly per level and does not scale.
type Tuning struct {
	MinBugs           int
	MaxBugs           int
	BaseGridSize      int
	MaxGridSize       int
	GridSizeIncrement int
	BaseDuration      time.Duration
	MinDuration       time.Duration
	TimeDecrement     time.Duration
	LevelsPerRound    int
	MaxRounds         int

	// RemovalGrace is how long a completed session stays readable in the
	// store before cleanup.
	RemovalGrace time.Duration
}

// DefaultTuning returns the production parameters.
func DefaultTuning() Tuning {
	return Tuning{
		MinBugs:           5,
		MaxBugs:           10,
		BaseGridSize:      8,
		MaxGridSize:       16,
		GridSizeIncrement: 2,
		BaseDuration:      35 * time.Second,
		MinDuration:       15 * time.Second,
		TimeDecrement:     5 * time.Second,
		LevelsPerRound:    5,
		MaxRounds:         3,
		RemovalGrace:      30 * time.Second,
	}
}

// GenerateLevel produces the configuration for a 1-based level number.
// Target positions are rejection-sampled into a uniqueness set, so the
// output always contains exactly the requested count with no duplicates.
func (t Tuning) GenerateLevel(level int) LevelConfig {
	idx := level - 1

	gridSize := t.BaseGridSize + t.GridSizeIncrement*idx
	if gridSize > t.MaxGridSize {
		gridSize = t.MaxGridSize
	}

	duration := t.BaseDuration - t.TimeDecrement*time.Duration(idx)
	if duration < t.MinDuration {
		duration = t.MinDuration
	}

	numBugs := t.MinBugs + rand.IntN(t.MaxBugs-t.MinBugs+1)
	// Sampling cannot terminate if more bugs are requested than cells.
	if max := gridSize * gridSize; numBugs > max {
		numBugs = max
	}

	seen := make(map[Position]struct{}, numBugs)
	bugs := make([]Position, 0, numBugs)
	for len(bugs) < numBugs {
		p := Position{X: rand.IntN(gridSize), Y: rand.IntN(gridSize)}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		bugs = append(bugs, p)
	}

	return LevelConfig{
		GridSize: gridSize,
		Bugs:     bugs,
		Duration: duration,
	}
}
