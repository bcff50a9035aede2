// Package game implements the session state machine and scoring engine
// for timed bug-hunt sessions: a player clicks cells on a grid with
// hidden targets within a time budget, across levels and rounds.
package game

import (
	"strings"
	"time"
)

// GuestPrefix marks identities without a verifiable credential. Guests
// skip all verification-gateway interaction.
const GuestPrefix = "guest_"

// EndType records how a level or game ended.
type EndType string

const (
	EndTimeout EndType = "timeout"
	EndManual  EndType = "manual"
)

// Position is a cell on the grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// LevelConfig is one level's generated parameters.
type LevelConfig struct {
	GridSize int           `json:"gridSize"`
	Bugs     []Position    `json:"bugs"`
	Duration time.Duration `json:"duration"`
}

// LevelResult is the outcome of one completed level.
type LevelResult struct {
	Level        int           `json:"level"`
	BugsFound    int           `json:"bugsFound"`
	TotalBugs    int           `json:"totalBugs"`
	ClickedCells int           `json:"clickedCells"`
	Duration     time.Duration `json:"duration"`
	Score        int           `json:"score"`
}

// GameResult is the final settlement payload for a session.
type GameResult struct {
	BugsFound              int           `json:"bugsFound"`
	TotalBugs              int           `json:"totalBugs"`
	ClickedCells           int           `json:"clickedCells"`
	Duration               time.Duration `json:"duration"`
	EndType                EndType       `json:"endType"`
	ProofVerified          bool          `json:"proofVerified"`
	VerificationInProgress bool          `json:"verificationInProgress"`
	OnChainVerified        bool          `json:"onChainVerified,omitempty"`
	ContractTxHash         string        `json:"contractTxHash,omitempty"`
}

// Session is one player's complete timed play-through. All fields are
// serializable so stores can persist sessions as JSON; the expiry timer
// handle lives in the engine, keyed by session id, not here.
type Session struct {
	ID           string        `json:"id"`
	Owner        string        `json:"owner"`
	State        State         `json:"state"`
	CurrentRound int           `json:"currentRound"`
	CurrentLevel int           `json:"currentLevel"`
	Config       *LevelConfig  `json:"config,omitempty"`
	ClickedCells []Position    `json:"clickedCells"`
	RoundStats   []LevelResult `json:"roundStats"`
	TotalScore   int           `json:"totalScore"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      time.Time     `json:"endTime,omitzero"`
	IsEnded      bool          `json:"isEnded"`
	EndType      EndType       `json:"endType,omitempty"`
	Result       *GameResult   `json:"result,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// IsGuest reports whether the owner identity is a guest token.
func (s *Session) IsGuest() bool {
	return strings.HasPrefix(s.Owner, GuestPrefix)
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate shared state behind the engine's back.
func (s *Session) Clone() *Session {
	c := *s
	if s.Config != nil {
		cfg := *s.Config
		cfg.Bugs = append([]Position(nil), s.Config.Bugs...)
		c.Config = &cfg
	}
	c.ClickedCells = append([]Position(nil), s.ClickedCells...)
	c.RoundStats = append([]LevelResult(nil), s.RoundStats...)
	if s.Result != nil {
		r := *s.Result
		c.Result = &r
	}
	return &c
}

// bugsFound counts clicked cells that coincide with target positions.
// Repeated clicks on a hit cell count once each, mirroring the
// click-count-based efficiency metric.
func (s *Session) bugsFound() int {
	if s.Config == nil {
		return 0
	}
	n := 0
	for _, cell := range s.ClickedCells {
		for _, bug := range s.Config.Bugs {
			if bug == cell {
				n++
				break
			}
		}
	}
	return n
}

// Snapshot is a read-only view of a session plus the derived action set.
type Snapshot struct {
	Session
	ValidActions []Action `json:"validActions"`
}
