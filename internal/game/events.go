package game

import (
	"encoding/json"
	"sync"
)

// Event types published by the engine. Delivery is fire-and-forget and
// at-least-once; consumers must tolerate duplicates.
const (
	EventStateChanged  = "state_changed"
	EventLevelEnded    = "level_ended"
	EventRoundComplete = "round_complete"
	EventGameComplete  = "game_complete"
	EventGameEnded     = "game_ended"
	EventGameEndedFull = "game_ended_full"
	EventContractError = "contract_error"
)

// Event is the payload published to session subscribers.
type Event struct {
	Type          string       `json:"type"`
	SessionID     string       `json:"gameId"`
	State         State        `json:"state,omitempty"`
	ValidActions  []Action     `json:"validActions,omitempty"`
	Status        string       `json:"status,omitempty"`
	EndType       EndType      `json:"endType,omitempty"`
	Level         *LevelResult `json:"result,omitempty"`
	Game          *GameResult  `json:"gameResult,omitempty"`
	Round         *Aggregate   `json:"roundStats,omitempty"`
	RoundComplete bool         `json:"roundComplete,omitempty"`
	CurrentRound  int          `json:"currentRound,omitempty"`
	TotalScore    int          `json:"totalScore,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// Broker is an in-process pub/sub for engine events, keyed by session id.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the
// given session.
func (b *Broker) Subscribe(sessionID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan []byte]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the session's subscribers.
func (b *Broker) Unsubscribe(sessionID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given session.
func (b *Broker) Publish(ev Event) {
	data, _ := json.Marshal(ev)
	b.mu.RLock()
	for ch := range b.subs[ev.SessionID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
