package game

import "fmt"

// State is a session's position in the lifecycle. Every externally
// triggered action is validated against the current state before any
// mutation happens; the engine is the only component that moves a
// session between states.
type State string

const (
	StateCreated       State = "CREATED"
	StateLevelStarted  State = "LEVEL_STARTED"
	StateLevelEnded    State = "LEVEL_ENDED"
	StateRoundComplete State = "ROUND_COMPLETE"
	StateGameComplete  State = "GAME_COMPLETE"
)

// Action names an engine entry point that clients can invoke.
type Action string

const (
	ActionStartLevel  Action = "startLevel"
	ActionHandleClick Action = "handleClick"
	ActionEndLevel    Action = "endLevel"
	ActionEndGame     Action = "endGame"
	ActionEndGameFull Action = "endGameFull"
)

// transitions lists the allowed edges of the lifecycle graph.
// GAME_COMPLETE is terminal and has no outgoing edges.
var transitions = map[State][]State{
	StateCreated:       {StateLevelStarted},
	StateLevelStarted:  {StateLevelEnded, StateRoundComplete, StateGameComplete},
	StateLevelEnded:    {StateLevelStarted},
	StateRoundComplete: {StateLevelStarted, StateGameComplete},
	StateGameComplete:  {},
}

// actionStates maps each action to the states in which it is legal.
// Adding an action without an entry here makes ValidateAction reject it,
// never silently allow it.
var actionStates = map[Action][]State{
	ActionStartLevel:  {StateCreated, StateLevelEnded, StateRoundComplete},
	ActionHandleClick: {StateLevelStarted},
	ActionEndLevel:    {StateLevelStarted},
	ActionEndGame:     {StateLevelEnded, StateRoundComplete, StateGameComplete},
	ActionEndGameFull: {StateLevelEnded, StateRoundComplete, StateGameComplete},
}

// CanTransition reports whether the edge from → to exists in the
// lifecycle graph.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateAction returns a *StateError if the action is not legal in the
// given state.
func ValidateAction(a Action, s State) error {
	allowed, ok := actionStates[a]
	if !ok {
		return fmt.Errorf("unknown action %q", a)
	}
	for _, st := range allowed {
		if st == s {
			return nil
		}
	}
	return &StateError{Action: a, Current: s, Expected: allowed}
}

// ValidActions returns the actions legal in the given state, in a stable
// order. Clients use this to gate their UI; the engine's validation
// remains the source of truth.
func ValidActions(s State) []Action {
	var out []Action
	for _, a := range []Action{ActionStartLevel, ActionHandleClick, ActionEndLevel, ActionEndGame, ActionEndGameFull} {
		for _, st := range actionStates[a] {
			if st == s {
				out = append(out, a)
				break
			}
		}
	}
	return out
}
