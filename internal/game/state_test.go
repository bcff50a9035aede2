package game

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateCreated, StateLevelStarted},
		{StateLevelStarted, StateLevelEnded},
		{StateLevelStarted, StateRoundComplete},
		{StateLevelStarted, StateGameComplete},
		{StateLevelEnded, StateLevelStarted},
		{StateRoundComplete, StateLevelStarted},
		{StateRoundComplete, StateGameComplete},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s should be allowed", tr.from, tr.to)
		}
	}

	// Every edge not listed above is forbidden, including everything out
	// of the terminal state.
	states := []State{StateCreated, StateLevelStarted, StateLevelEnded, StateRoundComplete, StateGameComplete}
	isAllowed := func(from, to State) bool {
		for _, tr := range allowed {
			if tr.from == from && tr.to == to {
				return true
			}
		}
		return false
	}
	for _, from := range states {
		for _, to := range states {
			if isAllowed(from, to) {
				continue
			}
			if CanTransition(from, to) {
				t.Errorf("%s -> %s should be forbidden", from, to)
			}
		}
	}
}

func TestValidateAction(t *testing.T) {
	if err := ValidateAction(ActionStartLevel, StateCreated); err != nil {
		t.Errorf("startLevel in CREATED: %v", err)
	}
	if err := ValidateAction(ActionHandleClick, StateLevelStarted); err != nil {
		t.Errorf("handleClick in LEVEL_STARTED: %v", err)
	}

	err := ValidateAction(ActionHandleClick, StateCreated)
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected *StateError, got %v", err)
	}
	if stateErr.Current != StateCreated {
		t.Errorf("current = %s, want %s", stateErr.Current, StateCreated)
	}
	if len(stateErr.Expected) != 1 || stateErr.Expected[0] != StateLevelStarted {
		t.Errorf("expected states = %v, want [LEVEL_STARTED]", stateErr.Expected)
	}

	if err := ValidateAction(Action("bogus"), StateCreated); err == nil {
		t.Error("unknown action should be rejected")
	}
}

func TestValidActions(t *testing.T) {
	tests := []struct {
		state State
		want  []Action
	}{
		{StateCreated, []Action{ActionStartLevel}},
		{StateLevelStarted, []Action{ActionHandleClick, ActionEndLevel}},
		{StateLevelEnded, []Action{ActionStartLevel, ActionEndGame, ActionEndGameFull}},
		{StateRoundComplete, []Action{ActionStartLevel, ActionEndGame, ActionEndGameFull}},
		{StateGameComplete, []Action{ActionEndGame, ActionEndGameFull}},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			got := ValidActions(tt.state)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
