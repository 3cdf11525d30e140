package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from State
		to   State
		want bool
	}{
		{StateIdle, StateUpdating, true},
		{StateIdle, StateDiscovering, true},
		{StateUpdating, StateDependencyResolving, true},
		{StateUpdating, StateFailed, true},
		{StateDependencyResolving, StateDiscovering, true},
		{StateDiscovering, StateTerminating, true},
		{StateDiscovering, StateLaunching, true}, // nothing running, skip termination
		{StateTerminating, StateDraining, true},
		{StateDraining, StateLaunching, true},
		{StateLaunching, StateConfirmed, true},
		{StateLaunching, StateFailed, true},

		{StateIdle, StateLaunching, false},
		{StateUpdating, StateLaunching, false},
		{StateConfirmed, StateUpdating, false},
		{StateFailed, StateUpdating, false},
		{StateDraining, StateTerminating, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StateConfirmed.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateIdle.IsTerminal())
	assert.False(t, StateLaunching.IsTerminal())
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	assert.Empty(t, stateTransitions[StateConfirmed])
	assert.Empty(t, stateTransitions[StateFailed])
}
