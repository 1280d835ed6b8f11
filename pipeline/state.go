package pipeline

import (
	"fmt"
	"slices"

	apperrors "github.com/kbukum/voxkit/errors"
)

// State is a step of one run.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateProbingHealth
	StateTranscribing
	StateSummarizing
	StateComplete
	StateErrored
)

var stateNames = [...]string{"idle", "resolving", "probing_health", "transcribing", "summarizing", "complete", "errored"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateComplete || s == StateErrored }

var transitions = map[State][]State{
	StateIdle:          {StateResolving},
	StateResolving:     {StateProbingHealth, StateTranscribing, StateErrored},
	StateProbingHealth: {StateTranscribing, StateErrored},
	StateTranscribing:  {StateSummarizing, StateErrored},
	StateSummarizing:   {StateComplete, StateErrored},
}

// machine enforces the run's state order.
type machine struct {
	state State
	trail []State
}

func newMachine() *machine {
	return &machine{state: StateIdle, trail: []State{StateIdle}}
}

func (m *machine) to(next State) error {
	if !slices.Contains(transitions[m.state], next) {
		return apperrors.Internal(fmt.Errorf("invalid pipeline transition %s -> %s", m.state, next))
	}
	m.state = next
	m.trail = append(m.trail, next)
	return nil
}

// fail moves to Errored from any non-terminal, non-idle state.
func (m *machine) fail() {
	if m.state != StateIdle && !m.state.Terminal() {
		m.state = StateErrored
		m.trail = append(m.trail, StateErrored)
	}
}
