package capture

import "sync"

// State is the lifecycle position of a channel.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitialized   State = "initialized"
	StateActive        State = "active"
	StatePaused        State = "paused"
	StateStopped       State = "stopped"
	StateFailed        State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

var transitions = map[State][]State{
	StateUninitialized: {StateInitialized},
	StateInitialized:   {StateActive},
	StateActive:        {StatePaused, StateStopped},
	StatePaused:        {StateActive, StateStopped},
}

// CanTransition reports whether from -> to is a legal channel transition.
// Failed is reachable from every non-terminal state.
func CanTransition(from, to State) bool {
	if to == StateFailed {
		return !from.Terminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lifecycle is a mutex-guarded State that only moves along legal edges.
// Channel implementations embed it.
type Lifecycle struct {
	mu    sync.Mutex
	state State
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current()
}

// Transition moves to the given state or returns a TransitionError.
func (l *Lifecycle) Transition(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	from := l.current()
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	l.state = to
	return nil
}

// Fail moves to Failed unless already terminal. It reports whether the state
// changed.
func (l *Lifecycle) Fail() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current().Terminal() {
		return false
	}
	l.state = StateFailed
	return true
}

func (l *Lifecycle) current() State {
	if l.state == "" {
		return StateUninitialized
	}
	return l.state
}
