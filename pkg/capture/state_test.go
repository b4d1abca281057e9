package capture

import (
	"errors"
	"fmt"
	"testing"
)

func TestLifecycleFollowsLegalEdges(t *testing.T) {
	var l Lifecycle
	if l.State() != StateUninitialized {
		t.Fatalf("expected uninitialized zero value, got %s", l.State())
	}
	for _, next := range []State{StateInitialized, StateActive, StatePaused, StateActive, StatePaused, StateStopped} {
		if err := l.Transition(next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	if l.Fail() {
		t.Fatalf("expected Fail to be ignored once stopped")
	}
}

func TestLifecycleRejectsIllegalEdges(t *testing.T) {
	cases := []struct {
		from, to State
	}{
		{StateUninitialized, StateActive},
		{StateInitialized, StatePaused},
		{StateActive, StateInitialized},
		{StateStopped, StateActive},
		{StateFailed, StateStopped},
		{StateInitialized, StateStopped},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s->%s", tc.from, tc.to), func(t *testing.T) {
			if CanTransition(tc.from, tc.to) {
				t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
			}
		})
	}

	var l Lifecycle
	err := l.Transition(StateActive)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestFailReachableFromNonTerminal(t *testing.T) {
	for _, from := range []State{StateUninitialized, StateInitialized, StateActive, StatePaused} {
		if !CanTransition(from, StateFailed) {
			t.Fatalf("expected %s -> failed to be legal", from)
		}
	}
	var l Lifecycle
	if err := l.Transition(StateInitialized); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !l.Fail() || l.State() != StateFailed {
		t.Fatalf("expected failed state, got %s", l.State())
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("device busy")
	startErr := &ChannelStartError{Channel: "mic", Kind: KindMicrophone, Err: &PermissionError{Channel: "mic", Capability: "microphone"}}
	if !errors.Is(startErr, ErrChannelStart) || !errors.Is(startErr, ErrPermission) {
		t.Fatalf("expected start error to match ErrChannelStart and ErrPermission: %v", startErr)
	}
	serErr := &SerializationError{Channel: "pointer", Path: "/tmp/x", Err: cause}
	if !errors.Is(serErr, ErrSerialization) || !errors.Is(serErr, cause) {
		t.Fatalf("expected serialization error to match: %v", serErr)
	}
	if !errors.Is(NewConfigError("display_id", "unknown display %q", "x"), ErrConfig) {
		t.Fatalf("expected config error to match ErrConfig")
	}
}
