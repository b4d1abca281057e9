package capture

import (
	"context"
	"sync"
	"time"
)

// Transition records one controller state change.
type Transition struct {
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Controller gates a capture loop with pause, resume and kill signals. Loops
// call Wait before each unit of work; Wait blocks while paused and returns an
// error once killed.
type Controller struct {
	clock func() time.Time

	mu       sync.Mutex
	paused   bool
	stopping bool
	stopErr  error
	signal   chan struct{}
	timeline []Transition
}

// NewController constructs a controller in the running state. A nil clock
// uses time.Now.
func NewController(clock func() time.Time) *Controller {
	if clock == nil {
		clock = time.Now
	}
	c := &Controller{clock: clock, signal: make(chan struct{}, 1)}
	c.timeline = append(c.timeline, Transition{State: "running", Reason: "start", Timestamp: clock()})
	return c
}

// Pause transitions the controller into a paused state.
func (c *Controller) Pause(reason string) {
	c.mu.Lock()
	if !c.paused && !c.stopping {
		c.paused = true
		c.record("paused", reason)
	}
	c.mu.Unlock()
}

// Resume clears a paused state and notifies waiters.
func (c *Controller) Resume(reason string) {
	c.mu.Lock()
	wasPaused := c.paused && !c.stopping
	c.paused = false
	if wasPaused {
		c.record("running", reason)
	}
	c.mu.Unlock()
	if wasPaused {
		c.notify()
	}
}

// Kill requests the loop to stop and propagates an optional error.
func (c *Controller) Kill(err error) {
	c.mu.Lock()
	if !c.stopping {
		c.stopping = true
		reason := "stop"
		if err != nil {
			reason = err.Error()
		}
		c.record("stopping", reason)
	}
	if err != nil && c.stopErr == nil {
		c.stopErr = err
	}
	c.mu.Unlock()
	c.notify()
}

// Wait blocks until the controller is running or stopping.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		paused := c.paused
		stopping := c.stopping
		stopErr := c.stopErr
		c.mu.Unlock()

		if stopping {
			if stopErr != nil {
				return stopErr
			}
			if ctx != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return context.Canceled
		}
		if !paused {
			return nil
		}

		if ctx == nil {
			<-c.signal
			continue
		}

		select {
		case <-ctx.Done():
			c.Kill(ctx.Err())
			return ctx.Err()
		case <-c.signal:
			continue
		}
	}
}

// State reports the textual state for diagnostics.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.stopping:
		return "stopping"
	case c.paused:
		return "paused"
	default:
		return "running"
	}
}

// Timeline returns a copy of the recorded transitions.
func (c *Controller) Timeline() []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Transition(nil), c.timeline...)
}

// Segments splits the controller's running spans into numbered segments
// measured from origin, starting at firstIndex.
func (c *Controller) Segments(origin time.Time, firstIndex int) []Segment {
	timeline := c.Timeline()
	var out []Segment
	var open *Segment
	for _, tr := range timeline {
		at := sinceMs(origin, tr.Timestamp)
		switch tr.State {
		case "running":
			if open == nil {
				open = &Segment{Index: firstIndex + len(out), StartMs: at}
			}
		case "paused", "stopping":
			if open != nil {
				open.EndMs = at
				out = append(out, *open)
				open = nil
			}
		}
	}
	if open != nil {
		open.EndMs = sinceMs(origin, c.clock())
		out = append(out, *open)
	}
	return out
}

func (c *Controller) record(state, reason string) {
	c.timeline = append(c.timeline, Transition{State: state, Reason: reason, Timestamp: c.clock()})
}

func (c *Controller) notify() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// SinceOriginMs converts an instant into milliseconds since origin, never
// negative.
func SinceOriginMs(origin, at time.Time) float64 {
	return sinceMs(origin, at)
}

func sinceMs(origin, at time.Time) float64 {
	ms := float64(at.Sub(origin)) / float64(time.Millisecond)
	if ms < 0 {
		return 0
	}
	return ms
}
