// Package motion turns raw pointer samples into a smoothed, frame-accurate
// track.
//
// Two entry points share one stepping routine: Engine.Update for live
// preview, driven by an external clock, and Resample for export, driven by a
// fixed frame grid. Given the same target sequence and dt both produce the
// same trajectory.
package motion

import (
	"math"

	"github.com/offlinefirst/motiontrack/pkg/spring"
	"github.com/offlinefirst/motiontrack/pkg/track"
)

// DefaultTeleportThreshold is the jump distance, in screen units, above which
// the tracker snaps instead of easing.
const DefaultTeleportThreshold = 500.0

// Config bundles the spring parameters with the teleport rule.
type Config struct {
	Spring            spring.Config `json:"spring" yaml:"spring"`
	TeleportThreshold float64       `json:"teleportThreshold" yaml:"teleport_threshold"`
}

// DefaultConfig returns the default spring with the default teleport rule.
func DefaultConfig() Config {
	return Config{Spring: spring.DefaultConfig(), TeleportThreshold: DefaultTeleportThreshold}
}

// Validate checks the spring parameters and the teleport threshold.
func (c Config) Validate() error {
	if err := c.Spring.Validate(); err != nil {
		return err
	}
	if math.IsNaN(c.TeleportThreshold) || c.TeleportThreshold <= 0 {
		return &TeleportThresholdError{Value: c.TeleportThreshold}
	}
	return nil
}

// Frame is one smoothed output position.
type Frame struct {
	SmoothedX   float64 `json:"x"`
	SmoothedY   float64 `json:"y"`
	RawX        float64 `json:"rawX"`
	RawY        float64 `json:"rawY"`
	CursorID    string  `json:"cursorId"`
	FrameTimeMs float64 `json:"processTimeMs"`
}

// Engine is a two-axis spring tracker. An Engine must not be stepped from more
// than one goroutine at a time.
type Engine struct {
	cfg    Config
	x, y   spring.State
	last   track.Sample
	primed bool
}

// NewEngine validates cfg and returns an idle engine. The first sample passed
// to Update seeds both axes at rest.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Update advances the tracker toward sample after dt seconds and returns the
// resulting frame stamped with the sample's process time. A dt that is not a
// positive finite number leaves the spring where it is.
func (e *Engine) Update(sample track.Sample, dt float64) Frame {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		if !e.primed {
			e.snap(sample)
		}
		return e.frame(sample, sample.ProcessTimeMs)
	}
	e.advance(sample, dt)
	return e.frame(sample, sample.ProcessTimeMs)
}

// Seed places the tracker at rest on sample.
func (e *Engine) Seed(sample track.Sample) {
	e.snap(sample)
}

// Position returns the current smoothed position.
func (e *Engine) Position() (float64, float64) {
	return e.x.Position, e.y.Position
}

// Velocity returns the current per-axis velocity.
func (e *Engine) Velocity() (float64, float64) {
	return e.x.Velocity, e.y.Velocity
}

// Settled reports whether both axes rest on the latest target.
func (e *Engine) Settled(threshold float64) bool {
	if !e.primed {
		return true
	}
	return spring.Settled(e.x, e.last.X, threshold) && spring.Settled(e.y, e.last.Y, threshold)
}

// Reset forgets all state; the next Update seeds the tracker again.
func (e *Engine) Reset() {
	e.x, e.y = spring.State{}, spring.State{}
	e.last = track.Sample{}
	e.primed = false
}

func (e *Engine) advance(target track.Sample, dt float64) {
	if !e.primed {
		e.snap(target)
	}
	if DetectTeleport(e.last, target, e.cfg.TeleportThreshold) {
		e.snap(target)
	} else {
		e.x = spring.Step(e.x, target.X, e.cfg.Spring, dt)
		e.y = spring.Step(e.y, target.Y, e.cfg.Spring, dt)
	}
	e.last = target
}

func (e *Engine) snap(target track.Sample) {
	e.x = spring.AtRest(target.X)
	e.y = spring.AtRest(target.Y)
	e.last = target
	e.primed = true
}

func (e *Engine) frame(target track.Sample, at float64) Frame {
	return Frame{
		SmoothedX:   e.x.Position,
		SmoothedY:   e.y.Position,
		RawX:        target.X,
		RawY:        target.Y,
		CursorID:    target.CursorID,
		FrameTimeMs: at,
	}
}

// DetectTeleport reports whether next lies further than threshold from prev.
func DetectTeleport(prev, next track.Sample, threshold float64) bool {
	return track.Distance(prev, next) > threshold
}
