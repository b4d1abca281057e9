// Package spring implements the one-dimensional damped spring used to ease
// pointer positions toward their raw targets.
package spring

import (
	"fmt"
	"math"
)

// DefaultSettleThreshold is the distance and speed below which a spring is
// considered at rest.
const DefaultSettleThreshold = 0.1

// Config holds the physical parameters shared by every axis of a tracker.
type Config struct {
	Stiffness float64 `json:"stiffness" yaml:"stiffness"`
	Damping   float64 `json:"damping" yaml:"damping"`
	Mass      float64 `json:"mass" yaml:"mass"`
}

// DefaultConfig returns the parameters used for cursor smoothing when none are
// configured.
func DefaultConfig() Config {
	return Config{Stiffness: 470, Damping: 70, Mass: 3}
}

// Validate reports a ConfigError when the parameters cannot drive a stable
// simulation.
func (c Config) Validate() error {
	if !finite(c.Stiffness) || c.Stiffness <= 0 {
		return &ConfigError{Field: "stiffness", Value: c.Stiffness, Reason: "must be positive"}
	}
	if !finite(c.Damping) || c.Damping < 0 {
		return &ConfigError{Field: "damping", Value: c.Damping, Reason: "must not be negative"}
	}
	if !finite(c.Mass) || c.Mass <= 0 {
		return &ConfigError{Field: "mass", Value: c.Mass, Reason: "must be positive"}
	}
	return nil
}

// State is the position and velocity of one axis.
type State struct {
	Position float64 `json:"position"`
	Velocity float64 `json:"velocity"`
}

// AtRest returns a state resting at position.
func AtRest(position float64) State {
	return State{Position: position}
}

// Step advances s toward target by dt seconds.
//
// Velocity is integrated before position (semi-implicit Euler), which keeps
// the discrete oscillator from gaining energy at large dt. Step does not
// validate cfg; callers validate once before stepping.
func Step(s State, target float64, cfg Config, dt float64) State {
	displacement := s.Position - target
	springForce := -cfg.Stiffness * displacement
	dampingForce := -cfg.Damping * s.Velocity
	acceleration := (springForce + dampingForce) / cfg.Mass

	velocity := s.Velocity + acceleration*dt
	return State{
		Position: s.Position + velocity*dt,
		Velocity: velocity,
	}
}

// Settled reports whether s is within threshold of target and nearly still.
func Settled(s State, target, threshold float64) bool {
	return math.Abs(s.Position-target) < threshold && math.Abs(s.Velocity) < threshold
}

// String renders the configuration for logs.
func (c Config) String() string {
	return fmt.Sprintf("stiffness=%g damping=%g mass=%g", c.Stiffness, c.Damping, c.Mass)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
