// Package track defines the raw pointer records produced during capture and
// the JSON stream files they are persisted to.
package track

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// Modifier names reported in ActiveModifiers.
const (
	ModifierShift   = "shift"
	ModifierControl = "control"
	ModifierAlt     = "alt"
	ModifierMeta    = "meta"
)

// Sample is one polled pointer position.
type Sample struct {
	X               float64  `json:"x"`
	Y               float64  `json:"y"`
	CursorID        string   `json:"cursorId"`
	ActiveModifiers []string `json:"activeModifiers"`
	ProcessTimeMs   float64  `json:"processTimeMs"`
	WallClockMs     int64    `json:"unixTimeMs"`
}

// Button identifies the pointer button behind a click transition.
type Button string

const (
	ButtonPrimary   Button = "primary"
	ButtonSecondary Button = "secondary"
	ButtonAuxiliary Button = "auxiliary"
)

// Valid reports whether b is a known button.
func (b Button) Valid() bool {
	switch b {
	case ButtonPrimary, ButtonSecondary, ButtonAuxiliary:
		return true
	default:
		return false
	}
}

// Phase is the direction of a button transition.
type Phase string

const (
	PhaseDown Phase = "down"
	PhaseUp   Phase = "up"
)

// Click is a single button transition. Down and up phases are emitted as
// independent records.
type Click struct {
	X               float64  `json:"x"`
	Y               float64  `json:"y"`
	Button          Button   `json:"button"`
	Phase           Phase    `json:"eventType"`
	ClickCount      int      `json:"clickCount"`
	ActiveModifiers []string `json:"activeModifiers"`
	ProcessTimeMs   float64  `json:"processTimeMs"`
	WallClockMs     int64    `json:"unixTimeMs"`
}

// ErrUnordered reports a stream whose process times decrease.
var ErrUnordered = errors.New("samples are not ordered by process time")

// Distance returns the euclidean distance between two samples.
func Distance(a, b Sample) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// CheckOrder verifies that samples are non-decreasing in ProcessTimeMs.
func CheckOrder(samples []Sample) error {
	for i := 1; i < len(samples); i++ {
		if samples[i].ProcessTimeMs < samples[i-1].ProcessTimeMs {
			return fmt.Errorf("%w: index %d at %gms follows %gms", ErrUnordered, i, samples[i].ProcessTimeMs, samples[i-1].ProcessTimeMs)
		}
	}
	return nil
}

// WriteJSON encodes v as indented JSON into path, replacing any existing file.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadSamples loads a motion stream file.
func ReadSamples(path string) ([]Sample, error) {
	var samples []Sample
	if err := readJSON(path, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// ReadClicks loads a click stream file.
func ReadClicks(path string) ([]Click, error) {
	var clicks []Click
	if err := readJSON(path, &clicks); err != nil {
		return nil, err
	}
	return clicks, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
