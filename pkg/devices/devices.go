// Package devices reports the displays, audio inputs and cameras a recording
// may target.
package devices

import (
	"context"
	"os"
	"sort"
	"strings"
)

// Device is one capture target reported by the platform.
type Device struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default,omitempty"`
}

// Inventory enumerates capture targets. Implementations must be safe for
// concurrent use.
type Inventory interface {
	Displays(ctx context.Context) ([]Device, error)
	AudioInputs(ctx context.Context) ([]Device, error)
	Cameras(ctx context.Context) ([]Device, error)
}

// Static is an Inventory backed by fixed lists.
type Static struct {
	DisplayList []Device
	AudioList   []Device
	CameraList  []Device
}

func (s Static) Displays(context.Context) ([]Device, error)    { return clone(s.DisplayList), nil }
func (s Static) AudioInputs(context.Context) ([]Device, error) { return clone(s.AudioList), nil }
func (s Static) Cameras(context.Context) ([]Device, error)     { return clone(s.CameraList), nil }

// Default returns the synthetic inventory used when no platform backend is
// linked. Extra ids can be appended through MOTIONTRACK_DISPLAYS,
// MOTIONTRACK_AUDIO_INPUTS and MOTIONTRACK_CAMERAS (comma separated).
func Default() Static {
	return DefaultWithLookup(os.LookupEnv)
}

// DefaultWithLookup is Default with an injectable environment resolver.
func DefaultWithLookup(lookup func(string) (string, bool)) Static {
	return Static{
		DisplayList: withExtra([]Device{{ID: "display-1", Name: "Built-in Display", Default: true}}, lookup, "MOTIONTRACK_DISPLAYS"),
		AudioList:   withExtra([]Device{{ID: "default", Name: "Default Microphone", Default: true}}, lookup, "MOTIONTRACK_AUDIO_INPUTS"),
		CameraList:  withExtra([]Device{{ID: "default", Name: "Default Camera", Default: true}}, lookup, "MOTIONTRACK_CAMERAS"),
	}
}

// Contains reports whether id names one of the devices.
func Contains(list []Device, id string) bool {
	for _, d := range list {
		if d.ID == id {
			return true
		}
	}
	return false
}

// IDs returns the sorted device identifiers.
func IDs(list []Device) []string {
	out := make([]string, 0, len(list))
	for _, d := range list {
		out = append(out, d.ID)
	}
	sort.Strings(out)
	return out
}

func withExtra(base []Device, lookup func(string) (string, bool), key string) []Device {
	if lookup == nil {
		return base
	}
	raw, ok := lookup(key)
	if !ok {
		return base
	}
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" || Contains(base, id) {
			continue
		}
		base = append(base, Device{ID: id, Name: id})
	}
	return base
}

func clone(list []Device) []Device {
	return append([]Device(nil), list...)
}
