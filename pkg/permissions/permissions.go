// Package permissions reports coarse operating-system consent for each
// capture capability. Environment overrides let tests and CI pin a result.
package permissions

import (
	"os"
	"runtime"
	"strings"
)

// Status enumerates coarse permission results for macOS-style prompts.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that permission was previously granted.
	StatusGranted Status = "granted"
	// StatusDenied indicates the user has explicitly denied access.
	StatusDenied Status = "denied"
	// StatusPromptRequired means the platform will prompt at runtime.
	StatusPromptRequired Status = "prompt"
	// StatusUnavailable reports that the capability is not supported.
	StatusUnavailable Status = "unavailable"
)

// Capability names a permission surface.
type Capability string

const (
	ScreenRecording Capability = "screen recording"
	Accessibility   Capability = "accessibility"
	Microphone      Capability = "microphone"
	Camera          Capability = "camera"
	SystemAudio     Capability = "system audio"
)

// ProbeResult represents the coarse state for a permission surface.
type ProbeResult struct {
	Capability Capability
	Status     Status
	Message    string
	Guidance   string
}

// Denied reports whether capture must not proceed.
func (p ProbeResult) Denied() bool {
	return p.Status == StatusDenied
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// DefaultLookupEnv is the standard environment resolver.
func DefaultLookupEnv(key string) (string, bool) {
	return lookupEnv(key)
}

// lookupEnv is declared for swapping in tests.
var lookupEnv = func(key string) (string, bool) {
	return os.LookupEnv(key)
}

type surface struct {
	env         string
	darwin      string
	unsupported string
}

var surfaces = map[Capability]surface{
	ScreenRecording: {"MOTIONTRACK_SCREEN_RECORDING", "awaiting macOS screen recording authorisation", "screen recording unsupported on this platform"},
	Accessibility:   {"MOTIONTRACK_ACCESSIBILITY", "accessibility trust required", "accessibility prompts unavailable"},
	Microphone:      {"MOTIONTRACK_MICROPHONE", "microphone access will prompt at runtime", "microphone capture unsupported"},
	Camera:          {"MOTIONTRACK_CAMERA", "camera access will prompt at runtime", "camera capture unsupported"},
	SystemAudio:     {"MOTIONTRACK_SYSTEM_AUDIO", "system audio capture requires screen recording consent", "system audio capture unsupported"},
}

// EnvKey returns the override variable for a capability.
func EnvKey(c Capability) string {
	return surfaces[c].env
}

// Probe inspects the execution environment for the given capability.
func Probe(c Capability, lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	s, ok := surfaces[c]
	if !ok {
		return ProbeResult{Capability: c, Status: StatusUnknown, Message: string(c) + " is not a known capability"}
	}
	if value, ok := lookup(s.env); ok {
		res := interpretPermissionFlag(string(c), value)
		res.Capability = c
		return res
	}
	if runtime.GOOS == "darwin" {
		return ProbeResult{Capability: c, Status: StatusPromptRequired, Message: s.darwin}
	}
	return ProbeResult{Capability: c, Status: StatusUnavailable, Message: s.unsupported}
}

// ProbeScreenRecording inspects the execution environment for screen recording permissions.
func ProbeScreenRecording(lookup LookupEnvFunc) ProbeResult {
	return Probe(ScreenRecording, lookup)
}

// ProbeAccessibility inspects environment flags for accessibility trust.
func ProbeAccessibility(lookup LookupEnvFunc) ProbeResult {
	return Probe(Accessibility, lookup)
}

// ProbeMicrophone reports coarse microphone capture permissions.
func ProbeMicrophone(lookup LookupEnvFunc) ProbeResult {
	return Probe(Microphone, lookup)
}

// ProbeCamera reports coarse webcam capture permissions.
func ProbeCamera(lookup LookupEnvFunc) ProbeResult {
	return Probe(Camera, lookup)
}

// ProbeSystemAudio reports coarse system audio loopback permissions.
func ProbeSystemAudio(lookup LookupEnvFunc) ProbeResult {
	return Probe(SystemAudio, lookup)
}

// All probes every known capability in a stable order.
func All(lookup LookupEnvFunc) []ProbeResult {
	order := []Capability{ScreenRecording, Accessibility, Microphone, Camera, SystemAudio}
	out := make([]ProbeResult, 0, len(order))
	for _, c := range order {
		out = append(out, Probe(c, lookup))
	}
	return out
}

func interpretPermissionFlag(name, value string) ProbeResult {
	normalised := strings.ToLower(strings.TrimSpace(value))
	switch normalised {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: name + " permission pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{Status: StatusDenied, Message: name + " permission denied via env override", Guidance: "use 'tccutil reset' or update MOTIONTRACK_* env to re-test"}
	case "prompt", "ask":
		return ProbeResult{Status: StatusPromptRequired, Message: name + " permission will prompt at runtime"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: name + " permission unavailable on this platform"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: name + " permission state unknown"}
	}
}

// StatusString returns the string representation for manifest integration.
func (p ProbeResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}
