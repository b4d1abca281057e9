package media

import (
	"strings"

	"github.com/offlinefirst/motiontrack/pkg/capture"
	"github.com/offlinefirst/motiontrack/pkg/permissions"
)

// Provider identifiers for manifest reporting.
const (
	ProviderScreenCaptureKit = "screencapturekit"
	ProviderAVFoundation     = "avfoundation"
	ProviderStub             = "stub"
)

// PermissionNotApplicable is reported on platforms without consent prompts.
const PermissionNotApplicable = "not_applicable"

// Environment describes the current platform support for one media kind.
type Environment struct {
	Kind       string
	Provider   string
	Available  bool
	Permission string
	Message    string
	Guidance   string
}

// CapabilityFor maps a media kind to the permission it needs.
func CapabilityFor(kind capture.Kind) permissions.Capability {
	switch kind {
	case capture.KindMicrophone:
		return permissions.Microphone
	case capture.KindSystemAudio:
		return permissions.SystemAudio
	case capture.KindWebcam:
		return permissions.Camera
	default:
		return permissions.ScreenRecording
	}
}

// SelectedProvider returns the backend requested through
// MOTIONTRACK_MEDIA_BACKEND, defaulting to the stub.
func SelectedProvider(lookup permissions.LookupEnvFunc) string {
	if lookup == nil {
		lookup = permissions.DefaultLookupEnv
	}
	value, ok := lookup("MOTIONTRACK_MEDIA_BACKEND")
	if !ok || strings.TrimSpace(value) == "" {
		return ProviderStub
	}
	return strings.ToLower(strings.TrimSpace(value))
}

// DetectEnvironment reports the backend and availability of kind on the host.
func DetectEnvironment(kind capture.Kind, lookup permissions.LookupEnvFunc) Environment {
	probe := permissions.Probe(CapabilityFor(kind), lookup)
	env := Environment{
		Kind:       kind.String(),
		Provider:   SelectedProvider(lookup),
		Permission: probe.StatusString(),
		Message:    probe.Message,
		Guidance:   probe.Guidance,
		Available:  !probe.Denied(),
	}
	if probe.Status == permissions.StatusUnavailable {
		env.Permission = PermissionNotApplicable
	}

	switch env.Provider {
	case ProviderStub:
		if env.Message == "" {
			env.Message = "synthetic recorder stub"
		}
	default:
		env.Available = false
		env.Message = env.Provider + " backend is not linked into this build"
		env.Guidance = "unset MOTIONTRACK_MEDIA_BACKEND to use the synthetic recorder"
	}
	if !env.Available && env.Message == "" {
		env.Message = string(CapabilityFor(kind)) + " permission missing"
	}
	return env
}
