package permissions

import "testing"

type fakeLookup map[string]string

func (f fakeLookup) get(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func TestInterpretPermissionFlag(t *testing.T) {
	cases := map[string]struct {
		value    string
		expected Status
	}{
		"granted":     {"granted", StatusGranted},
		"denied":      {"denied", StatusDenied},
		"prompt":      {"prompt", StatusPromptRequired},
		"unsupported": {"unsupported", StatusUnavailable},
		"unknown":     {"", StatusUnknown},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := interpretPermissionFlag("test", tc.value)
			if res.Status != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, res.Status)
			}
		})
	}
}

func TestProbeScreenRecordingHonoursEnv(t *testing.T) {
	lookup := fakeLookup{"MOTIONTRACK_SCREEN_RECORDING": "denied"}
	res := ProbeScreenRecording(lookup.get)
	if !res.Denied() {
		t.Fatalf("expected denied, got %s", res.Status)
	}
	if res.Guidance == "" {
		t.Fatalf("expected guidance when denied")
	}
	if res.Capability != ScreenRecording {
		t.Fatalf("expected capability to be recorded, got %q", res.Capability)
	}
}

func TestProbeAccessibilityDefaults(t *testing.T) {
	res := ProbeAccessibility(fakeLookup{}.get)
	if res.Status == StatusUnknown {
		t.Fatalf("expected platform specific default, got unknown")
	}
}

func TestProbeMicrophoneHonoursEnv(t *testing.T) {
	lookup := fakeLookup{"MOTIONTRACK_MICROPHONE": "granted"}
	res := ProbeMicrophone(lookup.get)
	if res.Status != StatusGranted {
		t.Fatalf("expected granted, got %s", res.Status)
	}
}

func TestProbeCameraAndSystemAudioHonourEnv(t *testing.T) {
	lookup := fakeLookup{"MOTIONTRACK_CAMERA": "no", "MOTIONTRACK_SYSTEM_AUDIO": "ask"}
	if res := ProbeCamera(lookup.get); res.Status != StatusDenied {
		t.Fatalf("expected camera denied, got %s", res.Status)
	}
	if res := ProbeSystemAudio(lookup.get); res.Status != StatusPromptRequired {
		t.Fatalf("expected system audio prompt, got %s", res.Status)
	}
}

func TestAllCoversEveryCapability(t *testing.T) {
	results := All(fakeLookup{}.get)
	if len(results) != len(surfaces) {
		t.Fatalf("expected %d results, got %d", len(surfaces), len(results))
	}
	for _, res := range results {
		if EnvKey(res.Capability) == "" {
			t.Fatalf("missing env key for %s", res.Capability)
		}
	}
}
