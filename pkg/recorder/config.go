package recorder

import (
	"context"
	"fmt"
	"strings"

	"github.com/offlinefirst/motiontrack/pkg/capture"
	"github.com/offlinefirst/motiontrack/pkg/devices"
	"github.com/offlinefirst/motiontrack/pkg/runmanifest"
)

// DeviceConfig selects an optional capture device.
type DeviceConfig struct {
	Enabled        bool
	DeviceID       string
	PauseSupported bool
}

// Config describes one recording session.
type Config struct {
	OutputDir    string
	SegmentIndex int

	DisplayID             string
	DisplayPauseSupported bool
	Pointer               bool
	PollHz                float64
	SystemAudio           bool
	Microphone            DeviceConfig
	Webcam                DeviceConfig
}

// Validate checks the configuration against the device inventory.
func (c Config) Validate(ctx context.Context, inv devices.Inventory) error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return capture.NewConfigError("output_dir", "must not be empty")
	}
	if c.SegmentIndex < 0 {
		return capture.NewConfigError("segment_index", "must not be negative, got %d", c.SegmentIndex)
	}
	if c.PollHz < 0 {
		return capture.NewConfigError("poll_hz", "must not be negative, got %g", c.PollHz)
	}

	displays, err := inv.Displays(ctx)
	if err != nil {
		return fmt.Errorf("query displays: %w", err)
	}
	if !devices.Contains(displays, c.DisplayID) {
		return capture.NewConfigError("display_id", "unknown display %q (known: %s)", c.DisplayID, strings.Join(devices.IDs(displays), ", "))
	}
	if c.Microphone.Enabled {
		inputs, err := inv.AudioInputs(ctx)
		if err != nil {
			return fmt.Errorf("query audio inputs: %w", err)
		}
		if !devices.Contains(inputs, c.Microphone.DeviceID) {
			return capture.NewConfigError("microphone.device_id", "unknown audio input %q", c.Microphone.DeviceID)
		}
	}
	if c.Webcam.Enabled {
		cameras, err := inv.Cameras(ctx)
		if err != nil {
			return fmt.Errorf("query cameras: %w", err)
		}
		if !devices.Contains(cameras, c.Webcam.DeviceID) {
			return capture.NewConfigError("webcam.device_id", "unknown camera %q", c.Webcam.DeviceID)
		}
	}
	return nil
}

func (c Config) settings() runmanifest.Settings {
	s := runmanifest.Settings{
		DisplayID:   c.DisplayID,
		Pointer:     c.Pointer,
		SystemAudio: c.SystemAudio,
		Microphone:  c.Microphone.Enabled,
		Webcam:      c.Webcam.Enabled,
		PollHz:      c.PollHz,
	}
	if c.Microphone.Enabled {
		s.MicrophoneID = c.Microphone.DeviceID
	}
	if c.Webcam.Enabled {
		s.WebcamID = c.Webcam.DeviceID
	}
	return s
}
