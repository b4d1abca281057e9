package recorder

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/offlinefirst/motiontrack/pkg/capture"
	"github.com/offlinefirst/motiontrack/pkg/media"
	"github.com/offlinefirst/motiontrack/pkg/permissions"
	"github.com/offlinefirst/motiontrack/pkg/pointer"
)

// BuildFunc creates the channels for a session in start order.
type BuildFunc func(cfg Config) ([]capture.Channel, error)

// ChannelDeps are handed to every channel the default builder creates.
type ChannelDeps struct {
	Lookup          permissions.LookupEnvFunc
	Clock           func() time.Time
	Logger          *slog.Logger
	PointerPlatform pointer.Platform
	MediaBackend    media.Backend
}

// DefaultBuilder creates the display channel followed by system audio,
// microphone, webcam and pointer channels as enabled.
func DefaultBuilder(deps ChannelDeps) BuildFunc {
	return func(cfg Config) ([]capture.Channel, error) {
		var channels []capture.Channel
		addMedia := func(kind capture.Kind, device string, pause bool) error {
			ch, err := media.New(media.Options{
				Kind:           kind,
				DeviceID:       device,
				PauseSupported: pause,
				Backend:        deps.MediaBackend,
				Lookup:         deps.Lookup,
				Clock:          deps.Clock,
				Logger:         deps.Logger,
			})
			if err != nil {
				return fmt.Errorf("build %s channel: %w", kind, err)
			}
			channels = append(channels, ch)
			return nil
		}

		if err := addMedia(capture.KindDisplay, cfg.DisplayID, cfg.DisplayPauseSupported); err != nil {
			return nil, err
		}
		if cfg.SystemAudio {
			if err := addMedia(capture.KindSystemAudio, "", false); err != nil {
				return nil, err
			}
		}
		if cfg.Microphone.Enabled {
			if err := addMedia(capture.KindMicrophone, cfg.Microphone.DeviceID, cfg.Microphone.PauseSupported); err != nil {
				return nil, err
			}
		}
		if cfg.Webcam.Enabled {
			if err := addMedia(capture.KindWebcam, cfg.Webcam.DeviceID, cfg.Webcam.PauseSupported); err != nil {
				return nil, err
			}
		}
		if cfg.Pointer {
			ch, err := pointer.New(pointer.Options{
				PollHz:   cfg.PollHz,
				Platform: deps.PointerPlatform,
				Lookup:   deps.Lookup,
				Clock:    deps.Clock,
				Logger:   deps.Logger,
			})
			if err != nil {
				return nil, fmt.Errorf("build pointer channel: %w", err)
			}
			channels = append(channels, ch)
		}
		return channels, nil
	}
}
