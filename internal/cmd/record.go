package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/motiontrack/internal/buildinfo"
	"github.com/offlinefirst/motiontrack/pkg/config"
	"github.com/offlinefirst/motiontrack/pkg/devices"
	"github.com/offlinefirst/motiontrack/pkg/recorder"
	"github.com/offlinefirst/motiontrack/pkg/sessionstore"
)

type recordOptions struct {
	duration time.Duration
	pauseAt  time.Duration
	pauseFor time.Duration
	planOnly bool
	noIndex  bool
}

func newRecordCmd(rc *RootCommand) *cobra.Command {
	var opts recordOptions
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a session from every configured channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRecord(ctx, app, opts, rc.stdout)
		},
	}
	cmd.Flags().DurationVar(&opts.duration, "duration", 10*time.Second, "Total wall-clock length of the recording")
	cmd.Flags().DurationVar(&opts.pauseAt, "pause-at", 0, "Pause the session this long after it starts (0 disables)")
	cmd.Flags().DurationVar(&opts.pauseFor, "pause-for", 2*time.Second, "How long the session stays paused")
	cmd.Flags().BoolVar(&opts.planOnly, "plan-only", false, "Validate configuration and print the channel plan without recording")
	cmd.Flags().BoolVar(&opts.noIndex, "no-index", false, "Skip recording the session in the SQLite index")
	return cmd
}

func runRecord(ctx context.Context, app *AppContext, opts recordOptions, stdout io.Writer) error {
	if opts.duration <= 0 {
		return fmt.Errorf("--duration must be positive, got %s", opts.duration)
	}
	if opts.pauseAt < 0 || opts.pauseFor < 0 {
		return errors.New("--pause-at and --pause-for must not be negative")
	}

	logger := app.Logger.With("component", "record")
	rcfg := recorderConfig(app.Config)
	inventory := devices.Default()

	if opts.planOnly {
		if err := rcfg.Validate(ctx, inventory); err != nil {
			return err
		}
		printPlan(stdout, app.Config, rcfg, opts)
		return nil
	}

	var index recorder.Index
	if !opts.noIndex {
		store, err := sessionstore.Open(ctx, app.Config.IndexFile())
		if err != nil {
			logger.Warn("session index unavailable", "path", app.Config.IndexFile(), "error", err)
		} else {
			defer store.Close()
			index = store
		}
	}

	hostname, _ := os.Hostname()
	coord, err := recorder.New(recorder.Options{
		Inventory:  inventory,
		Build:      recorder.DefaultBuilder(recorder.ChannelDeps{Logger: app.Logger}),
		Index:      index,
		Logger:     app.Logger,
		Hostname:   hostname,
		AppVersion: buildinfo.Version(),
	})
	if err != nil {
		return err
	}

	info, err := coord.StartRecording(ctx, rcfg)
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	fmt.Fprintf(stdout, "recording session %s into %s\n", info.SessionID, info.Dir)

	interrupted := drive(ctx, coord, opts, logger)

	// The caller's context may already be cancelled; stopping must still flush.
	bundle, stopErr := coord.StopRecording(context.WithoutCancel(ctx))
	printBundle(stdout, bundle)
	if stopErr != nil {
		return fmt.Errorf("stop recording: %w", stopErr)
	}
	if interrupted {
		logger.Info("recording interrupted", "session_id", bundle.SessionID)
	}
	return nil
}

// drive runs the session for the requested wall-clock length, pausing once
// when asked to. It reports whether ctx ended the session early.
func drive(ctx context.Context, coord *recorder.Coordinator, opts recordOptions, logger *slog.Logger) bool {
	remaining := opts.duration
	if opts.pauseAt > 0 && opts.pauseAt < opts.duration {
		if !wait(ctx, opts.pauseAt) {
			return true
		}
		remaining -= opts.pauseAt
		if err := coord.PauseRecording(ctx); err != nil {
			logger.Warn("pause failed", "error", err)
		} else {
			if !wait(ctx, opts.pauseFor) {
				return true
			}
			if err := coord.ResumeRecording(ctx); err != nil {
				logger.Warn("resume failed", "error", err)
			}
		}
	}
	return !wait(ctx, remaining)
}

func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func recorderConfig(cfg config.Config) recorder.Config {
	rec := cfg.Recording
	return recorder.Config{
		OutputDir:             cfg.Paths.SessionsDir,
		DisplayID:             rec.DisplayID,
		DisplayPauseSupported: rec.DisplayPauseSupported,
		Pointer:               rec.Pointer,
		PollHz:                cfg.Pointer.PollHz,
		SystemAudio:           rec.SystemAudio,
		Microphone: recorder.DeviceConfig{
			Enabled:        rec.Microphone.Enabled,
			DeviceID:       rec.Microphone.DeviceID,
			PauseSupported: rec.Microphone.PauseSupported,
		},
		Webcam: recorder.DeviceConfig{
			Enabled:        rec.Webcam.Enabled,
			DeviceID:       rec.Webcam.DeviceID,
			PauseSupported: rec.Webcam.PauseSupported,
		},
	}
}

func printPlan(w io.Writer, cfg config.Config, rcfg recorder.Config, opts recordOptions) {
	fmt.Fprintf(w, "Config source: %s\n", cfg.Source)
	fmt.Fprintf(w, "Sessions dir: %s\n", rcfg.OutputDir)
	fmt.Fprintf(w, "Index: %s\n", cfg.IndexFile())
	fmt.Fprintf(w, "Duration: %s\n", opts.duration)
	if opts.pauseAt > 0 {
		fmt.Fprintf(w, "Pause: at %s for %s\n", opts.pauseAt, opts.pauseFor)
	}
	fmt.Fprintln(w, "Channels:")
	fmt.Fprintf(w, "  - display %s (pause=%t)\n", rcfg.DisplayID, rcfg.DisplayPauseSupported)
	if rcfg.SystemAudio {
		fmt.Fprintln(w, "  - system-audio")
	}
	if rcfg.Microphone.Enabled {
		fmt.Fprintf(w, "  - microphone %s (pause=%t)\n", rcfg.Microphone.DeviceID, rcfg.Microphone.PauseSupported)
	}
	if rcfg.Webcam.Enabled {
		fmt.Fprintf(w, "  - webcam %s (pause=%t)\n", rcfg.Webcam.DeviceID, rcfg.Webcam.PauseSupported)
	}
	if rcfg.Pointer {
		fmt.Fprintf(w, "  - pointer @ %gHz\n", rcfg.PollHz)
	}
}

func printBundle(w io.Writer, b recorder.Bundle) {
	if b.SessionID == "" {
		return
	}
	fmt.Fprintf(w, "Session %s %s (%s recorded)\n", b.SessionID, b.State, b.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Manifest: %s\n", b.ManifestPath)
	for _, out := range b.Outputs {
		fmt.Fprintf(w, "  %s [%s] %d file(s), %d segment(s)\n", out.ChannelID, out.Kind, len(out.Files), len(out.Segments))
		for _, f := range out.Files {
			fmt.Fprintf(w, "    %s\n", f)
		}
	}
}
