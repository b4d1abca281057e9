package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/motiontrack/pkg/motion"
	"github.com/offlinefirst/motiontrack/pkg/track"
)

type smoothOptions struct {
	input  string
	output string
	fps    float64
	asJSON bool
}

func newSmoothCmd(rc *RootCommand) *cobra.Command {
	var opts smoothOptions
	cmd := &cobra.Command{
		Use:   "smooth",
		Short: "Resample a recorded mouse-moves file into a smoothed frame track",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			return runSmooth(app, opts, rc.stdout)
		},
	}
	cmd.Flags().StringVar(&opts.input, "input", "", "Path to a recording-N-mouse-moves.json file")
	cmd.Flags().StringVar(&opts.output, "output", "", "Destination for smoothed frames (default: <input>-smoothed.json)")
	cmd.Flags().Float64Var(&opts.fps, "fps", 0, "Output frame rate (default: smoothing.output_fps)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print track statistics as JSON")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runSmooth(app *AppContext, opts smoothOptions, stdout io.Writer) error {
	if strings.TrimSpace(opts.input) == "" {
		return errors.New("--input is required")
	}
	fps := opts.fps
	if fps == 0 {
		fps = app.Config.Smoothing.OutputFPS
	}
	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(opts.input, ".json") + "-smoothed.json"
	}

	samples, err := track.ReadSamples(opts.input)
	if err != nil {
		return err
	}
	frames, err := motion.Resample(samples, app.Config.MotionConfig(), fps)
	if err != nil {
		return fmt.Errorf("smooth %s: %w", opts.input, err)
	}
	if err := track.WriteJSON(output, frames); err != nil {
		return err
	}

	stats := motion.Summarize(frames)
	app.Logger.Info("track smoothed",
		"input", opts.input,
		"output", output,
		"samples", len(samples),
		"frames", stats.Frames,
		"fps", fps,
	)

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	fmt.Fprintf(stdout, "Wrote %d frames to %s\n", stats.Frames, output)
	fmt.Fprintf(stdout, "Jitter: raw %.3f, smoothed %.3f\n", stats.RawJitter, stats.SmoothedJitter)
	fmt.Fprintf(stdout, "Lag: mean %.2f, max %.2f\n", stats.MeanLag, stats.MaxLag)
	return nil
}
