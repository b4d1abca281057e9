package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/motiontrack/pkg/capture"
	"github.com/offlinefirst/motiontrack/pkg/devices"
	"github.com/offlinefirst/motiontrack/pkg/media"
	"github.com/offlinefirst/motiontrack/pkg/permissions"
)

func newDoctorCmd(rc *RootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report devices, permissions and capture backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			return runDoctor(cmd.Context(), app, devices.Default(), permissions.DefaultLookupEnv, rc.stdout)
		},
	}
}

func runDoctor(ctx context.Context, app *AppContext, inv devices.Inventory, lookup permissions.LookupEnvFunc, stdout io.Writer) error {
	fmt.Fprintf(stdout, "Config: %s\n", app.Config.Source)
	fmt.Fprintf(stdout, "Sessions dir: %s\n", app.Config.Paths.SessionsDir)
	fmt.Fprintf(stdout, "Index: %s\n", app.Config.IndexFile())

	fmt.Fprintln(stdout, "\nDevices:")
	groups := []struct {
		name  string
		query func(context.Context) ([]devices.Device, error)
	}{
		{"displays", inv.Displays},
		{"audio inputs", inv.AudioInputs},
		{"cameras", inv.Cameras},
	}
	for _, g := range groups {
		list, err := g.query(ctx)
		if err != nil {
			return fmt.Errorf("query %s: %w", g.name, err)
		}
		fmt.Fprintf(stdout, "  %s: %s\n", g.name, strings.Join(devices.IDs(list), ", "))
	}

	fmt.Fprintln(stdout, "\nPermissions:")
	blocked := 0
	for _, p := range permissions.All(lookup) {
		fmt.Fprintf(stdout, "  %-17s %s\n", p.Capability, p.StatusString())
		if p.Message != "" {
			fmt.Fprintf(stdout, "    %s\n", p.Message)
		}
		if p.Denied() {
			blocked++
			if p.Guidance != "" {
				fmt.Fprintf(stdout, "    %s\n", p.Guidance)
			}
		}
	}

	fmt.Fprintln(stdout, "\nMedia backends:")
	for _, kind := range []capture.Kind{capture.KindDisplay, capture.KindSystemAudio, capture.KindMicrophone, capture.KindWebcam} {
		env := media.DetectEnvironment(kind, lookup)
		status := "available"
		if !env.Available {
			status = "unavailable"
		}
		fmt.Fprintf(stdout, "  %-13s %s (%s, permission %s)\n", env.Kind, env.Provider, status, env.Permission)
		if env.Message != "" {
			fmt.Fprintf(stdout, "    %s\n", env.Message)
		}
	}

	if blocked > 0 {
		app.Logger.Warn("capture permissions denied", "count", blocked)
	}
	return nil
}
