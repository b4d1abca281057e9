package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/motiontrack/pkg/sessionstore"
)

func newSessionsCmd(rc *RootCommand) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions from the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			return runSessions(cmd.Context(), app, limit, rc.stdout)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions to show (0 for all)")
	return cmd
}

func runSessions(ctx context.Context, app *AppContext, limit int, stdout io.Writer) error {
	store, err := sessionstore.Open(ctx, app.Config.IndexFile())
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No sessions recorded.")
		return nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tRUN\tSTATE\tSTARTED\tDURATION\tCHANNELS\tFILES")
	for _, e := range entries {
		dur := time.Duration(e.DurationMs * float64(time.Millisecond)).Round(time.Millisecond)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			e.SessionID, e.RunID, e.State, e.StartedAt.Local().Format(time.DateTime), dur, e.Channels, e.Files)
	}
	return tw.Flush()
}
