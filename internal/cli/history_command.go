package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"polyphon.dev/internal/tracking"
)

// newHistoryCommand builds the `polyphon history` subcommand.
func (c *CLI) newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent playback events from the journal",
		RunE:  c.runHistory,
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of events to show")
	return cmd
}

func (c *CLI) runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	out := cmd.OutOrStdout()

	recorder, err := tracking.NewRecorder(c.configManager.GetTrackingDBPath())
	if err != nil {
		return fmt.Errorf("playback journal unavailable: %w", err)
	}
	defer recorder.Close()

	events, err := recorder.Recent(limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "no playback events recorded")
		return nil
	}

	for _, e := range events {
		line := fmt.Sprintf("%s  %-19s %s",
			e.Timestamp.Format(time.DateTime), e.Kind, e.Sound)
		if e.Detail != "" {
			line += "  (" + e.Detail + ")"
		}
		fmt.Fprintln(out, line)
	}

	counts, err := recorder.CountByKind()
	if err == nil && len(counts) > 0 {
		fmt.Fprintf(out, "\ntotals:")
		for kind, n := range counts {
			fmt.Fprintf(out, " %s=%d", kind, n)
		}
		fmt.Fprintln(out)
	}

	return nil
}
