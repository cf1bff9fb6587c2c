package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/observability"
)

var summarySince string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Render a Markdown summary of the versions tested recently",
	Long: `Render the bundles, component releases and platform releases that
entered the snapshot during the --since window as Markdown, suitable for a
weekly report. The window ends at the end of today (UTC).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if EventLog == nil || Cfg == nil {
			return fmt.Errorf("event log not initialized")
		}

		since, err := parseSinceDuration(summarySince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		since = since.Truncate(24 * time.Hour)
		until := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)

		summary, err := observability.Summarize(EventLog, Cfg.Snapshot, since, until)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), summary.Markdown())
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summarySince, "since", "7d", "Time window to summarize (e.g. 7d, 30d)")
	rootCmd.AddCommand(summaryCmd)
}
