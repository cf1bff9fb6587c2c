package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/storage"
	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

var (
	collectPRs    []int
	collectDryRun bool
	collectOutput string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fold finished CI builds into the test history",
	Long: `Scan the CI builds of pull requests and merge their outcomes into the
test history file.

Without --pr the closed pull requests against the configured base branch
are scanned. With --output the collected observations are written to a
separate history fragment instead, which "cimatrix merge" can fold in
later; this lets several collectors run in parallel.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if CollectSvc == nil || History == nil || Cfg == nil {
			return fmt.Errorf("collect service not initialized")
		}
		ctx := commandContext(cmd)

		history := models.History{}
		if collectOutput == "" {
			loaded, err := History.Load()
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}
			history = loaded
		}

		merged, result, err := CollectSvc.Run(ctx, core.CollectRequest{
			PRs:        collectPRs,
			BaseBranch: Cfg.GitHub.BaseBranch,
		}, history)
		if err != nil {
			return fmt.Errorf("collecting builds: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Collected %d build(s) across %d platform(s); %d skipped.\n", result.Builds, len(result.Batches), result.Skipped)
		if collectDryRun {
			fmt.Fprintln(out, "Dry run, history not written.")
			return nil
		}

		target := History
		if collectOutput != "" {
			target = storage.NewHistoryStore(collectOutput)
		}
		if err := target.Save(merged); err != nil {
			return fmt.Errorf("saving history: %w", err)
		}
		fmt.Fprintf(out, "History written to %s.\n", target.Path())
		return nil
	},
}

func init() {
	collectCmd.Flags().IntSliceVar(&collectPRs, "pr", nil, "Pull request numbers to scan (repeatable); default is all closed PRs")
	collectCmd.Flags().BoolVar(&collectDryRun, "dry-run", false, "Collect without writing the history")
	collectCmd.Flags().StringVarP(&collectOutput, "output", "o", "", "Write a history fragment to this file instead of updating the history")
	rootCmd.AddCommand(collectCmd)
}
