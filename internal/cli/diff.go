package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/storage"
)

var diffJSON bool

var diffCmd = &cobra.Command{
	Use:   "diff <previous.json> <current.json>",
	Short: "Show the versions that are new or changed between two snapshots",
	Long: `Compare two version snapshot files. Only new and changed versions are
reported; versions removed from the current snapshot are not.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		previous, err := storage.LoadSnapshotFile(args[0])
		if err != nil {
			return fmt.Errorf("loading %s: %w", args[0], err)
		}
		current, err := storage.LoadSnapshotFile(args[1])
		if err != nil {
			return fmt.Errorf("loading %s: %w", args[1], err)
		}

		diff := core.Diff(previous, current)
		if diffJSON {
			data, err := json.MarshalIndent(diff, "", "    ")
			if err != nil {
				return fmt.Errorf("formatting diff as JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		changes := changeReports(core.Changes(previous, diff))
		if len(changes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No version changes.")
			return nil
		}
		printChanges(cmd, changes)
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output the diff tree as JSON")
	rootCmd.AddCommand(diffCmd)
}
