package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/storage"
	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

var (
	planCurrent string
	planDryRun  bool
	planJSON    bool
)

type planReport struct {
	Changes  []changeReport `json:"changes"`
	Commands []string       `json:"commands"`
	Rejected []string       `json:"rejected"`
}

type changeReport struct {
	Path     string `json:"path"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan the tests triggered by new upstream versions",
	Long: `Compare the current upstream versions with the persisted snapshot and
write the test commands the changes require to the test-trigger file.

The current snapshot is built from the registries and the release stream
unless --current names a snapshot file. Component versions the catalog
does not publish yet are left out of the plan and of the saved snapshot,
so they are picked up again by a later run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if PlanSvc == nil || Snapshots == nil || Cfg == nil {
			return fmt.Errorf("plan service not initialized")
		}
		ctx := commandContext(cmd)

		previous, err := Snapshots.Load()
		if err != nil {
			return fmt.Errorf("loading previous snapshot: %w", err)
		}

		var current models.Node
		if planCurrent != "" {
			current, err = storage.LoadSnapshotFile(planCurrent)
			if err != nil {
				return fmt.Errorf("loading current snapshot: %w", err)
			}
			current = core.FilterPlatforms(current, Cfg.Snapshot, IgnoredPlatforms)
		} else {
			if SnapshotSource == nil {
				return fmt.Errorf("snapshot source not initialized; pass --current")
			}
			current, err = SnapshotSource.Build(ctx)
			if err != nil {
				return fmt.Errorf("building current snapshot: %w", err)
			}
		}

		policy, err := storage.LoadSupportPolicy(SupportPolicyPath)
		if err != nil {
			return fmt.Errorf("loading support policy: %w", err)
		}

		outcome, err := PlanSvc.Run(ctx, core.PlanRequest{
			Previous:      previous,
			Current:       current,
			Policy:        policy,
			Layout:        Cfg.Snapshot,
			ShortlistSize: Cfg.Component.ShortlistSize,
			ComponentName: Cfg.Component.Name,
		})
		if err != nil {
			return err
		}

		if !planDryRun {
			if err := storage.WriteTriggerFile(TriggerFilePath, outcome.Commands); err != nil {
				return fmt.Errorf("writing test-trigger file: %w", err)
			}
			if err := Snapshots.Save(outcome.Snapshot); err != nil {
				return fmt.Errorf("saving snapshot: %w", err)
			}
		}

		report := planReport{
			Changes:  changeReports(outcome.Changes),
			Commands: nonNil(outcome.Commands),
			Rejected: nonNil(outcome.Rejected),
		}
		out := cmd.OutOrStdout()
		if planJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting plan as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(report.Changes) == 0 {
			fmt.Fprintln(out, "No version changes.")
		} else {
			fmt.Fprintf(out, "%d version change(s):\n", len(report.Changes))
			printChanges(cmd, report.Changes)
		}
		if len(report.Rejected) > 0 {
			fmt.Fprintf(out, "\nNot yet in the catalog, deferred: %s\n", strings.Join(report.Rejected, ", "))
		}
		fmt.Fprintf(out, "\n%d test command(s)", len(report.Commands))
		if planDryRun {
			fmt.Fprintln(out, " (dry run, nothing written):")
		} else {
			fmt.Fprintf(out, " written to %s:\n", TriggerFilePath)
		}
		for _, c := range report.Commands {
			fmt.Fprintf(out, "  %s\n", c)
		}
		return nil
	},
}

func changeReports(changes []core.Change) []changeReport {
	out := make([]changeReport, len(changes))
	for i, c := range changes {
		out[i] = changeReport{Path: strings.Join(c.Path, "/"), OldValue: c.OldValue, NewValue: c.NewValue}
	}
	return out
}

func printChanges(cmd *cobra.Command, changes []changeReport) {
	for _, c := range changes {
		old := c.OldValue
		if old == "" {
			old = "(new)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %s -> %s\n", c.Path, old, c.NewValue)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func init() {
	planCmd.Flags().StringVar(&planCurrent, "current", "", "Read the current snapshot from a JSON file instead of the upstream sources")
	planCmd.Flags().BoolVar(&planDryRun, "dry-run", false, "Print the plan without writing the trigger file or the snapshot")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Output the plan as JSON")
	rootCmd.AddCommand(planCmd)
}
