package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/storage"
	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <fragment.json>...",
	Short: "Merge history fragments into the test history",
	Long: `Merge history fragments written by "cimatrix collect --output" into the
test history. Observations of the same build are deduplicated and the
per-platform limits apply as for a regular collect run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Reconciler == nil || History == nil {
			return fmt.Errorf("reconciler not initialized")
		}
		ctx := commandContext(cmd)

		history, err := History.Load()
		if err != nil {
			return fmt.Errorf("loading history: %w", err)
		}

		batches := map[string]models.PlatformBatch{}
		for _, path := range args {
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("reading fragment: %w", err)
			}
			fragment, err := storage.NewHistoryStore(path).Load()
			if err != nil {
				return fmt.Errorf("loading fragment %s: %w", path, err)
			}
			for platform, bucket := range fragment {
				if bucket == nil {
					continue
				}
				b := batches[platform]
				b.Bundle = append(b.Bundle, bucket.BundleObservations...)
				b.Release = append(b.Release, bucket.ReleaseObservations...)
				b.SourceLinks = append(b.SourceLinks, bucket.SourceLinks...)
				batches[platform] = b
			}
		}

		merged := Reconciler.Merge(ctx, batches, history)
		if err := History.Save(merged); err != nil {
			return fmt.Errorf("saving history: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Merged %d fragment(s) covering %d platform(s) into %s.\n", len(args), len(batches), History.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
