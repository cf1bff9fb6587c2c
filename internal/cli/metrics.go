package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display test history and run metrics",
	Long: `Display per-platform pass counts from the test history and run counts
derived from the event log.

Platform figures cover the whole history; run counts cover the --since window.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil || History == nil {
			return fmt.Errorf("metrics calculator not initialized")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		history, err := History.Load()
		if err != nil {
			return fmt.Errorf("loading history: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(history, sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "Runs (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", metrics.Runs.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Plan runs:", metrics.Runs.PlanRuns)
		fmt.Fprintf(out, "  %-24s %d\n", "Version changes:", metrics.Runs.VersionChanges)
		fmt.Fprintf(out, "  %-24s %d\n", "Catalog rejections:", metrics.Runs.CatalogRejected)
		fmt.Fprintf(out, "  %-24s %d\n", "Policy violations:", metrics.Runs.PolicyViolations)
		fmt.Fprintf(out, "  %-24s %d\n", "Collect runs:", metrics.Runs.CollectRuns)
		fmt.Fprintf(out, "  %-24s %d\n", "Builds skipped:", metrics.Runs.BuildsSkipped)
		if metrics.Runs.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", metrics.Runs.OldestEvent.Format(time.RFC3339))
		}
		if metrics.Runs.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", metrics.Runs.NewestEvent.Format(time.RFC3339))
		}

		if len(metrics.Platforms) == 0 {
			fmt.Fprintln(out, "\nNo test history.")
			return nil
		}
		fmt.Fprintf(out, "\n  %-8s %-10s %-10s %-8s %s\n", "PLATFORM", "RELEASES", "BUNDLES", "RATE", "LAST BUNDLE")
		for _, p := range metrics.Platforms {
			last := "-"
			if p.LastBundleOutcome != "" {
				last = string(p.LastBundleOutcome)
			}
			fmt.Fprintf(out, "  %-8s %-10s %-10s %-8s %s\n",
				p.Platform,
				fmt.Sprintf("%d/%d", p.ReleasePasses, p.ReleaseRuns),
				fmt.Sprintf("%d/%d", p.BundlePasses, p.BundleRuns),
				fmt.Sprintf("%.0f%%", p.BundlePassRate*100),
				last)
		}
		return nil
	},
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for run counts (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
