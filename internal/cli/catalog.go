package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the operator bundle catalog",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check <component-version> <platform>...",
	Short: "Check whether a component version is published for platforms",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if CatalogFilter == nil {
			return fmt.Errorf("catalog filter not initialized")
		}
		ctx := commandContext(cmd)

		version, platforms := args[0], args[1:]
		result, err := CatalogFilter.Check(ctx, []string{version}, platforms)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		var missing []string
		for _, p := range platforms {
			status := "published"
			if !result.Available(version, p) {
				status = "missing"
				missing = append(missing, p)
			}
			fmt.Fprintf(out, "  %-8s %s\n", p, status)
		}
		fmt.Fprintf(out, "%d catalog entries scanned.\n", result.EntryCount())
		if len(missing) > 0 {
			return fmt.Errorf("%s is not published for %s", version, strings.Join(missing, ", "))
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogCheckCmd)
	rootCmd.AddCommand(catalogCmd)
}
