package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "cimatrix",
	Short: "CI version tracking and test matrix planning",
	Long: `cimatrix tracks which platform and component versions have been validated
together by CI, decides which new combinations must be tested after an
upstream release, and folds CI build outcomes into a durable test history.

Typical scheduled use runs "cimatrix plan" to write the test-trigger file and
"cimatrix collect" to update the history from finished builds.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cimatrix %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. SIGINT cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// commandContext returns the command's context carrying the configured logger.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := Logger
	if logger == nil {
		logger = slog.Default()
	}
	return slogcontext.NewCtx(ctx, logger)
}
