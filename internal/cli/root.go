package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/mender/internal/config"
	"github.com/dshills/mender/internal/logging"
)

const version = "0.1.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

// Global flags
var (
	flagVerbose   int
	flagQuiet     bool
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:           "mender",
	Short:         "Resolve static-analysis findings with an LLM",
	Long:          "mender runs a line-oriented checker, groups its findings by file and line, and asks an LLM provider for a fix for each group, caching every answer on disk.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// newLogger builds the stderr logger. -v/-q take precedence over log.level.
func newLogger(cfg config.Config) (zerolog.Logger, error) {
	level := logging.LevelFromVerbosity(flagVerbose, flagQuiet)
	if level == "" {
		level = cfg.Log.Level
	}
	format := cfg.Log.Format
	if flagLogFormat != "" {
		format = flagLogFormat
	}
	return logging.New(os.Stderr, level, format)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print mender version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mender version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (auto, console, json)")
}
