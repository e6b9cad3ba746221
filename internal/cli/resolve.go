package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/mender/internal/cache"
	"github.com/dshills/mender/internal/checker"
	"github.com/dshills/mender/internal/config"
	"github.com/dshills/mender/internal/finding"
	"github.com/dshills/mender/internal/gitctx"
	"github.com/dshills/mender/internal/output"
	"github.com/dshills/mender/internal/providers"
	"github.com/dshills/mender/internal/report"
	"github.com/dshills/mender/internal/resolve"
)

// Resolve flags
var (
	flagReport    string
	flagMargin    int
	flagOnlyNew   bool
	flagReset     bool
	flagProvider  string
	flagModel     string
	flagFormat    string
	flagOut       string
	flagJobs      int
	flagExclude   string
	flagNoRedact  bool
	flagFailOnNew bool
	flagSince     string
)

// newProvider is swapped out in tests.
var newProvider = providers.New

var errUsage = errors.New("usage error")

func addResolveFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagReport, "report", "", "Read findings from a saved report (table or .json) instead of running the checker")
	cmd.Flags().IntVar(&flagMargin, "margin", 0, "Lines of context on each side of a finding sent to the resolver")
	cmd.Flags().BoolVar(&flagOnlyNew, "only-new", false, "Emit only results that were not already cached")
	cmd.Flags().BoolVar(&flagReset, "reset", false, "Clear the cache namespace before resolving")
	cmd.Flags().StringVar(&flagProvider, "provider", "", "LLM provider (anthropic, openai, gemini, ollama)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format ("+strings.Join(output.Formats, ", ")+")")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().IntVar(&flagJobs, "jobs", 0, "Number of groups resolved concurrently")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude finding paths (comma-separated gitignore patterns)")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagFailOnNew, "fail-on-new", false, "Exit 1 when any result was not served from the cache")
	cmd.Flags().StringVar(&flagSince, "since", "", "Only resolve findings in files changed since this git revision")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagMargin > 0 {
		m["marginLines"] = strconv.Itoa(flagMargin)
	}
	if flagJobs > 0 {
		m["jobs"] = strconv.Itoa(flagJobs)
	}
	return m
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [targets...]",
	Short: "Run the checker and resolve its findings",
	Long: `Run the configured checker on each target directory (default "."), group
its findings by file and line, and resolve every group through the cache or
the LLM provider. With --report, findings are read from a saved report and
resolved against a single target.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		if _, err := output.GetWriter(cfg.Format); err != nil {
			return err
		}
		cfg.Exclude = append(cfg.Exclude, splitComma(flagExclude)...)
		if flagNoRedact {
			cfg.Privacy.RedactSecrets = false
			fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
		}

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}

		targets := args
		if len(targets) == 0 {
			targets = []string{"."}
		}
		if flagReport != "" && len(targets) > 1 {
			return fmt.Errorf("--report accepts a single target, got %d", len(targets))
		}

		exitCode = runResolve(cmd.Context(), targets, cfg, log)
		return nil
	},
}

// runResolve drives one resolve invocation and returns the exit code.
func runResolve(ctx context.Context, targets []string, cfg config.Config, log zerolog.Logger) int {
	c, err := cache.New(cache.Options{
		BaseDir:    cfg.Cache.Dir,
		Namespace:  cfg.Cache.Namespace,
		TTLHours:   cfg.Cache.TTLHours,
		MaxEntries: cfg.Cache.MaxEntries,
		Logger:     log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening cache: %v\n", err)
		return ExitRuntimeError
	}
	if flagReset {
		n, err := c.Clear()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: clearing cache: %v\n", err)
			return ExitRuntimeError
		}
		log.Info().Int("removed", n).Str("dir", c.Dir()).Msg("cache reset")
	}

	p, err := newProvider(cfg.Provider, cfg.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if _, known := providers.DefaultModels[providers.Canonical(cfg.Provider)]; known {
			return ExitAuthError
		}
		return ExitUsageError
	}
	resolver := resolve.NewLLMResolver(p, resolve.LLMOptions{
		RedactSecrets: cfg.Privacy.RedactSecrets,
		Withhold:      cfg.Privacy.WithholdPaths,
	})

	var merged *resolve.Report
	for _, target := range targets {
		abs, err := filepath.Abs(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitRuntimeError
		}
		findings, err := loadFindings(ctx, abs, cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, errUsage) {
				return ExitUsageError
			}
			return ExitRuntimeError
		}

		aggOpts := finding.AggregateOptions{
			Root:    abs,
			Exclude: cfg.Exclude,
		}
		if flagSince != "" {
			changed, err := gitctx.ChangedFiles(ctx, abs, flagSince)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return ExitRuntimeError
			}
			log.Debug().Str("since", flagSince).Int("files", len(changed)).Msg("restricting to changed files")
			aggOpts.Only = changed
		}
		idx := finding.Aggregate(findings, aggOpts)
		log.Info().
			Str("target", abs).
			Int("findings", len(findings)).
			Int("groups", idx.Len()).
			Msg("aggregated findings")

		opts := resolve.DefaultOptions()
		opts.Root = abs
		opts.MarginLines = cfg.MarginLines
		opts.OnlyNew = flagOnlyNew
		opts.Jobs = cfg.Jobs
		opts.Logger = log

		rep, err := resolve.NewEngine(c, resolver, opts).Run(ctx, idx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if providers.IsAuthError(err) {
				return ExitAuthError
			}
			return ExitRuntimeError
		}
		rep.Targets = []string{abs}
		merged = mergeReport(merged, rep)
	}

	if err := output.WriteReport(merged, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return ExitRuntimeError
	}

	if flagFailOnNew && merged.Summary.Resolved+merged.Summary.Unresolved > 0 {
		return ExitFindings
	}
	return ExitSuccess
}

// loadFindings reads findings for target from --report or by running the checker.
func loadFindings(ctx context.Context, target string, cfg config.Config, log zerolog.Logger) ([]finding.Finding, error) {
	schema := report.Schema{Columns: cfg.Checker.Columns}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("%w: checker.columns: %v", errUsage, err)
	}
	if flagReport != "" {
		return report.ReadFile(flagReport, schema)
	}

	lines, err := checker.Run(ctx, checker.Command{
		Argv:    cfg.Checker.Command,
		Timeout: time.Duration(cfg.Checker.TimeoutSeconds) * time.Second,
	}, target, log)
	if err != nil {
		return nil, err
	}
	return report.ParseLines(lines, schema)
}

// mergeReport folds src into dst. The first report keeps its RunID.
func mergeReport(dst, src *resolve.Report) *resolve.Report {
	if dst == nil {
		return src
	}
	dst.Targets = append(dst.Targets, src.Targets...)
	dst.Results = append(dst.Results, src.Results...)
	dst.Summary.Groups += src.Summary.Groups
	dst.Summary.Hits += src.Summary.Hits
	dst.Summary.Suppressed += src.Summary.Suppressed
	dst.Summary.Resolved += src.Summary.Resolved
	dst.Summary.Unresolved += src.Summary.Unresolved
	dst.Summary.Failed += src.Summary.Failed
	dst.Summary.ResolverCalls += src.Summary.ResolverCalls
	dst.Timing.ResolverMs += src.Timing.ResolverMs
	dst.Timing.TotalMs += src.Timing.TotalMs
	return dst
}

func init() {
	addResolveFlags(resolveCmd)
}
