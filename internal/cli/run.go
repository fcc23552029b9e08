package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/vharness/internal/constraint"
	"github.com/roach88/vharness/internal/report"
	"github.com/roach88/vharness/internal/result"
	"github.com/roach88/vharness/internal/runner"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// Fixture selects fixtures by slash-path glob; empty runs them all.
	Fixture string

	// Date overrides the suite's run date (YYYY-MM-DD).
	Date string

	// Hidden includes fixtures and templates marked no_report.
	Hidden bool

	// Output writes the report to a file instead of stdout.
	Output string

	// IDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to runner.UUIDv7Generator.
	IDGenerator runner.IDGenerator

	// Clock allows overriding the clock the default run date is read from.
	Clock runner.Clock
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <suite.yaml>",
		Short: "Run a validation suite and report the results",
		Long: `Run every fixture of a validation suite and print the run report.

The command exits with status 1 when the run ends in failure or error, and
with status 2 when the suite cannot be loaded.

Example:
  vharness run ./suites/billing.yaml
  vharness run --fixture 'billing/*' --date 2024-03-01 --format json ./suites/billing.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Fixture, "fixture", "", "only run fixtures matching this slash-path glob")
	cmd.Flags().StringVar(&opts.Date, "date", "", "run date (YYYY-MM-DD), overrides the suite's run_date")
	cmd.Flags().BoolVar(&opts.Hidden, "hidden", false, "include no_report fixtures and templates in the report")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the report to a file")

	return cmd
}

func runSuite(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eval := constraint.NewCUE()
	compiled, err := loadSuite(ctx, formatter, path, eval)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := compiled.Close(); closeErr != nil {
			logger.Error("error closing sources", "error", closeErr)
		}
	}()

	fixtures, err := compiled.Registry.Match(opts.Fixture)
	if err != nil {
		return formatter.fail(ErrCodeGeneric, "invalid --fixture pattern", err)
	}
	if len(fixtures) == 0 {
		_ = formatter.Error(ErrCodeNoFixtures, fmt.Sprintf("no fixture matches %q", opts.Fixture), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: no fixture matches %q", ErrCodeNoFixtures, opts.Fixture))
	}

	runDate := compiled.RunDate
	if opts.Date != "" {
		runDate, err = time.Parse(time.DateOnly, opts.Date)
		if err != nil {
			return formatter.fail(ErrCodeGeneric, "invalid --date", err)
		}
	}

	runnerOpts := []runner.Option{
		runner.WithLogger(logger.With("suite", compiled.Name)),
		runner.WithEvaluator(eval),
		runner.WithRunDate(runDate),
		runner.WithIDGenerator(opts.IDGenerator),
		runner.WithClock(opts.Clock),
	}
	res := runner.New(runnerOpts...).Run(ctx, compiled.Env, fixtures)

	rep := report.Build(res, report.Options{Hidden: opts.Hidden})
	if err := writeReport(opts, formatter, rep); err != nil {
		return formatter.fail(ErrCodeWriteFailed, "failed to write report", err)
	}

	if res.Status == result.StatusFailure || res.Status == result.StatusError {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s ended in %s", res.RunID, res.Status))
	}
	return nil
}

func writeReport(opts *RunOptions, formatter *OutputFormatter, rep *report.Report) (err error) {
	w := formatter.Writer
	if opts.Output != "" {
		f, createErr := os.Create(opts.Output)
		if createErr != nil {
			return createErr
		}
		defer func() {
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
		}()
		w = f
		formatter.VerboseLog("Writing report to %s", opts.Output)
	}
	return encodeReport(w, opts.Format, rep)
}

func encodeReport(w io.Writer, format string, rep *report.Report) error {
	if format == "json" {
		return report.WriteJSON(w, rep)
	}
	return report.WriteText(w, rep)
}
