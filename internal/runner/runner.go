package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/vharness/internal/constraint"
	"github.com/roach88/vharness/internal/environ"
	"github.com/roach88/vharness/internal/fixture"
	"github.com/roach88/vharness/internal/result"
)

// TagRunDate is the tag under which the run date (time.Time) is bound for
// check bodies.
const TagRunDate environ.Tag = "run_date"

// TagRunID is the tag under which the run ID (string) is bound.
const TagRunID environ.Tag = "run_id"

// Runner runs a set of fixtures once.
type Runner struct {
	logger  *slog.Logger
	eval    constraint.Evaluator
	clock   Clock
	ids     IDGenerator
	runDate time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Runners log nothing by default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEvaluator sets the constraint evaluator handed to check recorders.
// Defaults to a CUE evaluator.
func WithEvaluator(eval constraint.Evaluator) Option {
	return func(r *Runner) {
		r.eval = eval
	}
}

// WithClock sets the clock the default run date is read from.
func WithClock(clock Clock) Option {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRunDate fixes the run date instead of reading the clock.
func WithRunDate(date time.Time) Option {
	return func(r *Runner) {
		r.runDate = date
	}
}

// WithIDGenerator sets the run ID generator. Defaults to UUIDv7Generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(r *Runner) {
		if ids != nil {
			r.ids = ids
		}
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		logger: discardLogger(),
		eval:   constraint.NewCUE(),
		clock:  time.Now,
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run runs fixtures in order against env and returns the run result. A nil
// env runs against an empty root.
//
// Check bodies can request the run date as time.Time tagged TagRunDate
// and the run ID as string tagged TagRunID.
func (r *Runner) Run(ctx context.Context, env *environ.Environ, fixtures []fixture.Fixture) *result.RunResult {
	runID, date, err := r.start()
	res := result.NewRunResult(runID, date)
	if err != nil {
		res.SetError(err)
		res.Finish()
		r.logger.Warn("run harness error", "error", err)
		return res
	}

	if env == nil {
		env = &environ.Environ{}
	}
	env = environ.ExtendTagged(env, TagRunDate, date)
	env = environ.ExtendTagged(env, TagRunID, res.RunID)

	logger := r.logger.With("run", res.RunID)
	logger.Info("run started", "fixtures", len(fixtures), "date", date.Format(time.DateOnly))

	if err := r.runFixtures(ctx, env, fixtures, res, NewFixtureRunner(logger, r.eval)); err != nil {
		res.SetError(err)
		logger.Warn("run harness error", "error", err)
	}
	res.Finish()

	logger.Info("run finished",
		"status", res.Status.String(),
		"fixtures", res.Fixtures.Total(),
		"templates", res.Templates.Total(),
		"instances", res.Instances.Total(),
	)
	return res
}

func (r *Runner) runFixtures(ctx context.Context, env *environ.Environ, fixtures []fixture.Fixture, res *result.RunResult, runner *FixtureRunner) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = newPanicError(p)
		}
	}()

	for _, f := range fixtures {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.AddFixtureResult(runner.Run(ctx, env, f))
	}
	return nil
}

// start reads the run date and generates the run ID. Both call out to
// pluggable code, so a panic there becomes the run error.
func (r *Runner) start() (runID string, date time.Time, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("start run: %w", newPanicError(p))
		}
	}()

	date = r.runDate
	if date.IsZero() {
		date = r.clock()
	}
	return r.ids.Generate(), date, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
