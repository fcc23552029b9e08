package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/vharness/internal/constraint"
	"github.com/roach88/vharness/internal/environ"
	"github.com/roach88/vharness/internal/fixture"
	"github.com/roach88/vharness/internal/result"
)

// FixtureRunner runs a fixture's templates sequentially, in declared order.
type FixtureRunner struct {
	logger *slog.Logger
	eval   constraint.Evaluator
}

// NewFixtureRunner creates a fixture runner.
func NewFixtureRunner(logger *slog.Logger, eval constraint.Evaluator) *FixtureRunner {
	if logger == nil {
		logger = discardLogger()
	}
	return &FixtureRunner{logger: logger, eval: eval}
}

// Run runs f against env. A fixture tagged Skip reports Skipped and runs
// none of its templates.
//
// An error from f.Prepare, a cancelled ctx or a panic outside instance
// evaluation becomes the fixture error; the templates finished so far
// still count, but the template list is discarded.
func (r *FixtureRunner) Run(ctx context.Context, env *environ.Environ, f fixture.Fixture) *result.FixtureResult {
	res := result.NewFixtureResult(f.Name, f.NoReport)
	logger := r.logger.With("fixture", f.Name)
	if f.Skip {
		res.Skip()
		logger.Debug("fixture skipped")
		return res
	}

	logger.Debug("fixture started", "templates", len(f.Templates))
	if err := r.runTemplates(ctx, env, f, res, NewTemplateRunner(logger, r.eval)); err != nil {
		res.SetError(err)
		logger.Warn("fixture harness error", "error", err)
	}
	res.Finish()
	logger.Debug("fixture finished", "status", res.Status.String())
	return res
}

func (r *FixtureRunner) runTemplates(ctx context.Context, env *environ.Environ, f fixture.Fixture, res *result.FixtureResult, templates *TemplateRunner) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = newPanicError(p)
		}
	}()

	for _, t := range f.Templates {
		if err := ctx.Err(); err != nil {
			return err
		}
		tenv := env
		if f.Prepare != nil && !t.Skip {
			tenv, err = f.Prepare(env)
			if err != nil {
				return fmt.Errorf("prepare template %q: %w", t.Name, err)
			}
		}
		res.AddTemplateResult(templates.Run(ctx, tenv, t))
	}
	return nil
}
