package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/vharness/internal/check"
	"github.com/roach88/vharness/internal/constraint"
	"github.com/roach88/vharness/internal/enumerate"
	"github.com/roach88/vharness/internal/environ"
	"github.com/roach88/vharness/internal/fixture"
	"github.com/roach88/vharness/internal/result"
)

// TemplateRunner runs one template at a time.
//
// Thread-safety: a TemplateRunner holds no per-run state and may run
// templates concurrently.
type TemplateRunner struct {
	logger *slog.Logger
	eval   constraint.Evaluator
}

// NewTemplateRunner creates a template runner. eval is handed to every
// instance's check.Recorder; it may be nil when no body uses That.
func NewTemplateRunner(logger *slog.Logger, eval constraint.Evaluator) *TemplateRunner {
	if logger == nil {
		logger = discardLogger()
	}
	return &TemplateRunner{logger: logger, eval: eval}
}

// Run evaluates every instance of t against env and returns the finished
// result. A template tagged Skip reports Skipped without touching its
// enumerator.
//
// The enumerator sees env extended with the template's context.Context,
// the enumerate.InstanceFunc evaluating one instance, and a self binding
// (*environ.Environ).
func (r *TemplateRunner) Run(ctx context.Context, env *environ.Environ, t fixture.Template) *result.TemplateResult {
	res := result.NewTemplateResult(t.Name, t.NoReport)
	if t.Skip {
		res.Skip()
		r.logger.Debug("template skipped", "template", t.Name)
		return res
	}
	if t.Check == nil {
		res.SetError(errNoCheck)
		res.Finish()
		return res
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := &templateRun{
		ctx:    ctx,
		cancel: cancel,
		tmpl:   t,
		enum:   t.Enum(),
		res:    res,
		eval:   r.eval,
		logger: r.logger.With("template", t.Name),
	}

	env = environ.Extend[context.Context](env, ctx)
	env = environ.Extend(env, enumerate.InstanceFunc(run.evaluate))
	env = env.WithSelf()

	run.logger.Debug("template started")
	if err := run.project(env); err != nil {
		// A cancellation we triggered ourselves is not a new error.
		if res.Err() == nil || !errors.Is(err, context.Canceled) {
			run.escape(err)
		}
	}
	res.Finish()

	run.logger.Debug("template finished",
		"status", res.Status.String(),
		"instances", res.Instances.Total(),
		"failures", res.Instances.Failure(),
		"errors", res.Instances.Error(),
	)
	return res
}

// templateRun is the state shared by the instance evaluations of one
// template run.
type templateRun struct {
	ctx    context.Context
	cancel context.CancelFunc
	tmpl   fixture.Template
	enum   enumerate.Enumerator
	res    *result.TemplateResult
	eval   constraint.Evaluator
	logger *slog.Logger
}

func (r *templateRun) project(env *environ.Environ) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = newPanicError(p)
		}
	}()
	return r.enum.Project(r.ctx, env, r.evaluate)
}

// escape captures a harness error. The first error wins; every call
// discards the instance list and cancels the template.
func (r *templateRun) escape(err error) {
	if r.res.SetError(err) {
		r.logger.Warn("template harness error", "error", err)
	}
	r.res.Discard()
	r.cancel()
}

// evaluate is the enumerate.InstanceFunc handed to the enumerator. It may
// be called from many goroutines at once.
func (r *templateRun) evaluate(env *environ.Environ) {
	if r.ctx.Err() != nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.escape(newPanicError(p))
		}
	}()
	if err := r.instance(env); err != nil {
		r.escape(err)
	}
}

// instance runs one instance. A returned error is a harness error;
// outcomes of the check body are counted here and never returned.
func (r *templateRun) instance(env *environ.Environ) error {
	ok, err := enumerate.Allowed(r.tmpl.Rules, env)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if r.tmpl.Exemptions != nil {
		exempt, err := r.enum.Exempt(env, r.tmpl.Exemptions)
		if err != nil {
			return fmt.Errorf("exemption: %w", err)
		}
		if exempt {
			return nil
		}
	}

	rec := check.NewRecorder(r.res.ShouldRecord(), r.eval)
	env = environ.Extend(env, rec).WithSelf()

	args, err := env.ResolveAll(r.tmpl.Params)
	if err != nil {
		return err
	}

	bodyErr := runBody(r.tmpl.Check, args)
	switch {
	case bodyErr == nil && !rec.Failed():
		r.res.Instances.AddSuccess()
		return nil

	case bodyErr == nil || check.IsCriticalAbort(bodyErr):
		r.res.Instances.AddFailure()
		return r.keep(env, func(name string) result.InstanceResult {
			return result.InstanceResult{Name: name, Status: result.StatusFailure, Checks: rec.Results()}
		})

	default:
		r.res.Instances.AddError()
		r.logger.Debug("instance error", "error", bodyErr)
		return r.keep(env, func(name string) result.InstanceResult {
			return result.InstanceResult{Name: name, Status: result.StatusError, Err: bodyErr}
		})
	}
}

// keep stores an instance result while the template is under its cap.
// The instance is only named when it will be kept.
func (r *templateRun) keep(env *environ.Environ, build func(name string) result.InstanceResult) error {
	if !r.res.ShouldRecord() {
		return nil
	}
	name, err := r.enum.Name(env)
	if err != nil {
		return fmt.Errorf("instance name: %w", err)
	}
	r.res.AddInstanceResult(build(name))
	return nil
}

func runBody(fn fixture.CheckFunc, args []any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = newPanicError(p)
		}
	}()
	return fn(args)
}
