package suite

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/roach88/vharness/internal/check"
	"github.com/roach88/vharness/internal/constraint"
	"github.com/roach88/vharness/internal/enumerate"
	"github.com/roach88/vharness/internal/environ"
	"github.com/roach88/vharness/internal/fixture"
	"github.com/roach88/vharness/internal/source"
)

// DataTag is the tag an inline dataset's []source.Record is bound under.
func DataTag(name string) environ.Tag {
	return environ.Tag("data." + name)
}

// SourceTag is the tag a SQL source's *source.DB is bound under.
func SourceTag(name string) environ.Tag {
	return environ.Tag("source." + name)
}

// recordParams are the params of every compiled check body.
var recordParams = []environ.Param{
	environ.ParamOf[source.Record]("record", ""),
	environ.ParamOf[*check.Recorder]("recorder", ""),
}

// Compiled is a suite ready to run. Close releases its sources.
type Compiled struct {
	Name    string
	RunDate time.Time

	// Env binds the suite's datasets and sources.
	Env *environ.Environ

	Registry *fixture.Registry

	sources []*source.DB
}

// Fixtures returns the compiled fixtures in declared order.
func (c *Compiled) Fixtures() []fixture.Fixture {
	return c.Registry.Fixtures()
}

// Close closes every opened source.
func (c *Compiled) Close() error {
	var errs []error
	for _, db := range c.sources {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.sources = nil
	return errors.Join(errs...)
}

// exprCompiler is implemented by evaluators that can reject a constraint
// before it is evaluated, such as *constraint.CUE.
type exprCompiler interface {
	Compile(expr string) error
}

// Compile opens the suite's sources, binds its data and builds its
// fixtures. A nil eval uses a CUE evaluator. The caller must Close the
// result.
func Compile(ctx context.Context, s *Suite, eval constraint.Evaluator) (_ *Compiled, err error) {
	if eval == nil {
		eval = constraint.NewCUE()
	}
	if err := precompile(s, eval); err != nil {
		return nil, err
	}
	runDate, err := s.ParseRunDate()
	if err != nil {
		return nil, err
	}

	c := &Compiled{Name: s.Name, RunDate: runDate, Registry: fixture.NewRegistry()}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	b := environ.NewBuilder()
	for _, name := range sortedKeys(s.Data) {
		rows := s.Data[name]
		records := make([]source.Record, len(rows))
		for i, row := range rows {
			records[i] = source.NewRecord(row)
		}
		environ.BindTagged(b, DataTag(name), records)
	}

	for _, name := range sortedKeys(s.Sources) {
		src := s.Sources[name]
		db, err := source.Open(src.Driver, src.DSN)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		c.sources = append(c.sources, db)
		if err := db.Exec(ctx, src.Setup...); err != nil {
			return nil, fmt.Errorf("source %q setup: %w", name, err)
		}
		environ.BindTagged(b, SourceTag(name), db)
	}

	if c.Env, err = b.Build(); err != nil {
		return nil, err
	}

	for _, f := range s.Fixtures {
		if err := c.Registry.Register(compileFixture(f, eval)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// precompile rejects malformed constraints before anything runs.
func precompile(s *Suite, eval constraint.Evaluator) error {
	cc, ok := eval.(exprCompiler)
	if !ok {
		return nil
	}
	for _, f := range s.Fixtures {
		for _, t := range f.Templates {
			for i, flt := range t.Filters {
				if err := cc.Compile(flt.Constraint); err != nil {
					return fmt.Errorf("fixture %q template %q filter %d: %w", f.Name, t.Name, i, err)
				}
			}
			for i, chk := range t.Checks {
				if err := cc.Compile(chk.Constraint); err != nil {
					return fmt.Errorf("fixture %q template %q check %d: %w", f.Name, t.Name, i, err)
				}
			}
		}
	}
	return nil
}

func compileFixture(f Fixture, eval constraint.Evaluator) fixture.Fixture {
	out := fixture.Fixture{Name: f.Name, Skip: f.Skip, NoReport: f.NoReport}
	for _, t := range f.Templates {
		out.Templates = append(out.Templates, compileTemplate(t, eval))
	}
	return out
}

func compileTemplate(t Template, eval constraint.Evaluator) fixture.Template {
	out := fixture.Template{
		Name:     t.Name,
		Skip:     t.Skip,
		NoReport: t.NoReport,
		Params:   recordParams,
	}

	if t.Query != nil {
		out.Enumerator = source.Query{
			Source:  SourceTag(t.Query.Source),
			SQL:     t.Query.SQL,
			Args:    t.Query.Args,
			Key:     t.Key,
			Label:   t.Label,
			Workers: t.Parallel,
		}
	} else {
		out.Enumerator = source.Records{
			Source:  DataTag(t.ForEach),
			Key:     t.Key,
			Label:   t.Label,
			Workers: t.Parallel,
		}
	}

	for _, f := range t.Filters {
		// Directions were validated when the suite was parsed.
		dir, _ := enumerate.ParseDirection(f.Direction)
		out.Rules = append(out.Rules, enumerate.Rule{
			Filter:    fieldFilter{field: f.Field, expr: f.Constraint, eval: eval},
			Direction: dir,
		})
	}

	if len(t.Exemptions) > 0 {
		out.Exemptions = enumerate.NewExemptions(t.Exemptions...)
	}

	checks := slices.Clone(t.Checks)
	out.Check = func(args []any) error {
		return runChecks(args[0].(source.Record), args[1].(*check.Recorder), checks)
	}
	return out
}

// fieldFilter allows records whose field satisfies a constraint.
type fieldFilter struct {
	field string
	expr  string
	eval  constraint.Evaluator
}

func (f fieldFilter) Filter(env *environ.Environ) (bool, error) {
	rec, err := environ.Require[source.Record](env, "")
	if err != nil {
		return false, err
	}
	v, _ := rec.Get(f.field)
	return f.eval.Evaluate(v, f.expr)
}

func runChecks(rec source.Record, recorder *check.Recorder, checks []Check) error {
	for _, c := range checks {
		value := fieldValue(rec, c.Field)
		if c.Critical {
			if err := recorder.CriticalThat(value, c.Constraint, c.describe()); err != nil {
				return err
			}
			continue
		}
		if err := recorder.That(value, c.Constraint, c.describe()); err != nil {
			return err
		}
	}
	return nil
}

// fieldValue returns the checked value; a missing field checks as null.
func fieldValue(rec source.Record, field string) any {
	if field == "" {
		return map[string]any(rec)
	}
	v, _ := rec.Get(field)
	return v
}

func (c Check) describe() string {
	if c.Description != "" {
		return c.Description
	}
	if c.Field == "" {
		return "record " + c.Constraint
	}
	return c.Field + " " + c.Constraint
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
