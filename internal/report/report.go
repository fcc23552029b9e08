// Package report renders a finished result tree as JSON or text.
//
// Reports are deterministic: names are NFC-normalised, instance results are
// sorted by name (the runner keeps them in completion order), and fixtures
// and templates keep their declared order. Fixtures and templates marked
// NotForReporting are left out of the listings unless Options.Hidden is
// set; their counts are always included in the summaries above them.
package report

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/vharness/internal/result"
)

// Options control what a report includes.
type Options struct {
	// Hidden includes fixtures and templates marked NotForReporting.
	Hidden bool
}

// Report is the serialisable form of a run.
type Report struct {
	RunID     string        `json:"run_id"`
	RunDate   string        `json:"run_date"`
	Status    result.Status `json:"status"`
	Error     string        `json:"error,omitempty"`
	Fixtures  result.Counts `json:"fixtures"`
	Templates result.Counts `json:"templates"`
	Instances result.Counts `json:"instances"`
	Results   []Fixture     `json:"results"`
}

// Fixture is one fixture of a report.
type Fixture struct {
	Name      string        `json:"name"`
	Status    result.Status `json:"status"`
	Error     string        `json:"error,omitempty"`
	Templates result.Counts `json:"templates"`
	Instances result.Counts `json:"instances"`
	Results   []Template    `json:"results,omitempty"`
}

// Template is one template of a report.
type Template struct {
	Name      string        `json:"name"`
	Status    result.Status `json:"status"`
	Error     string        `json:"error,omitempty"`
	Instances result.Counts `json:"instances"`
	Results   []Instance    `json:"results,omitempty"`
}

// Instance is one kept instance result.
type Instance struct {
	Name   string               `json:"name"`
	Status result.Status        `json:"status"`
	Error  string               `json:"error,omitempty"`
	Checks []result.CheckResult `json:"checks,omitempty"`
}

// Build snapshots res. res must be finished (Runner.Run has returned).
func Build(res *result.RunResult, opts Options) *Report {
	r := &Report{
		RunID:     res.RunID,
		RunDate:   res.RunDate.Format(time.DateOnly),
		Status:    res.Status,
		Error:     errText(res.Err()),
		Fixtures:  res.Fixtures.Snapshot(),
		Templates: res.Templates.Snapshot(),
		Instances: res.Instances.Snapshot(),
		Results:   []Fixture{},
	}
	for _, f := range res.FixtureResults() {
		if f.NotForReporting && !opts.Hidden {
			continue
		}
		r.Results = append(r.Results, buildFixture(f, opts))
	}
	return r
}

func buildFixture(f *result.FixtureResult, opts Options) Fixture {
	out := Fixture{
		Name:      nfc(f.Name),
		Status:    f.Status,
		Error:     errText(f.Err()),
		Templates: f.Templates.Snapshot(),
		Instances: f.Instances.Snapshot(),
	}
	for _, t := range f.TemplateResults() {
		if t.NotForReporting && !opts.Hidden {
			continue
		}
		out.Results = append(out.Results, buildTemplate(t))
	}
	return out
}

func buildTemplate(t *result.TemplateResult) Template {
	out := Template{
		Name:      nfc(t.Name),
		Status:    t.Status,
		Error:     errText(t.Err()),
		Instances: t.Instances.Snapshot(),
	}
	for _, ir := range t.InstanceResults() {
		out.Results = append(out.Results, buildInstance(ir))
	}
	slices.SortStableFunc(out.Results, func(a, b Instance) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Status, b.Status)
	})
	return out
}

func buildInstance(ir result.InstanceResult) Instance {
	out := Instance{
		Name:   nfc(ir.Name),
		Status: ir.Status,
		Error:  errText(ir.Err),
	}
	for _, c := range ir.Checks {
		out.Checks = append(out.Checks, result.CheckResult{Name: nfc(c.Name), Status: c.Status})
	}
	return out
}

func nfc(s string) string {
	return norm.NFC.String(s)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return nfc(err.Error())
}
