// Package suite loads declarative validation suites from YAML and compiles
// them into fixtures the runner can execute.
//
// A suite declares its data (inline datasets or SQL sources) and fixtures
// whose templates check record fields against CUE constraints:
//
//	name: billing
//	data:
//	  customers:
//	    - {id: 1, name: acme, email: ops@acme.test}
//	fixtures:
//	  - name: billing/customers
//	    templates:
//	      - name: contact details
//	        for_each: customers
//	        key: id
//	        checks:
//	          - field: email
//	            constraint: '=~"@"'
package suite

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/vharness/internal/enumerate"
)

// Suite is the YAML document.
type Suite struct {
	// Name identifies the suite in reports.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// RunDate fixes the run date (YYYY-MM-DD or RFC 3339). Empty means
	// the time the run starts.
	RunDate string `yaml:"run_date,omitempty"`

	// Data holds inline datasets, each a list of records.
	Data map[string][]map[string]any `yaml:"data,omitempty"`

	// Sources holds SQL data sources by name.
	Sources map[string]Source `yaml:"sources,omitempty"`

	Fixtures []Fixture `yaml:"fixtures"`
}

// Source is a SQL data source.
type Source struct {
	// Driver is the database/sql driver. Defaults to sqlite3.
	Driver string `yaml:"driver,omitempty"`

	DSN string `yaml:"dsn"`

	// Setup statements run once when the source is opened.
	Setup []string `yaml:"setup,omitempty"`
}

// Fixture groups templates.
type Fixture struct {
	// Name is a '/'-separated path.
	Name      string     `yaml:"name"`
	Skip      bool       `yaml:"skip,omitempty"`
	NoReport  bool       `yaml:"no_report,omitempty"`
	Templates []Template `yaml:"templates"`
}

// Template checks every record of a dataset or query.
type Template struct {
	Name     string `yaml:"name"`
	Skip     bool   `yaml:"skip,omitempty"`
	NoReport bool   `yaml:"no_report,omitempty"`

	// ForEach names an inline dataset. Exactly one of ForEach and Query
	// is set.
	ForEach string `yaml:"for_each,omitempty"`
	Query   *Query `yaml:"query,omitempty"`

	// Key is the field compared against Exemptions.
	Key string `yaml:"key,omitempty"`

	// Label is the field naming each instance. Defaults to Key.
	Label string `yaml:"label,omitempty"`

	// Parallel evaluates instances on that many goroutines.
	Parallel int `yaml:"parallel,omitempty"`

	Filters    []Filter `yaml:"filters,omitempty"`
	Exemptions []any    `yaml:"exemptions,omitempty"`
	Checks     []Check  `yaml:"checks"`
}

// Query selects the rows of a SQL source.
type Query struct {
	Source string `yaml:"source"`
	SQL    string `yaml:"sql"`
	Args   []any  `yaml:"args,omitempty"`
}

// Filter narrows the records a template runs against.
type Filter struct {
	Field      string `yaml:"field"`
	Constraint string `yaml:"constraint"`

	// Direction is "allow" (default: run records matching the
	// constraint) or "block" (skip them).
	Direction string `yaml:"direction,omitempty"`
}

// Check is one constraint on one record field.
type Check struct {
	// Field is the (dotted) field checked. Empty checks the whole record.
	Field      string `yaml:"field,omitempty"`
	Constraint string `yaml:"constraint"`

	Description string `yaml:"description,omitempty"`

	// Critical stops the remaining checks of a record when this one fails.
	Critical bool `yaml:"critical,omitempty"`
}

// Load reads and parses a suite YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	return Parse(data)
}

// Parse parses a suite document.
func Parse(data []byte) (*Suite, error) {
	// Strict field validation catches typos like "check:" vs "checks:".
	var s Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSuite(&s); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &s, nil
}

// ParseRunDate parses the suite's run date. The zero time means unset.
func (s *Suite) ParseRunDate() (time.Time, error) {
	if s.RunDate == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s.RunDate); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s.RunDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("run_date %q: want YYYY-MM-DD or RFC 3339", s.RunDate)
	}
	return t, nil
}

// validateSuite checks that required fields are present and consistent.
func validateSuite(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := s.ParseRunDate(); err != nil {
		return err
	}
	if len(s.Fixtures) == 0 {
		return fmt.Errorf("fixtures list is required and must be non-empty")
	}

	for name, src := range s.Sources {
		if src.DSN == "" {
			return fmt.Errorf("source %q: dsn is required", name)
		}
	}

	for i, f := range s.Fixtures {
		if f.Name == "" {
			return fmt.Errorf("fixture %d: name is required", i)
		}
		for j, t := range f.Templates {
			if err := validateTemplate(s, &t); err != nil {
				if t.Name == "" {
					return fmt.Errorf("fixture %q template %d: %w", f.Name, j, err)
				}
				return fmt.Errorf("fixture %q template %q: %w", f.Name, t.Name, err)
			}
		}
	}
	return nil
}

func validateTemplate(s *Suite, t *Template) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}

	switch {
	case t.ForEach != "" && t.Query != nil:
		return fmt.Errorf("for_each and query are mutually exclusive")
	case t.ForEach != "":
		if _, ok := s.Data[t.ForEach]; !ok {
			return fmt.Errorf("for_each: unknown dataset %q", t.ForEach)
		}
	case t.Query != nil:
		if _, ok := s.Sources[t.Query.Source]; !ok {
			return fmt.Errorf("query: unknown source %q", t.Query.Source)
		}
		if t.Query.SQL == "" {
			return fmt.Errorf("query: sql is required")
		}
	default:
		return fmt.Errorf("one of for_each or query is required")
	}

	if t.Parallel < 0 {
		return fmt.Errorf("parallel must not be negative")
	}
	if len(t.Exemptions) > 0 && t.Key == "" {
		return fmt.Errorf("exemptions require a key field")
	}
	if len(t.Checks) == 0 && !t.Skip {
		return fmt.Errorf("checks list is required and must be non-empty")
	}

	for i, f := range t.Filters {
		if f.Field == "" || f.Constraint == "" {
			return fmt.Errorf("filter %d: field and constraint are required", i)
		}
		if _, err := enumerate.ParseDirection(f.Direction); err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}
	}
	for i, c := range t.Checks {
		if c.Constraint == "" {
			return fmt.Errorf("check %d: constraint is required", i)
		}
	}
	return nil
}
