package source

import (
	"context"
	"fmt"

	"github.com/roach88/vharness/internal/enumerate"
	"github.com/roach88/vharness/internal/environ"
)

// Records projects a []Record bound under Source, one instance per record.
// Each instance binds its Record under Item.
//
// Key names the field compared against exemptions; with no Key nothing is
// exempt. Label names the field used as the instance name, falling back to
// Key and then to the record itself. Workers > 0 evaluates instances on
// that many goroutines.
type Records struct {
	Source  environ.Tag
	Item    environ.Tag
	Key     string
	Label   string
	Workers int
}

func (r Records) each() enumerate.Each[Record] {
	e := enumerate.Each[Record]{Source: r.Source, Item: r.Item}
	if field := r.labelField(); field != "" {
		e.Label = func(rec Record) string { return rec.Text(field) }
	}
	return e
}

func (r Records) labelField() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Key
}

func (r Records) enumerator() enumerate.Enumerator {
	if r.Workers > 0 {
		return enumerate.Parallel[Record]{Each: r.each(), Workers: r.Workers}
	}
	return r.each()
}

// Name returns the instance's label.
func (r Records) Name(env *environ.Environ) (string, error) {
	return r.each().Name(env)
}

// Project calls each once per record.
func (r Records) Project(ctx context.Context, env *environ.Environ, each enumerate.InstanceFunc) error {
	return r.enumerator().Project(ctx, env, each)
}

// Exempt reports whether the record's Key field is exempt. A record
// without the field is never exempt.
func (r Records) Exempt(env *environ.Environ, exemptions enumerate.Exemptions) (bool, error) {
	if r.Key == "" {
		return false, nil
	}
	rec, err := environ.Require[Record](env, r.Item)
	if err != nil {
		return false, err
	}
	v, ok := rec.Get(r.Key)
	if !ok || v == nil {
		return false, nil
	}
	return exemptions.Contains(v), nil
}

// rowsTag binds the rows a Query loaded, for the Records it delegates to.
const rowsTag environ.Tag = "source.rows"

// Query runs SQL against the *DB bound under Source and projects the rows
// like Records. Rows are loaded before the first instance runs, so check
// bodies may query the same DB.
type Query struct {
	Source  environ.Tag
	SQL     string
	Args    []any
	Item    environ.Tag
	Key     string
	Label   string
	Workers int
}

func (q Query) records() Records {
	return Records{Source: rowsTag, Item: q.Item, Key: q.Key, Label: q.Label, Workers: q.Workers}
}

// Name returns the instance's label.
func (q Query) Name(env *environ.Environ) (string, error) {
	return q.records().Name(env)
}

// Project runs the query and calls each once per row.
func (q Query) Project(ctx context.Context, env *environ.Environ, each enumerate.InstanceFunc) error {
	db, err := environ.Require[*DB](env, q.Source)
	if err != nil {
		return err
	}
	rows, err := db.Records(ctx, q.SQL, q.Args...)
	if err != nil {
		return fmt.Errorf("source %q: %w", q.Source, err)
	}
	return q.records().Project(ctx, environ.ExtendTagged(env, rowsTag, rows), each)
}

// Exempt reports whether the row's Key column is exempt.
func (q Query) Exempt(env *environ.Environ, exemptions enumerate.Exemptions) (bool, error) {
	return q.records().Exempt(env, exemptions)
}
