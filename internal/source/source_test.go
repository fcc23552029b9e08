package source

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vharness/internal/enumerate"
	"github.com/roach88/vharness/internal/environ"
)

const tagDB environ.Tag = "db"

func openSeeded(t *testing.T) *DB {
	t.Helper()
	db, err := Open("", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Exec(context.Background(),
		`CREATE TABLE invoices (id INTEGER PRIMARY KEY, customer TEXT NOT NULL, total REAL, note BLOB)`,
		`INSERT INTO invoices (id, customer, total, note) VALUES (1, 'acme', 120.5, x'6f6b')`,
		`INSERT INTO invoices (id, customer, total, note) VALUES (2, 'globex', -3, NULL)`,
		`INSERT INTO invoices (id, customer, total, note) VALUES (3, 'initech', 0, NULL)`,
	))
	return db
}

func dbEnv(t *testing.T, db *DB) *environ.Environ {
	t.Helper()
	b := environ.NewBuilder()
	environ.BindTagged(b, tagDB, db)
	env, err := b.Build()
	require.NoError(t, err)
	return env
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	db, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, db.Driver())
	require.NoError(t, db.Exec(context.Background(), `CREATE TABLE t (x INTEGER)`))
	require.NoError(t, db.Close())

	reopened, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	defer reopened.Close()
	recs, err := reopened.Records(context.Background(), `SELECT COUNT(*) AS n FROM t`)
	require.NoError(t, err)
	assert.Equal(t, []Record{{"n": int64(0)}}, recs)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("nosuchdriver", "x")
	assert.Error(t, err)
}

func TestDB_CloseNil(t *testing.T) {
	var db *DB
	assert.NoError(t, db.Close())
}

func TestDB_Records(t *testing.T) {
	db := openSeeded(t)

	recs, err := db.Records(context.Background(), `SELECT id, customer, total, note FROM invoices ORDER BY id`)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, int64(1), recs[0]["id"])
	assert.Equal(t, "acme", recs[0]["customer"])
	assert.Equal(t, 120.5, recs[0]["total"])
	assert.Equal(t, "ok", recs[0]["note"], "blobs become strings")
	assert.Nil(t, recs[1]["note"])

	empty, err := db.Records(context.Background(), `SELECT id FROM invoices WHERE id > ?`, 100)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDB_ExecError(t *testing.T) {
	db := openSeeded(t)
	err := db.Exec(context.Background(), `SELECT 1`, `NOT SQL`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 1")
}

func TestRecord_Get(t *testing.T) {
	rec := NewRecord(map[string]any{
		"id":       7,
		"a.b":      "literal",
		"address":  map[string]any{"city": "Oslo", "geo": map[any]any{"lat": 59.9}},
		"tags":     []any{[]byte("x")},
		"nickname": nil,
	})

	v, ok := rec.Get("address.city")
	require.True(t, ok)
	assert.Equal(t, "Oslo", v)

	v, ok = rec.Get("address.geo.lat")
	require.True(t, ok)
	assert.Equal(t, 59.9, v)

	v, ok = rec.Get("a.b")
	require.True(t, ok)
	assert.Equal(t, "literal", v)

	_, ok = rec.Get("address.zip")
	assert.False(t, ok)
	_, ok = rec.Get("id.x")
	assert.False(t, ok)

	assert.Equal(t, []any{"x"}, rec["tags"])
	assert.Equal(t, "7", rec.Text("id"))
	assert.Equal(t, "", rec.Text("nickname"))
	assert.Equal(t, "", rec.Text("missing"))
}

func TestQuery_Project(t *testing.T) {
	db := openSeeded(t)
	env := dbEnv(t, db)
	q := Query{Source: tagDB, SQL: `SELECT id, customer FROM invoices ORDER BY id`, Key: "id", Label: "customer"}

	var names []string
	err := q.Project(context.Background(), env, func(inst *environ.Environ) {
		rec := environ.Get[Record](inst)
		assert.NotNil(t, rec)
		name, err := q.Name(inst)
		require.NoError(t, err)
		names = append(names, name)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex", "initech"}, names)
}

func TestQuery_BodiesCanQuerySameDB(t *testing.T) {
	db := openSeeded(t)
	q := Query{Source: tagDB, SQL: `SELECT id FROM invoices`}

	count := 0
	err := q.Project(context.Background(), dbEnv(t, db), func(inst *environ.Environ) {
		rec := environ.Get[Record](inst)
		rows, err := db.Records(context.Background(), `SELECT customer FROM invoices WHERE id = ?`, rec["id"])
		require.NoError(t, err)
		require.Len(t, rows, 1)
		count++
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestQuery_Errors(t *testing.T) {
	db := openSeeded(t)

	err := Query{Source: "other", SQL: `SELECT 1`}.Project(context.Background(), dbEnv(t, db), func(*environ.Environ) {})
	assert.True(t, environ.IsUnresolved(err))

	err = Query{Source: tagDB, SQL: `SELECT nope FROM invoices`}.Project(context.Background(), dbEnv(t, db), func(*environ.Environ) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `source "db"`)
}

func TestQuery_Exempt(t *testing.T) {
	db := openSeeded(t)
	q := Query{Source: tagDB, SQL: `SELECT id FROM invoices ORDER BY id`, Key: "id"}
	exemptions := enumerate.NewExemptions(2)

	var exempt []bool
	err := q.Project(context.Background(), dbEnv(t, db), func(inst *environ.Environ) {
		ok, err := q.Exempt(inst, exemptions)
		require.NoError(t, err)
		exempt = append(exempt, ok)
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false}, exempt)
}

func TestRecords_Parallel(t *testing.T) {
	data := make([]Record, 50)
	for i := range data {
		data[i] = Record{"id": i}
	}
	b := environ.NewBuilder()
	environ.BindTagged(b, "rows", data)
	env, err := b.Build()
	require.NoError(t, err)

	var mu sync.Mutex
	var ids []int
	r := Records{Source: "rows", Item: "row", Key: "id", Workers: 4}
	err = r.Project(context.Background(), env, func(inst *environ.Environ) {
		rec := environ.GetTagged[Record](inst, "row")
		mu.Lock()
		ids = append(ids, rec["id"].(int))
		mu.Unlock()
	})
	require.NoError(t, err)

	sort.Ints(ids)
	require.Len(t, ids, 50)
	assert.Equal(t, 0, ids[0])
	assert.Equal(t, 49, ids[49])
}

func TestRecords_NameAndExemptWithoutKey(t *testing.T) {
	env := environ.ExtendTagged(&environ.Environ{}, "row", Record{"id": 1})

	r := Records{Item: "row"}
	name, err := r.Name(env)
	require.NoError(t, err)
	assert.Equal(t, "map[id:1]", name)

	exempt, err := r.Exempt(env, enumerate.NewExemptions(1))
	require.NoError(t, err)
	assert.False(t, exempt, "no key field, nothing is exempt")

	r.Key = "id"
	name, err = r.Name(env)
	require.NoError(t, err)
	assert.Equal(t, "1", name)

	exempt, err = r.Exempt(env, enumerate.NewExemptions(1))
	require.NoError(t, err)
	assert.True(t, exempt)

	r.Key = "missing"
	exempt, err = r.Exempt(env, enumerate.NewExemptions(1))
	require.NoError(t, err)
	assert.False(t, exempt)
}
