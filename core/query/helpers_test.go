package query

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/storage"
	"github.com/artpar/querygate/demo"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func demoCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	entities, err := demo.Entities()
	if err != nil {
		t.Fatalf("demo.Entities failed: %v", err)
	}
	cat, err := catalog.Build(entities)
	if err != nil {
		t.Fatalf("catalog.Build failed: %v", err)
	}
	return cat
}

func loadDemo(t *testing.T, cat *catalog.Catalog, ins storage.Inserter) {
	t.Helper()
	fixtures, err := demo.Fixtures()
	if err != nil {
		t.Fatalf("demo.Fixtures failed: %v", err)
	}
	if err := storage.LoadFixtures(context.Background(), cat, ins, fixtures); err != nil {
		t.Fatalf("LoadFixtures failed: %v", err)
	}
}

func newMemoryStore(t *testing.T, cat *catalog.Catalog) storage.Store {
	t.Helper()
	store := storage.NewMemoryStore()
	loadDemo(t, cat, store)
	return store
}

func newSQLiteStore(t *testing.T, cat *catalog.Catalog) storage.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "demo.db")+"?_foreign_keys=1")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.CreateTables(context.Background(), db, cat); err != nil {
		t.Fatalf("CreateTables failed: %v", err)
	}
	loadDemo(t, cat, storage.NewSQLiteLoader(db))
	return storage.NewSQLiteStore(db)
}

// demoEngines returns an engine per store implementation, all over the demo data.
func demoEngines(t *testing.T) map[string]*Engine {
	t.Helper()
	cat := demoCatalog(t)
	return map[string]*Engine{
		"memory": NewEngine(cat, newMemoryStore(t, cat), zerolog.Nop()),
		"sqlite": NewEngine(cat, newSQLiteStore(t, cat), zerolog.Nop()),
	}
}

func intPtr(n int) *int { return &n }

// countingStore records how often the wrapped store is touched.
type countingStore struct {
	storage.Store
	calls atomic.Int32
}

func (s *countingStore) Count(ctx context.Context, d *catalog.Descriptor, f []storage.Filter) (int, error) {
	s.calls.Add(1)
	return s.Store.Count(ctx, d, f)
}

func (s *countingStore) Slice(ctx context.Context, d *catalog.Descriptor, f []storage.Filter, o []storage.Order, limit int) ([]storage.Row, error) {
	s.calls.Add(1)
	return s.Store.Slice(ctx, d, f, o, limit)
}

func (s *countingStore) Snapshot(ctx context.Context, fn func(storage.Reader) error) error {
	s.calls.Add(1)
	return s.Store.Snapshot(ctx, fn)
}

// stubStore serves fixed rows or fails.
type stubStore struct {
	rows     []storage.Row
	err      error
	panicVal any
}

func (s *stubStore) Count(context.Context, *catalog.Descriptor, []storage.Filter) (int, error) {
	if s.panicVal != nil {
		panic(s.panicVal)
	}
	return len(s.rows), s.err
}

func (s *stubStore) Slice(_ context.Context, _ *catalog.Descriptor, _ []storage.Filter, _ []storage.Order, limit int) ([]storage.Row, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func (s *stubStore) Snapshot(_ context.Context, fn func(storage.Reader) error) error {
	return fn(s)
}

func (s *stubStore) Close() error { return nil }

// errRow fails on one field.
type errRow struct {
	storage.MapRow
	field string
	err   error
}

func (r errRow) Get(field string) (any, error) {
	if field == r.field {
		return nil, r.err
	}
	return r.MapRow.Get(field)
}
