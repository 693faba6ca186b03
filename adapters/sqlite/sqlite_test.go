package sqlite_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/artpar/querygate/adapters/sqlite"
	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/introspect"
	"github.com/artpar/querygate/core/storage"
	"github.com/artpar/querygate/demo"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "querygate.db"), sqlite.Options{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupDemoTables(t *testing.T, db *sqlite.DB) *catalog.Catalog {
	t.Helper()

	entities, err := demo.Entities()
	if err != nil {
		t.Fatalf("demo.Entities failed: %v", err)
	}
	cat, err := catalog.Build(entities)
	if err != nil {
		t.Fatalf("catalog.Build failed: %v", err)
	}
	if err := storage.CreateTables(context.Background(), db, cat); err != nil {
		t.Fatalf("CreateTables failed: %v", err)
	}
	return cat
}

// -----------------------------------------------------------------------------
// Open
// -----------------------------------------------------------------------------

func TestOpen_ForeignKeysEnabled(t *testing.T) {
	db := setupTestDB(t)

	var on int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
		t.Fatalf("query pragma: %v", err)
	}
	if on != 1 {
		t.Errorf("foreign_keys = %d, want 1", on)
	}

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query pragma: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %s, want wal", mode)
	}
}

func TestOpen_Memory(t *testing.T) {
	db, err := sqlite.Open(context.Background(), ":memory:", sqlite.Options{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	// The single pooled connection keeps the table visible.
	if _, err := db.Exec("INSERT INTO t (id) VALUES (1)"); err != nil {
		t.Errorf("insert: %v", err)
	}
	if db.Path() != ":memory:" {
		t.Errorf("Path() = %s, want :memory:", db.Path())
	}
}

func TestOpen_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "x.db"), sqlite.Options{}, zerolog.Nop())
	if err == nil {
		t.Fatal("Open() succeeded with canceled context")
	}
}

// -----------------------------------------------------------------------------
// Migrator
// -----------------------------------------------------------------------------

func TestMigrator_Migrate(t *testing.T) {
	db := setupTestDB(t)
	setupDemoTables(t, db)
	m := db.Migrator(demo.Migrations())
	ctx := context.Background()

	ran, err := m.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	want := []string{
		"auth/0001_user_indexes",
		"blog/0001_post_indexes",
		"blog/0002_unique_slugs",
		"blog/0003_comment_moderation",
	}
	if diff := cmp.Diff(want, ran); diff != "" {
		t.Errorf("applied mismatch (-want +got):\n%s", diff)
	}

	ran, err = m.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if len(ran) != 0 {
		t.Errorf("second Migrate applied %v, want none", ran)
	}

	migrations, err := m.Migrations(ctx)
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	if len(migrations) != len(want) {
		t.Fatalf("len(Migrations) = %d, want %d", len(migrations), len(want))
	}
	for i, mig := range migrations {
		if mig.Version != want[i] || !mig.Applied || mig.AppliedAt == nil {
			t.Errorf("migration %d = %+v, want %s applied", i, mig, want[i])
		}
	}
	if migrations[1].Namespace != "blog" || migrations[1].Name != "0001_post_indexes" {
		t.Errorf("migration 1 = %+v", migrations[1])
	}
}

func TestMigrator_PendingBeforeMigrate(t *testing.T) {
	db := setupTestDB(t)
	m := db.Migrator(demo.Migrations())

	migrations, err := m.Migrations(context.Background())
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	if len(migrations) != 4 {
		t.Fatalf("len(Migrations) = %d, want 4", len(migrations))
	}
	for _, mig := range migrations {
		if mig.Applied {
			t.Errorf("migration %s applied before Migrate", mig.Version)
		}
	}

	// Listing does not create the bookkeeping table.
	tables, err := db.Tables(context.Background())
	if err != nil {
		t.Fatalf("Tables failed: %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("Tables = %v, want none", tables)
	}
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := setupTestDB(t)
	fsys := fstest.MapFS{
		"app/0001_create.sql": {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT);")},
		"app/0002_broken.sql": {Data: []byte("CREATE TABLE broken (id INTEGER PRIMARY KEY); INSERT INTO missing VALUES (1);")},
		"0000_root.sql":       {Data: []byte("CREATE TABLE root_table (id INTEGER PRIMARY KEY);")},
		"app/README.md":       {Data: []byte("not a migration")},
	}
	m := db.Migrator(fsys)

	ran, err := m.Migrate(context.Background())
	if err == nil {
		t.Fatal("Migrate() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "app/0002_broken") {
		t.Errorf("error = %v, want naming the failed migration", err)
	}
	if diff := cmp.Diff([]string{"0000_root", "app/0001_create"}, ran); diff != "" {
		t.Errorf("applied mismatch (-want +got):\n%s", diff)
	}

	migrations, err := m.Migrations(context.Background())
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	got := make(map[string]bool)
	for _, mig := range migrations {
		got[mig.Version] = mig.Applied
	}
	want := map[string]bool{"0000_root": true, "app/0001_create": true, "app/0002_broken": false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("applied state mismatch (-want +got):\n%s", diff)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = 'broken'").Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 0 {
		t.Error("table from failed migration was kept")
	}
}

func TestMigrator_OrphanVersions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := db.Migrator(fstest.MapFS{"app/0001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")}})
	if _, err := first.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	migrations, err := db.Migrator(fstest.MapFS{}).Migrations(ctx)
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("len(Migrations) = %d, want 1", len(migrations))
	}
	if m := migrations[0]; m.Version != "app/0001_a" || m.Namespace != "app" || !m.Applied {
		t.Errorf("migration = %+v", m)
	}
}

// -----------------------------------------------------------------------------
// Tables
// -----------------------------------------------------------------------------

func TestDB_Tables(t *testing.T) {
	db := setupTestDB(t)
	setupDemoTables(t, db)
	if _, err := db.Migrator(demo.Migrations()).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	tables, err := db.Tables(context.Background())
	if err != nil {
		t.Fatalf("Tables failed: %v", err)
	}

	byName := make(map[string]introspect.Table)
	var names []string
	for _, table := range tables {
		byName[table.Name] = table
		names = append(names, table.Name)
	}
	want := []string{"auth_user", "blog_category", "blog_comment", "blog_post", "blog_post_tags", "blog_tag", "schema_migrations"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}

	columns := make(map[string]introspect.Column)
	for _, c := range byName["blog_post"].Columns {
		columns[c.Name] = c
	}
	if c := columns["id"]; !c.PrimaryKey || c.Type != "INTEGER" {
		t.Errorf("id = %+v", c)
	}
	if c := columns["title"]; !c.NotNull || c.Type != "TEXT" {
		t.Errorf("title = %+v", c)
	}
	if c := columns["rating"]; c.NotNull || c.Type != "REAL" {
		t.Errorf("rating = %+v", c)
	}
	if c := columns["created_at"]; c.Type != "DATETIME" {
		t.Errorf("created_at = %+v", c)
	}

	if c := byName["schema_migrations"].Columns[1]; c.Default == nil || *c.Default != "CURRENT_TIMESTAMP" {
		t.Errorf("applied_at = %+v, want default CURRENT_TIMESTAMP", c)
	}

	indexes := byName["blog_post"].Indexes
	for _, idx := range []string{"idx_blog_post_author_id", "idx_blog_post_status", "idx_blog_post_slug"} {
		found := false
		for _, name := range indexes {
			if name == idx {
				found = true
			}
		}
		if !found {
			t.Errorf("index %s missing from %v", idx, indexes)
		}
	}
}

func TestDB_TablesImplementsSchemaReader(t *testing.T) {
	var _ introspect.SchemaReader = setupTestDB(t)
	var _ introspect.MigrationReader = setupTestDB(t).Migrator(nil)
}
