package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/schema"
	_ "github.com/mattn/go-sqlite3"
)

const testSchema = `
namespace: blog
entities:
  - entity: Category
    display: name
    fields:
      name: string
  - entity: Tag
    fields:
      name: string
  - entity: Post
    display: title
    ordering: [-created_at]
    fields:
      title:        string
      author:       { type: ref, to: auth.User }
      category:     { type: ref, to: Category, null: true }
      tags:         { type: refs, to: Tag }
      status:       string
      view_count:   int
      rating:       float
      featured:     bool
      created_at:   timestamp
      published_on: { type: date, null: true }
`

const testAuthSchema = `
namespace: auth
entities:
  - entity: User
    display: username
    fields:
      username: string
`

const testFixtures = `[
  {"model": "auth.user", "pk": 1, "fields": {"username": "alice"}},
  {"model": "auth.user", "pk": 2, "fields": {"username": "bob"}},
  {"model": "blog.category", "pk": 1, "fields": {"name": "Tech"}},
  {"model": "blog.category", "pk": 2, "fields": {"name": "Life"}},
  {"model": "blog.tag", "pk": 1, "fields": {"name": "go"}},
  {"model": "blog.tag", "pk": 2, "fields": {"name": "sql"}},
  {"model": "blog.post", "pk": 1, "fields": {"title": "Hello", "author": 1, "category": 1, "tags": [1, 2],
    "status": "published", "view_count": 10, "rating": 4.5, "featured": true,
    "created_at": "2024-01-15T10:30:00Z", "published_on": "2024-01-15"}},
  {"model": "blog.post", "pk": 2, "fields": {"title": "Draft", "author": 2, "category": null, "tags": [],
    "status": "draft", "view_count": 0, "rating": 0, "featured": false,
    "created_at": "2024-01-16T09:00:00Z", "published_on": null}},
  {"model": "blog.post", "pk": 3, "fields": {"title": "Second", "author": 1, "category": 2, "tags": [2],
    "status": "published", "view_count": 25, "rating": 3, "featured": false,
    "created_at": "2024-01-17 12:00:00", "published_on": "2024-01-17"}}
]`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	var entities []schema.Entity
	for _, doc := range []string{testAuthSchema, testSchema} {
		parsed, err := schema.Parse([]byte(doc))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		entities = append(entities, parsed...)
	}

	cat, err := catalog.Build(entities)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return cat
}

func mustResolve(t *testing.T, cat *catalog.Catalog, ns, entity string) *catalog.Descriptor {
	t.Helper()
	d, err := cat.Resolve(ns, entity)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return d
}

func mustField(t *testing.T, d *catalog.Descriptor, name string) catalog.FieldDescriptor {
	t.Helper()
	f, ok := d.Field(name)
	if !ok {
		t.Fatalf("%s has no field %q", d.Key(), name)
	}
	return f
}

func loadFixtures(t *testing.T, cat *catalog.Catalog, ins Inserter) {
	t.Helper()
	fixtures, err := ParseFixtures([]byte(testFixtures))
	if err != nil {
		t.Fatalf("ParseFixtures failed: %v", err)
	}
	if err := LoadFixtures(context.Background(), cat, ins, fixtures); err != nil {
		t.Fatalf("LoadFixtures failed: %v", err)
	}
}

func newTestSQLiteStore(t *testing.T, cat *catalog.Catalog) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db")+"?_foreign_keys=1")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := CreateTables(context.Background(), db, cat); err != nil {
		t.Fatalf("CreateTables failed: %v", err)
	}
	loadFixtures(t, cat, NewSQLiteLoader(db))

	return NewSQLiteStore(db)
}

func newTestMemoryStore(t *testing.T, cat *catalog.Catalog) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	loadFixtures(t, cat, store)
	return store
}

// testStores returns the same fixture data behind each Store implementation.
func testStores(t *testing.T) (*catalog.Catalog, map[string]Store) {
	cat := testCatalog(t)
	return cat, map[string]Store{
		"sqlite": newTestSQLiteStore(t, cat),
		"memory": newTestMemoryStore(t, cat),
	}
}

func TestStore_Count(t *testing.T) {
	cat, stores := testStores(t)
	post := mustResolve(t, cat, "blog", "Post")

	created, _ := time.Parse(time.RFC3339, "2024-01-16T09:00:00Z")
	published, _ := time.Parse(time.DateOnly, "2024-01-17")

	tests := []struct {
		name    string
		filters []Filter
		want    int
	}{
		{"no filters", nil, 3},
		{"string", []Filter{{Field: mustField(t, post, "status"), Value: "published"}}, 2},
		{"int", []Filter{{Field: mustField(t, post, "view_count"), Value: int64(25)}}, 1},
		{"bool", []Filter{{Field: mustField(t, post, "featured"), Value: true}}, 1},
		{"ref", []Filter{{Field: mustField(t, post, "author"), Value: int64(1)}}, 2},
		{"null ref", []Filter{{Field: mustField(t, post, "category"), Value: nil}}, 1},
		{"timestamp", []Filter{{Field: mustField(t, post, "created_at"), Value: created}}, 1},
		{"date", []Filter{{Field: mustField(t, post, "published_on"), Value: published}}, 1},
		{"conjunction", []Filter{
			{Field: mustField(t, post, "author"), Value: int64(1)},
			{Field: mustField(t, post, "status"), Value: "draft"},
		}, 0},
	}

	for name, store := range stores {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				got, err := store.Count(context.Background(), post, tt.filters)
				if err != nil {
					t.Fatalf("Count failed: %v", err)
				}
				if got != tt.want {
					t.Errorf("Count() = %d, want %d", got, tt.want)
				}
			})
		}
	}
}

func TestStore_Slice(t *testing.T) {
	cat, stores := testStores(t)
	post := mustResolve(t, cat, "blog", "Post")
	pk := post.PrimaryKey()

	tests := []struct {
		name     string
		filters  []Filter
		ordering []Order
		limit    int
		want     []int64
	}{
		{"created desc", nil, []Order{{Field: mustField(t, post, "created_at"), Desc: true}}, 10, []int64{3, 2, 1}},
		{"views asc", nil, []Order{{Field: mustField(t, post, "view_count")}}, 10, []int64{2, 1, 3}},
		{"truncated", nil, []Order{{Field: pk, Desc: true}}, 2, []int64{3, 2}},
		{"filtered", []Filter{{Field: mustField(t, post, "status"), Value: "published"}}, []Order{{Field: pk}}, 10, []int64{1, 3}},
		{"multi key", nil, []Order{{Field: mustField(t, post, "author")}, {Field: mustField(t, post, "title")}}, 10, []int64{1, 3, 2}},
		{"nulls first ascending", nil, []Order{{Field: mustField(t, post, "category")}, {Field: pk}}, 10, []int64{2, 1, 3}},
		{"zero limit", nil, []Order{{Field: pk}}, 0, nil},
	}

	for name, store := range stores {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				rows, err := store.Slice(context.Background(), post, tt.filters, tt.ordering, tt.limit)
				if err != nil {
					t.Fatalf("Slice failed: %v", err)
				}
				if len(rows) != len(tt.want) {
					t.Fatalf("Slice() returned %d rows, want %d", len(rows), len(tt.want))
				}
				for i, row := range rows {
					id, err := row.Get("id")
					if err != nil {
						t.Fatalf("Get(id) failed: %v", err)
					}
					if id != tt.want[i] {
						t.Errorf("row %d id = %v, want %d", i, id, tt.want[i])
					}
				}
			})
		}
	}
}

func TestStore_RowValues(t *testing.T) {
	cat, stores := testStores(t)
	post := mustResolve(t, cat, "blog", "Post")
	pk := post.PrimaryKey()

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			rows, err := store.Slice(context.Background(), post, nil, []Order{{Field: pk}}, 10)
			if err != nil {
				t.Fatalf("Slice failed: %v", err)
			}
			if len(rows) != 3 {
				t.Fatalf("Slice() returned %d rows, want 3", len(rows))
			}

			first := rows[0]
			want := map[string]any{
				"title":      "Hello",
				"status":     "published",
				"view_count": int64(10),
				"rating":     4.5,
				"featured":   true,
			}
			for field, w := range want {
				got, err := first.Get(field)
				if err != nil {
					t.Fatalf("Get(%s) failed: %v", field, err)
				}
				if got != w {
					t.Errorf("Get(%s) = %#v, want %#v", field, got, w)
				}
			}

			created, _ := first.Get("created_at")
			if ts, ok := created.(time.Time); !ok || !ts.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)) {
				t.Errorf("created_at = %#v, want 2024-01-15 10:30:00 UTC", created)
			}

			author, _ := first.Get("author")
			ref, ok := author.(*Ref)
			if !ok || ref.Key != int64(1) || ref.Display != "alice" {
				t.Errorf("author = %#v, want Ref{1, alice}", author)
			}

			category, _ := rows[1].Get("category")
			if category != nil {
				t.Errorf("category = %#v, want nil", category)
			}

			if _, err := first.Get("tags"); !errors.Is(err, ErrFieldUnavailable) {
				t.Errorf("Get(tags) error = %v, want ErrFieldUnavailable", err)
			}
		})
	}
}

const danglingFixture = `[
  {"model": "blog.post", "pk": 4, "fields": {"title": "Orphan", "author": 99, "category": 98,
    "status": "draft", "view_count": 0, "rating": 1, "featured": false,
    "created_at": "2024-01-18T08:00:00Z", "published_on": null}}
]`

func TestStore_DanglingReference(t *testing.T) {
	cat := testCatalog(t)
	post := mustResolve(t, cat, "blog", "Post")

	fixtures, err := ParseFixtures([]byte(danglingFixture))
	if err != nil {
		t.Fatalf("ParseFixtures failed: %v", err)
	}

	sqliteStore := newTestSQLiteStore(t, cat)
	memoryStore := newTestMemoryStore(t, cat)
	stores := map[string]struct {
		store Store
		ins   Inserter
	}{
		"sqlite": {sqliteStore, NewSQLiteLoader(sqliteStore.DB())},
		"memory": {memoryStore, memoryStore},
	}

	for name, tt := range stores {
		t.Run(name, func(t *testing.T) {
			if err := LoadFixtures(context.Background(), cat, tt.ins, fixtures); err != nil {
				t.Fatalf("LoadFixtures failed: %v", err)
			}

			filters := []Filter{{Field: post.PrimaryKey(), Value: int64(4)}}
			rows, err := tt.store.Slice(context.Background(), post, filters, nil, 10)
			if err != nil {
				t.Fatalf("Slice failed: %v", err)
			}
			if len(rows) != 1 {
				t.Fatalf("Slice() returned %d rows, want 1", len(rows))
			}

			for _, field := range []string{"author", "category"} {
				if v, err := rows[0].Get(field); !errors.Is(err, ErrFieldUnavailable) {
					t.Errorf("Get(%s) = %#v, %v, want ErrFieldUnavailable", field, v, err)
				}
			}
			if title, err := rows[0].Get("title"); err != nil || title != "Orphan" {
				t.Errorf("Get(title) = %#v, %v, want Orphan", title, err)
			}
		})
	}
}

func TestStore_Snapshot(t *testing.T) {
	cat, stores := testStores(t)
	post := mustResolve(t, cat, "blog", "Post")

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			var total int
			var rows []Row
			err := store.Snapshot(context.Background(), func(r Reader) error {
				var err error
				if total, err = r.Count(context.Background(), post, nil); err != nil {
					return err
				}
				rows, err = r.Slice(context.Background(), post, nil, nil, 2)
				return err
			})
			if err != nil {
				t.Fatalf("Snapshot failed: %v", err)
			}
			if total != 3 || len(rows) != 2 {
				t.Errorf("Snapshot read total=%d rows=%d, want 3 and 2", total, len(rows))
			}
		})
	}
}

func TestSQLiteLoader_LinkRows(t *testing.T) {
	cat := testCatalog(t)
	store := newTestSQLiteStore(t, cat)

	var n int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM "blog_post_tags"`).Scan(&n); err != nil {
		t.Fatalf("count link rows: %v", err)
	}
	if n != 3 {
		t.Errorf("link rows = %d, want 3", n)
	}
}

func TestSQLiteStore_CanceledContext(t *testing.T) {
	cat := testCatalog(t)
	store := newTestSQLiteStore(t, cat)
	post := mustResolve(t, cat, "blog", "Post")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Count(ctx, post, nil); err == nil {
		t.Error("Count() with canceled context error = nil, want error")
	}
}

func TestMemoryStore_NotRegistered(t *testing.T) {
	cat := testCatalog(t)
	store := NewMemoryStore()
	user := mustResolve(t, cat, "auth", "User")

	if _, err := store.Count(context.Background(), user, nil); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Count() error = %v, want ErrNotRegistered", err)
	}

	store.Register(user)
	if n, err := store.Count(context.Background(), user, nil); err != nil || n != 0 {
		t.Errorf("Count() after Register = %d, %v, want 0, nil", n, err)
	}
}

func TestMemoryStore_UnavailableField(t *testing.T) {
	cat := testCatalog(t)
	store := NewMemoryStore()
	user := mustResolve(t, cat, "auth", "User")

	if err := store.Insert(context.Background(), user, map[string]any{"id": 1}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rows, err := store.Slice(context.Background(), user, nil, nil, 10)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if _, err := rows[0].Get("username"); !errors.Is(err, ErrFieldUnavailable) {
		t.Errorf("Get(username) error = %v, want ErrFieldUnavailable", err)
	}
}

func TestMemoryStore_InsertErrors(t *testing.T) {
	cat := testCatalog(t)
	store := NewMemoryStore()
	post := mustResolve(t, cat, "blog", "Post")

	tests := []struct {
		name   string
		values map[string]any
	}{
		{"unknown field", map[string]any{"nope": 1}},
		{"bad int", map[string]any{"view_count": "many"}},
		{"bad keys", map[string]any{"tags": "go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Insert(context.Background(), post, tt.values); err == nil {
				t.Error("Insert() error = nil, want error")
			}
		})
	}
}

func TestCompareValues(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"nil nil", nil, nil, 0},
		{"nil first", nil, int64(0), -1},
		{"nil last", "a", nil, 1},
		{"ints", int64(1), int64(2), -1},
		{"int float", int64(2), 1.5, 1},
		{"strings", "b", "a", 1},
		{"bools", false, true, -1},
		{"times", t2, t1, 1},
		{"equal times", t1, t1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compareValues(tt.a, tt.b); got != tt.want {
				t.Errorf("compareValues(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
