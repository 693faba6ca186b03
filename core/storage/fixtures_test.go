package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFixtures(t *testing.T) {
	fixtures, err := ParseFixtures([]byte(testFixtures))
	if err != nil {
		t.Fatalf("ParseFixtures failed: %v", err)
	}
	if len(fixtures) != 9 {
		t.Fatalf("len(fixtures) = %d, want 9", len(fixtures))
	}

	post := fixtures[6]
	if post.Model != "blog.post" {
		t.Errorf("Model = %q, want blog.post", post.Model)
	}
	if post.PK != 1 {
		t.Errorf("PK = %#v, want 1", post.PK)
	}
	if tags, ok := post.Fields["tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("tags = %#v, want two keys", post.Fields["tags"])
	}
}

func TestReadFixtureDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"02_posts.yaml": "- model: auth.user\n  pk: 2\n  fields: {username: bob}\n",
		"01_users.json": `[{"model": "auth.user", "pk": 1, "fields": {"username": "alice"}}]`,
		"notes.txt":     "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	fixtures, err := ReadFixtureDir(dir)
	if err != nil {
		t.Fatalf("ReadFixtureDir failed: %v", err)
	}
	if len(fixtures) != 2 {
		t.Fatalf("len(fixtures) = %d, want 2", len(fixtures))
	}
	if fixtures[0].PK != 1 || fixtures[1].PK != 2 {
		t.Errorf("fixtures not in file order: %v, %v", fixtures[0].PK, fixtures[1].PK)
	}
}

func TestLoadFixtures_Errors(t *testing.T) {
	cat := testCatalog(t)

	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"bad model", `[{"model": "post", "pk": 1, "fields": {}}]`, "namespace.entity"},
		{"unknown model", `[{"model": "blog.page", "pk": 1, "fields": {}}]`, "not found"},
		{"bad value", `[{"model": "auth.user", "pk": "x", "fields": {"username": "a"}}]`, "expected integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixtures, err := ParseFixtures([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseFixtures failed: %v", err)
			}
			err = LoadFixtures(context.Background(), cat, NewMemoryStore(), fixtures)
			if err == nil {
				t.Fatalf("LoadFixtures() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFixtures() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
