// Package demo embeds a small demonstration project: an auth namespace with users
// and a blog namespace with categories, tags, posts and comments.
//
// It is served when no catalog directory is configured.
package demo

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/artpar/querygate/core/schema"
	"github.com/artpar/querygate/core/storage"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

//go:embed fixtures/*.json
var fixturesFS embed.FS

//go:embed migrations
var migrationsFS embed.FS

// Entities returns the demo entity definitions.
func Entities() ([]schema.Entity, error) {
	return schema.ParseFS(catalogFS, "catalog")
}

// Fixtures returns the demo records.
func Fixtures() ([]storage.Fixture, error) {
	data, err := fixturesFS.ReadFile("fixtures/demo.json")
	if err != nil {
		return nil, fmt.Errorf("read demo fixtures: %w", err)
	}
	return storage.ParseFixtures(data)
}

// Migrations returns the demo migrations, one directory per namespace.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}
