package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/artpar/querygate/core/introspect"
)

// Migrator applies SQL migrations from a file tree laid out one directory per
// namespace:
//
//	blog/0001_post_indexes.sql
//	blog/0002_unique_slugs.sql
//	auth/0001_user_indexes.sql
//
// A migration's version is "<namespace>/<file name without .sql>". Namespaces
// are applied in name order and files within a namespace in name order.
type Migrator struct {
	db   *DB
	fsys fs.FS
}

// Migrator returns a migrator reading migration files from fsys.
func (db *DB) Migrator(fsys fs.FS) *Migrator {
	return &Migrator{db: db, fsys: fsys}
}

type migrationFile struct {
	namespace string
	name      string
	path      string
}

func (f migrationFile) version() string {
	if f.namespace == "" {
		return f.name
	}
	return f.namespace + "/" + f.name
}

// Migrate runs all pending migrations and returns the versions it applied.
func (m *Migrator) Migrate(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	files, err := m.files()
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, f := range files {
		version := f.version()
		if _, ok := applied[version]; ok {
			continue
		}

		content, err := fs.ReadFile(m.fsys, f.path)
		if err != nil {
			return ran, fmt.Errorf("read migration %s: %w", version, err)
		}

		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return ran, fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return ran, fmt.Errorf("execute migration %s: %w", version, err)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return ran, fmt.Errorf("record migration %s: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return ran, fmt.Errorf("commit migration %s: %w", version, err)
		}

		m.db.logger.Info().Str("version", version).Msg("migration applied")
		ran = append(ran, version)
	}

	return ran, nil
}

// Migrations lists every migration file with its applied state. Versions
// recorded in the database without a file are listed too.
func (m *Migrator) Migrations(ctx context.Context) ([]introspect.Migration, error) {
	exists, err := m.tableExists(ctx)
	if err != nil {
		return nil, err
	}

	applied := map[string]sql.NullTime{}
	if exists {
		if applied, err = m.applied(ctx); err != nil {
			return nil, err
		}
	}

	files, err := m.files()
	if err != nil {
		return nil, err
	}

	var out []introspect.Migration
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		version := f.version()
		seen[version] = true
		mig := introspect.Migration{Namespace: f.namespace, Name: f.name, Version: version}
		if at, ok := applied[version]; ok {
			mig.Applied = true
			if at.Valid {
				t := at.Time.UTC()
				mig.AppliedAt = &t
			}
		}
		out = append(out, mig)
	}

	var orphans []string
	for version := range applied {
		if !seen[version] {
			orphans = append(orphans, version)
		}
	}
	sort.Strings(orphans)
	for _, version := range orphans {
		ns, name, ok := strings.Cut(version, "/")
		if !ok {
			ns, name = "", version
		}
		mig := introspect.Migration{Namespace: ns, Name: name, Version: version, Applied: true}
		if at := applied[version]; at.Valid {
			t := at.Time.UTC()
			mig.AppliedAt = &t
		}
		out = append(out, mig)
	}

	return out, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) tableExists(ctx context.Context) (bool, error) {
	var n int
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'",
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check migrations table: %w", err)
	}
	return n > 0, nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]sql.NullTime, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]sql.NullTime)
	for rows.Next() {
		var (
			version string
			at      sql.NullTime
		)
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		applied[version] = at
	}
	return applied, rows.Err()
}

// files lists the .sql files of the tree: root files first, then one level
// of namespace directories.
func (m *Migrator) files() ([]migrationFile, error) {
	if m.fsys == nil {
		return nil, nil
	}

	entries, err := fs.ReadDir(m.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var (
		files      []migrationFile
		namespaces []string
	)
	for _, entry := range entries {
		if entry.IsDir() {
			namespaces = append(namespaces, entry.Name())
			continue
		}
		if strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, migrationFile{
				name: strings.TrimSuffix(entry.Name(), ".sql"),
				path: entry.Name(),
			})
		}
	}

	for _, ns := range namespaces {
		nsEntries, err := fs.ReadDir(m.fsys, ns)
		if err != nil {
			return nil, fmt.Errorf("read migrations dir %s: %w", ns, err)
		}
		for _, entry := range nsEntries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
				continue
			}
			files = append(files, migrationFile{
				namespace: ns,
				name:      strings.TrimSuffix(entry.Name(), ".sql"),
				path:      path.Join(ns, entry.Name()),
			})
		}
	}

	return files, nil
}
