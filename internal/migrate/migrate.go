// Package migrate applies the embedded schema and seed files with goose.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var schemaFS embed.FS

//go:embed seeds/*.sql
var seedFS embed.FS

// Schema returns the versioned migration files.
func Schema() fs.FS { return mustSub(schemaFS, "sql") }

// Seeds returns the unversioned seed files.
func Seeds() fs.FS { return mustSub(seedFS, "seeds") }

func mustSub(f embed.FS, dir string) fs.FS {
	sub, err := fs.Sub(f, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Manager runs migrations against a PostgreSQL database.
type Manager struct {
	schema *goose.Provider
	seeds  *goose.Provider
}

// NewManager builds providers for schema and seeds. Seeds are applied
// without version tracking and must be idempotent.
func NewManager(db *sql.DB) (*Manager, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	schema, err := goose.NewProvider(goose.DialectPostgres, db, Schema())
	if err != nil {
		return nil, fmt.Errorf("migrate: schema provider: %w", err)
	}
	seeds, err := goose.NewProvider(goose.DialectPostgres, db, Seeds(), goose.WithDisableVersioning(true))
	if err != nil {
		return nil, fmt.Errorf("migrate: seed provider: %w", err)
	}
	return &Manager{schema: schema, seeds: seeds}, nil
}

// Up applies all pending migrations and returns the applied file names.
func (m *Manager) Up(ctx context.Context) ([]string, error) {
	results, err := m.schema.Up(ctx)
	return resultNames(results), err
}

// Down rolls back the most recent migration.
func (m *Manager) Down(ctx context.Context) (string, error) {
	res, err := m.schema.Down(ctx)
	if err != nil {
		return "", err
	}
	if res == nil || res.Source == nil {
		return "", nil
	}
	return res.Source.Path, nil
}

// Seed applies every seed file.
func (m *Manager) Seed(ctx context.Context) ([]string, error) {
	results, err := m.seeds.Up(ctx)
	return resultNames(results), err
}

// Status lists each migration with its state, e.g. "00001_init.sql applied".
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	statuses, err := m.schema.Status(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		line := fmt.Sprintf("%s %s", st.Source.Path, st.State)
		if !st.AppliedAt.IsZero() {
			line += " " + st.AppliedAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		out = append(out, line)
	}
	return out, nil
}

func resultNames(results []*goose.MigrationResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r != nil && r.Source != nil {
			out = append(out, r.Source.Path)
		}
	}
	return out
}
