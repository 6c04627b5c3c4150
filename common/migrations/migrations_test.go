package migrations

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUp_RunsGooseFromEmbeddedRoot(t *testing.T) {
	db := newDB(t)

	orig := gooseUp
	defer func() { gooseUp = orig }()

	var gotDir string
	gooseUp = func(ctx context.Context, got *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		assert.Same(t, db, got)
		gotDir = dir
		return nil
	}

	require.NoError(t, Up(context.Background(), db))
	assert.Equal(t, ".", gotDir)
}

func TestUp_WrapsGooseError(t *testing.T) {
	db := newDB(t)

	orig := gooseUp
	defer func() { gooseUp = orig }()

	boom := errors.New("boom")
	gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return boom
	}

	err := Up(context.Background(), db)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestMigrations_DefineRosterTables(t *testing.T) {
	files, err := fs.Glob(Migrations, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(Migrations, files[0])
	require.NoError(t, err)

	for _, table := range []string{"participants", "coffee_purchases", "external_purchases", "reorder_history"} {
		assert.True(t, strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table), "missing table %s", table)
	}
	assert.Contains(t, string(body), "REFERENCES participants (id) ON DELETE RESTRICT")
}
