package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteDir(t *testing.T) {
	assert.Equal(t, "data", sqliteDir("./data/fanvault.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"))
	assert.Equal(t, "/var/lib/fanvault", sqliteDir("file:/var/lib/fanvault/app.db?mode=rwc"))
	assert.Equal(t, ".", sqliteDir("fanvault.db"))
}

func TestInitAndMigrate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	database, err := Init("sqlite", filepath.Join(dir, "test.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	defer Close(database)

	require.NoError(t, RunMigrations(database.DB, "sqlite"))

	var tables []string
	err = database.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'goose%' AND name NOT LIKE 'sqlite%' ORDER BY name`)
	require.NoError(t, err)
	assert.Equal(t, []string{"kyc_documents", "media", "profiles", "users"}, tables)

	var fk int
	require.NoError(t, database.Get(&fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)

	// Rolling back removes the newest table only.
	require.NoError(t, MigrateDown(database.DB, "sqlite"))
	tables = nil
	err = database.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'kyc_documents'`)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", getDialect("sqlite"))
	assert.Equal(t, "postgres", getDialect("pgx"))
	assert.Equal(t, "clickhouse", getDialect("clickhouse"))
}
