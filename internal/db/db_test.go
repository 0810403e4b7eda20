package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "arbiter.db?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", DSN("arbiter.db"))
	assert.Equal(t, "file::memory:?cache=shared&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", DSN("file::memory:?cache=shared"))
}

func TestRunMigrations(t *testing.T) {
	database, err := InitDB("file::memory:")
	require.NoError(t, err)
	defer database.Close()
	database.SetMaxOpenConns(1)

	require.NoError(t, RunMigrations(database))
	// A second run has nothing to apply.
	require.NoError(t, RunMigrations(database))

	var tables []string
	err = database.Select(&tables, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	require.NoError(t, err)
	assert.Subset(t, tables, []string{"games", "players", "result_audits", "rounds", "sessions", "tournaments", "users"})

	var guests int
	require.NoError(t, database.Get(&guests, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, 1, guests)
}
