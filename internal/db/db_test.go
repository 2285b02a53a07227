package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthops/internal/config"
)

func TestOpen_SQLiteAndMigrate(t *testing.T) {
	d, err := Open(config.DBConfig{DSN: SQLitePrefix + "file:db_open_test?mode=memory&cache=shared", MaxOpenConns: 1})
	require.NoError(t, err)
	defer func() { _ = Close(d) }()

	require.NoError(t, Ping(d))
	require.NoError(t, AutoMigrate(d))
	// Postgres-only statement is skipped for SQLite.
	require.NoError(t, SetTimezone(d, "UTC"))

	for _, table := range []string{"strategies", "plugins", "executions", "plugin_logs", "system_logs", "system_settings"} {
		assert.True(t, d.Gorm.Migrator().HasTable(table), table)
	}
}

func TestNilHandles(t *testing.T) {
	assert.NoError(t, Close(nil))
	assert.NoError(t, Ping(nil))
	assert.NoError(t, AutoMigrate(nil))
}
