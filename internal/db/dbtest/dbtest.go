// Package dbtest opens a migrated in-memory SQLite database for tests.
package dbtest

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"growthops/internal/config"
	"growthops/internal/db"
)

func Open(t testing.TB) *db.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()[:8]
	d, err := db.Open(config.DBConfig{
		DSN:          db.SQLitePrefix + "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(d) })
	return d
}
