// Package dbtest opens throwaway in-memory databases for package tests.
package dbtest

import (
	"testing"

	"gorm.io/gorm"

	"github.com/sykell/seo-engine/internal/db"
)

// New returns a migrated in-memory SQLite database that is closed when the
// test finishes.
func New(tb testing.TB) *gorm.DB {
	tb.Helper()

	conn, err := db.Open(&db.Config{Driver: db.DriverSQLite, Database: ":memory:"})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}

	tb.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return conn
}
