package db

import (
	"gorm.io/gorm"
)

// runMigrations performs database migrations. The contents table is owned by
// the CMS; migrating it here keeps standalone and test deployments usable.
func runMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&Content{},
		&ScoreSnapshot{},
		&LogEntry{},
		&IndexRecord{},
		&TrackedKeyword{},
	)
}
