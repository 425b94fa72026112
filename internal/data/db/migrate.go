package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/prism-backend/internal/data/repos/cases"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&cases.CaseRow{},
		&cases.VerdictRow{},
	)
}
