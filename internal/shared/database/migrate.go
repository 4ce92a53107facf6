package database

import (
	"boxoffice/internal/sandbox"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(sandbox.AllModels()...)
}
