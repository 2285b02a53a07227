package db

import (
	"growthops/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Strategy{},
		&models.Plugin{},
		&models.Execution{},
		&models.PluginLog{},
		&models.SystemLog{},
		&models.SystemSetting{},
	)
}
