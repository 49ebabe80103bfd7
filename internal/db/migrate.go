package db

import (
	"fmt"

	"github.com/zulandar/estimaite/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every persisted GORM model. Rooms are never persisted.
func AllModels() []interface{} {
	return []interface{}{
		&models.Feedback{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
