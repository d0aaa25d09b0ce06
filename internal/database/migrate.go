package database

import (
	"fmt"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"gorm.io/gorm"
)

// RunMigrations creates or updates every table of the schema.
func RunMigrations(db *gorm.DB) error {
	logging.Info().Str("dialect", db.Dialector.Name()).Msg("running migrations")

	for _, model := range models.All() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	logging.Info().Msg("migrations applied")
	return nil
}
