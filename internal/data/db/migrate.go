package db

import (
	types "github.com/visiblelabs/aivis-backend/internal/domain"
)

func (s *PostgresService) AutoMigrateAll() error {
	return s.db.AutoMigrate(
		&types.Scan{},
		&types.SelectedPage{},
		&types.Recommendation{},
		&types.UserProgress{},
		&types.UserMode{},
		&types.ValidationRecord{},
	)
}
