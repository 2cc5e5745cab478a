package repository

import (
	"gorm.io/gorm"
)

// Migrate creates the schema. On PostgreSQL it additionally installs an
// exclusion constraint so that two active reservations can never commit
// overlapping intervals on one device, whatever the application layer
// does. The reservation service maps SQLSTATE 23P01 to a conflict error.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&userModel{}, &deviceModel{}, &reservationModel{}); err != nil {
		return err
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,
		`ALTER TABLE reservations DROP CONSTRAINT IF EXISTS reservations_no_overlap`,
		`ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap
			EXCLUDE USING gist (
				device_id WITH =,
				tstzrange(start_time, end_time, '[)') WITH &&
			)
			WHERE (status IN ('pending', 'approved'))`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return err
		}
	}
	return nil
}
