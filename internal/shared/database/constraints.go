package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the indexes AutoMigrate cannot express
func MigrateConstraints(db *gorm.DB) error {
	// A seat is sold at most once per booking
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_sandbox_booking_seat
		ON sandbox_booking_seats (booking_id, seat_id);
	`).Error
	if err != nil {
		return err
	}

	// Seat map and hold lookups filter by performance
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sandbox_seats_performance_row
		ON sandbox_seats (performance_id, "row", number);
	`).Error
	if err != nil {
		return err
	}

	// Pending discount uses are counted per code and status
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sandbox_bookings_discount_status
		ON sandbox_bookings (discount_code, status);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
