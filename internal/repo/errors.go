package repo

import (
	"errors"

	"leadcrm/internal/db"

	"gorm.io/gorm"
)

// isUniqueViolation detects a unique constraint failure whether or not the
// dialector translated it.
func isUniqueViolation(err error) bool {
	return db.IsUniqueViolation(err)
}

// IsNotFound reports whether err is gorm's missing-row error
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// firstOrNil runs First into dest and maps a missing row to (false, nil)
func firstOrNil(tx *gorm.DB, dest interface{}) (bool, error) {
	err := tx.First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
