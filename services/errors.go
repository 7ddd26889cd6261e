package services

import (
	"database/sql/driver"
	"errors"
	"net"

	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the referenced content does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStorageUnavailable indicates the database could not be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError rejects malformed or oversized input before any
// mutation is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return storageErr(err)
}

// storageErr folds connection level driver failures into
// ErrStorageUnavailable so handlers answer 503 rather than a generic 500.
func storageErr(err error) error {
	if errors.Is(err, driver.ErrBadConn) {
		return ErrStorageUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrStorageUnavailable
	}
	return err
}
