package db

import (
	"strings"

	"github.com/activecm/genhash/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed database.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is closed.
// The driver's own errors are matched by message since they cannot be wrapped
// at the source.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// Classify maps driver errors onto this package's sentinels; other errors are
// returned unchanged.
func Classify(err error) error {
	if err != nil && !errors.Is(err, ErrDatabaseClosed) && IsDatabaseClosed(err) {
		return errors.WithSecondaryError(ErrDatabaseClosed, err)
	}
	return err
}
