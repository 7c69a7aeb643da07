package repositories

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrInvalidID indicates an identifier that cannot name a record.
	ErrInvalidID = errors.New("invalid identifier")
)

// validID reports whether id parses as a UUID. Route parameters arrive as raw
// strings; rejecting junk here keeps them out of uuid-typed key columns, which
// would otherwise fail the whole statement with a cast error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
