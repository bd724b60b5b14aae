package util

import (
	"github.com/oklog/ulid/v2"
)

// NewULID returns a new, lexicographically sortable record identifier.
// ulid.Make draws from a process-wide monotonic entropy source, so ids created
// within the same millisecond still sort in creation order.
func NewULID() string {
	return ulid.Make().String()
}

// IsULID reports whether s is a well-formed ULID.
func IsULID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
