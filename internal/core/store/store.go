// Package store maps domain types to database rows through the named
// queries in internal/core/db. One store per aggregate; all methods take a
// context and return domain types, never row structs.
package store

import (
	"time"

	"github.com/solatis/tagkeeper/internal/types"
)

// clock abstracts time for deterministic tests.
type clock func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC()
}

// now formats the current time in the canonical storage format.
func now(c clock) string {
	return types.FormatTime(c())
}
