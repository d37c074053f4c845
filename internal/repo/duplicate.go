// Package repo implements the data persistence layer for the archive
// schema, backed by GORM. This file classifies driver errors so unique
// violations can be treated as "row already present" instead of failures.
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isDuplicateErr reports whether err was raised by a unique constraint.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations and
// the postgres driver surfaces SQLSTATE 23505 in the message, so matching
// falls back to the error text when the typed check misses.
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value violates unique constraint") ||
		strings.Contains(low, "sqlstate 23505")
}
