// Package repo implements the data persistence layer for the archive
// schema, backed by GORM. This file resolves the shared urls dimension.
//
// Resolution is get-or-create over the url text's unique index. The insert
// runs with ON CONFLICT DO NOTHING, so racing writers never fail each other;
// whichever row won the race is read back and its id shared. The
// insert-then-reread shape also keeps the enclosing transaction usable on
// PostgreSQL, where a raised unique violation would poison it.
package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-post-archive/internal/domain"
)

// ResolutionError reports a dimension row that could neither be created nor
// read back. It signals schema or storage trouble rather than bad input, so
// callers should stop the run instead of skipping the record.
type ResolutionError struct {
	Entity string // dimension name ("url")
	Key    string // natural key that failed to resolve
	Err    error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s %q: %v", e.Entity, e.Key, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *ResolutionError) Unwrap() error { return e.Err }

// ResolveURL returns the id of the urls row holding url, inserting the row
// first when it does not exist yet. The same text always resolves to the
// same id, within a run and across runs.
func ResolveURL(ctx context.Context, db *gorm.DB, url string) (int64, error) {
	row := domain.URL{URL: url}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil && !isDuplicateErr(res.Error) {
		return 0, res.Error
	}
	if res.Error == nil && res.RowsAffected > 0 {
		return row.ID, nil
	}

	// The insert was a no-op, so a row with this text exists; read it back.
	var existing domain.URL
	err := db.WithContext(ctx).Where("url = ?", url).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, &ResolutionError{Entity: "url", Key: url, Err: err}
	}
	if err != nil {
		return 0, err
	}
	return existing.ID, nil
}
