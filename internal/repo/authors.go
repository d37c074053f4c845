// Package repo implements the data persistence layer for the archive
// schema, backed by GORM. This file maintains the authors dimension.
//
// Author rows exist in two grades. A stub carries only the id and is written
// the moment any record references the account (reply target, mention). A
// hydrated row carries the profile columns and is written from the author
// sub-document of the account's own posts. Both writes are insert-or-ignore
// over the primary key: whichever grade lands first owns the row, and later
// writes never modify it.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-post-archive/internal/domain"
)

// EnsureAuthorStub guarantees an authors row exists for id. When any row
// with that id is already stored the call does nothing.
func EnsureAuthorStub(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Author{ID: id})
	if res.Error != nil && !isDuplicateErr(res.Error) {
		return res.Error
	}
	return nil
}

// InsertAuthor writes a hydrated authors row. When a row with the same id is
// already stored, stub or hydrated, the insert is skipped and the stored row
// keeps its columns.
func InsertAuthor(ctx context.Context, db *gorm.DB, a *domain.Author) error {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(a)
	if res.Error != nil && !isDuplicateErr(res.Error) {
		return res.Error
	}
	return nil
}
