// Package repo implements the data persistence layer for the archive
// schema, backed by GORM. This file provides repository functions for the
// posts fact table and its link tables.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only inserts and
// query composition. Every insert is idempotent over the table's natural
// key, so replaying a record converges instead of failing.
//
// Functions:
//
//   - PostExists(ctx, db, id) -> (bool, error)
//     Reports whether a posts row with the id is already stored.
//
//   - InsertPost(ctx, db, post) -> (bool, error)
//     Inserts the fact row; false when a row with the id already existed.
//
//   - LinkURL(ctx, db, postID, urlID) -> error
//     Records that the post contains the url.
//
//   - LinkMention(ctx, db, postID, authorID) -> error
//     Records that the post mentions the author.
//
//   - LinkTag(ctx, db, postID, tag) -> error
//     Records that the post carries the tag (sigil included).
//
//   - LinkMedia(ctx, db, postID, urlID, mediaType) -> error
//     Records an attachment and its source type label.
//
// Link-table rows live under composite primary keys, so re-linking the same
// pair is absorbed by the constraint rather than surfacing as an error.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-post-archive/internal/domain"
)

// PostExists reports whether a posts row with the given id is stored.
func PostExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", id).
		Count(&n).Error
	return n > 0, err
}

// InsertPost writes the fact row for one record. The returned flag is false
// when a row with the same id was already present and the write was skipped.
func InsertPost(ctx context.Context, db *gorm.DB, p *domain.Post) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(p)
	if res.Error != nil {
		if isDuplicateErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// LinkURL records that postID contains the url with urlID.
func LinkURL(ctx context.Context, db *gorm.DB, postID string, urlID int64) error {
	return linkRow(ctx, db, &domain.PostURL{PostID: postID, URLID: urlID})
}

// LinkMention records that postID mentions the account with authorID.
func LinkMention(ctx context.Context, db *gorm.DB, postID, authorID string) error {
	return linkRow(ctx, db, &domain.Mention{PostID: postID, AuthorID: authorID})
}

// LinkTag records that postID carries tag. The sigil ("#" or "$") is part of
// the stored text.
func LinkTag(ctx context.Context, db *gorm.DB, postID, tag string) error {
	return linkRow(ctx, db, &domain.Tag{PostID: postID, Tag: tag})
}

// LinkMedia records an attachment of postID held in the urls dimension under
// urlID, with the source's type label when it carried one.
func LinkMedia(ctx context.Context, db *gorm.DB, postID string, urlID int64, mediaType *string) error {
	return linkRow(ctx, db, &domain.Media{PostID: postID, URLID: urlID, MediaType: mediaType})
}

// linkRow inserts one link-table row, absorbing duplicate-key outcomes.
func linkRow(ctx context.Context, db *gorm.DB, row any) error {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if res.Error != nil && !isDuplicateErr(res.Error) {
		return res.Error
	}
	return nil
}
