// Package ingest – record writer
//
// This file implements Ingest, the component that turns one decoded archive
// record into rows across the normalized schema. Each record is written in a
// single transaction: the fact row, the author rows it implies (hydrated
// profile for the poster, stubs for reply targets and mentions), the shared
// url rows, and the link tables. A failure anywhere rolls the whole record
// back, so a record is either fully loaded or absent.
//
// Replays converge instead of failing: the fact row's primary key decides
// whether the record was loaded, and every other insert is idempotent over
// its natural key. Re-running an archive against a populated store is the
// supported way to resume an interrupted load.
//
// Observability: each write is OpenTelemetry-instrumented; spans carry the
// post and author identifiers.
package ingest

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-post-archive/internal/domain"
	"github.com/tbourn/go-post-archive/internal/extract"
	"github.com/tbourn/go-post-archive/internal/record"
	"github.com/tbourn/go-post-archive/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Ingest writes one record into the archive inside a single transaction.
//
// A record that cannot be keyed fails with *extract.MalformedRecordError
// before anything is written. Any failure inside the transaction rolls the
// record back and is returned as *IngestionError. On success the outcome
// tells whether this call inserted the record or found it already stored.
func Ingest(ctx context.Context, db *gorm.DB, rec *record.Record) (Outcome, error) {
	f, err := extract.Extract(rec)
	if err != nil {
		return OutcomeUnknown, err
	}

	tr := otel.Tracer("ingest")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(
			attribute.String("post.id", f.PostID),
			attribute.String("author.id", f.Author.ID),
		),
	)
	defer span.End()

	outcome := OutcomeUnknown
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The fact row decides whether the record was already loaded.
		exists, err := repo.PostExists(ctx, tx, f.PostID)
		if err != nil {
			return err
		}
		if exists {
			outcome = OutcomeAlreadyPresent
			return nil
		}

		// Author rows the record implies: the poster's profile, then a
		// stub for the account being replied to.
		if err := writeAuthor(ctx, tx, f.Author); err != nil {
			return err
		}
		if f.InReplyToAuthorID != nil {
			if err := repo.EnsureAuthorStub(ctx, tx, *f.InReplyToAuthorID); err != nil {
				return err
			}
		}

		inserted, err := repo.InsertPost(ctx, tx, postRow(f))
		if err != nil {
			return err
		}
		if !inserted {
			outcome = OutcomeAlreadyPresent
			return nil
		}

		// Fan the record out across the link tables.
		for _, u := range f.URLs {
			urlID, err := repo.ResolveURL(ctx, tx, u)
			if err != nil {
				return err
			}
			if err := repo.LinkURL(ctx, tx, f.PostID, urlID); err != nil {
				return err
			}
		}
		for _, id := range f.MentionIDs {
			if err := repo.EnsureAuthorStub(ctx, tx, id); err != nil {
				return err
			}
			if err := repo.LinkMention(ctx, tx, f.PostID, id); err != nil {
				return err
			}
		}
		for _, tag := range f.Tags {
			if err := repo.LinkTag(ctx, tx, f.PostID, tag); err != nil {
				return err
			}
		}
		for _, m := range f.Media {
			urlID, err := repo.ResolveURL(ctx, tx, m.URL)
			if err != nil {
				return err
			}
			if err := repo.LinkMedia(ctx, tx, f.PostID, urlID, m.Type); err != nil {
				return err
			}
		}

		outcome = OutcomeInserted
		return nil
	})
	if err != nil {
		return OutcomeUnknown, &IngestionError{PostID: f.PostID, Err: err}
	}
	return outcome, nil
}

// writeAuthor persists the posting account: the profile link resolves first
// so the row can reference it, then the profile is inserted-or-ignored.
func writeAuthor(ctx context.Context, tx *gorm.DB, a extract.AuthorProfile) error {
	row := &domain.Author{
		ID:                  a.ID,
		CreatedAt:           a.CreatedAt,
		ScreenName:          a.ScreenName,
		Name:                a.Name,
		Location:            a.Location,
		Description:         a.Description,
		Protected:           a.Protected,
		Verified:            a.Verified,
		FriendsCount:        a.FriendsCount,
		ListedCount:         a.ListedCount,
		FavouritesCount:     a.FavouritesCount,
		StatusesCount:       a.StatusesCount,
		WithheldInCountries: datatypes.JSONSlice[string](a.WithheldInCountries),
	}
	if a.URL != nil {
		urlID, err := repo.ResolveURL(ctx, tx, *a.URL)
		if err != nil {
			return err
		}
		row.URLID = &urlID
	}
	return repo.InsertAuthor(ctx, tx, row)
}

// postRow maps extracted fields onto the posts schema. Geo stays NULL; the
// geography chain's output is not stored yet.
func postRow(f *extract.Fields) *domain.Post {
	return &domain.Post{
		ID:                  f.PostID,
		AuthorID:            f.Author.ID,
		CreatedAt:           f.CreatedAt,
		InReplyToPostID:     f.InReplyToPostID,
		InReplyToAuthorID:   f.InReplyToAuthorID,
		QuotedPostID:        f.QuotedPostID,
		RetweetCount:        f.RetweetCount,
		QuoteCount:          f.QuoteCount,
		FavoriteCount:       f.FavoriteCount,
		WithheldCopyright:   f.WithheldCopyright,
		WithheldInCountries: datatypes.JSONSlice[string](f.WithheldInCountries),
		Source:              f.Source,
		Text:                f.Text,
		CountryCode:         f.CountryCode,
		StateCode:           f.StateCode,
		Lang:                f.Lang,
		PlaceName:           f.PlaceName,
	}
}
