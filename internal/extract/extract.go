// Package extract derives the canonical field set from one archived post
// document. The archive format moved several times over its life, so the
// same logical field can live in different places depending on the export:
// the body text may be truncated at the top level with the full version
// nested under the extended body, and every entity list exists in up to
// three variants.
//
// Extraction is a pure function over the decoded document. Each field is
// resolved by an ordered rule list evaluated top to bottom; the first rule
// whose probe succeeds wins, and a list that is present but empty is still a
// match (a lower tier never shines through it). Missing data resolves to
// nil or an empty slice, never to an error, with one exception: a record
// whose own id or author id is absent or not an unsigned integer is
// rejected with *MalformedRecordError, because nothing can be keyed on it.
//
// Every extracted string is passed through the sanitizer, and identifiers
// are canonicalized to exact-precision decimal strings.
package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-post-archive/internal/record"
	"github.com/tbourn/go-post-archive/internal/sanitize"
)

// MalformedRecordError reports a record whose identity cannot be
// established. Such records can never be ingested and are not retried; the
// caller should log the source position and move on.
type MalformedRecordError struct {
	Field  string // identity field that failed ("id", "user.id")
	Reason string
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: %s %s", e.Field, e.Reason)
}

// Fields is the canonical, storage-ready view of one record. Identifier
// fields are decimal strings; optional values are nil when every rule for
// them failed.
type Fields struct {
	PostID string
	Author AuthorProfile

	CreatedAt *time.Time
	Text      *string
	Source    *string
	Lang      *string

	InReplyToPostID   *string
	InReplyToAuthorID *string
	QuotedPostID      *string

	RetweetCount  *int64
	QuoteCount    *int64
	FavoriteCount *int64

	WithheldCopyright   *bool
	WithheldInCountries []string

	Geo         Geography
	CountryCode *string
	StateCode   *string
	PlaceName   *string

	URLs       []string
	MentionIDs []string
	Tags       []string
	Media      []MediaItem
}

// AuthorProfile carries the author sub-document's profile fields, sanitized
// and ready for a hydrated authors row.
type AuthorProfile struct {
	ID                  string
	CreatedAt           *time.Time
	ScreenName          *string
	Name                *string
	Location            *string
	URL                 *string
	Description         *string
	Protected           *bool
	Verified            *bool
	FriendsCount        *int64
	ListedCount         *int64
	FavouritesCount     *int64
	StatusesCount       *int64
	WithheldInCountries []string
}

// MediaItem is one attachment: its address plus the source's type label.
type MediaItem struct {
	URL  string
	Type *string
}

// Extract resolves every canonical field from rec. It fails only with
// *MalformedRecordError (missing or non-integer identity); all other
// irregularities degrade to absent values.
func Extract(rec *record.Record) (*Fields, error) {
	if rec == nil {
		return nil, &MalformedRecordError{Field: "id", Reason: "document is empty"}
	}
	postID, ok := identifier(rec.ID)
	if !ok {
		return nil, &MalformedRecordError{Field: "id", Reason: "missing or not an unsigned integer"}
	}
	if rec.User == nil {
		return nil, &MalformedRecordError{Field: "user.id", Reason: "author sub-document is missing"}
	}
	authorID, ok := identifier(rec.User.ID)
	if !ok {
		return nil, &MalformedRecordError{Field: "user.id", Reason: "missing or not an unsigned integer"}
	}

	f := &Fields{
		PostID: postID,
		Author: authorProfile(authorID, rec.User),

		CreatedAt: parseTimestamp(rec.CreatedAt),
		Text:      sanitize.Clean(bodyText(rec)),
		Source:    sanitize.Clean(rec.Source),
		Lang:      sanitize.Clean(rec.Lang),

		InReplyToPostID:   optionalIdentifier(rec.InReplyToStatusID),
		InReplyToAuthorID: optionalIdentifier(rec.InReplyToUserID),
		QuotedPostID:      optionalIdentifier(rec.QuotedStatusID),

		RetweetCount:  rec.RetweetCount,
		QuoteCount:    rec.QuoteCount,
		FavoriteCount: rec.FavoriteCount,

		WithheldCopyright:   rec.WithheldCopyright,
		WithheldInCountries: sanitize.CleanSlice(rec.WithheldInCountries),

		Geo: deriveGeography(rec),

		URLs:       collectURLs(rec),
		MentionIDs: collectMentions(rec),
		Tags:       collectTags(rec),
		Media:      collectMedia(rec),
	}
	f.CountryCode, f.StateCode, f.PlaceName = derivePlace(rec.Place)
	return f, nil
}

// identifier canonicalizes a source id. Ids are 64-bit unsigned integers;
// anything else (absent, fractional, exponent form, signed) is rejected.
func identifier(n json.Number) (string, bool) {
	s := n.String()
	if s == "" {
		return "", false
	}
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return "", false
	}
	return s, true
}

// optionalIdentifier is identifier for fields that may legitimately be
// absent: invalid values degrade to nil instead of failing the record.
func optionalIdentifier(n json.Number) *string {
	if s, ok := identifier(n); ok {
		return &s
	}
	return nil
}

// bodyText prefers the untruncated extended body over the top-level text.
func bodyText(rec *record.Record) *string {
	if rec.ExtendedTweet != nil && rec.ExtendedTweet.FullText != nil {
		return rec.ExtendedTweet.FullText
	}
	return rec.Text
}

// parseTimestamp accepts the classic long-form source timestamp, then
// RFC 3339 for re-exported corpora. Unparseable values degrade to nil.
func parseTimestamp(s *string) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	for _, layout := range []string{time.RubyDate, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

func authorProfile(id string, u *record.User) AuthorProfile {
	return AuthorProfile{
		ID:                  id,
		CreatedAt:           parseTimestamp(u.CreatedAt),
		ScreenName:          sanitize.Clean(u.ScreenName),
		Name:                sanitize.Clean(u.Name),
		Location:            sanitize.Clean(u.Location),
		URL:                 sanitize.Clean(u.URL),
		Description:         sanitize.Clean(u.Description),
		Protected:           u.Protected,
		Verified:            u.Verified,
		FriendsCount:        u.FriendsCount,
		ListedCount:         u.ListedCount,
		FavouritesCount:     u.FavouritesCount,
		StatusesCount:       u.StatusesCount,
		WithheldInCountries: sanitize.CleanSlice(u.WithheldInCountries),
	}
}

// --- Entity tier selection ---

// pickList walks the body entity tiers in order (the extended body's block,
// then the top level) and returns the first list probe reports as present.
// A present-but-empty list wins over a populated lower tier.
func pickList[T any](rec *record.Record, probe func(*record.Entities) []T) []T {
	if rec.ExtendedTweet != nil && rec.ExtendedTweet.Entities != nil {
		if l := probe(rec.ExtendedTweet.Entities); l != nil {
			return l
		}
	}
	if rec.Entities != nil {
		if l := probe(rec.Entities); l != nil {
			return l
		}
	}
	return nil
}

// pickMedia walks the media tiers. Media lives under extended_entities
// blocks first; the base entities block is the last resort (early exports
// put the lead attachment there).
func pickMedia(rec *record.Record) []record.MediaEntity {
	if rec.ExtendedTweet != nil && rec.ExtendedTweet.ExtendedEntities != nil && rec.ExtendedTweet.ExtendedEntities.Media != nil {
		return rec.ExtendedTweet.ExtendedEntities.Media
	}
	if rec.ExtendedEntities != nil && rec.ExtendedEntities.Media != nil {
		return rec.ExtendedEntities.Media
	}
	if rec.Entities != nil && rec.Entities.Media != nil {
		return rec.Entities.Media
	}
	return nil
}

// --- Entity collection ---

// collectURLs returns the expanded target of every link occurrence.
// Entries without an expanded target are skipped.
func collectURLs(rec *record.Record) []string {
	ents := pickList(rec, func(e *record.Entities) []record.URLEntity { return e.URLs })
	out := make([]string, 0, len(ents))
	for _, u := range ents {
		target := sanitize.Clean(u.ExpandedURL)
		if target == nil || *target == "" {
			continue
		}
		out = append(out, *target)
	}
	return out
}

// collectMentions returns the canonicalized id of every mentioned account.
// Entries without a usable id are skipped.
func collectMentions(rec *record.Record) []string {
	ents := pickList(rec, func(e *record.Entities) []record.MentionEntity { return e.UserMentions })
	out := make([]string, 0, len(ents))
	for _, m := range ents {
		if id, ok := identifier(m.ID); ok {
			out = append(out, id)
		}
	}
	return out
}

// collectTags returns hashtags prefixed "#" and cashtags prefixed "$", in
// that order. The sigil is stored with the tag so both families share one
// table.
func collectTags(rec *record.Record) []string {
	hashtags := pickList(rec, func(e *record.Entities) []record.TagEntity { return e.Hashtags })
	symbols := pickList(rec, func(e *record.Entities) []record.TagEntity { return e.Symbols })

	out := make([]string, 0, len(hashtags)+len(symbols))
	appendTags := func(sigil string, ents []record.TagEntity) {
		for _, tg := range ents {
			text := sanitize.Clean(tg.Text)
			if text == nil || *text == "" {
				continue
			}
			out = append(out, sigil+*text)
		}
	}
	appendTags("#", hashtags)
	appendTags("$", symbols)
	return out
}

// collectMedia returns one item per attachment, preferring the plain
// media address and falling back to the TLS variant. Entries without
// either are skipped.
func collectMedia(rec *record.Record) []MediaItem {
	ents := pickMedia(rec)
	out := make([]MediaItem, 0, len(ents))
	for _, m := range ents {
		target := sanitize.Clean(m.MediaURL)
		if target == nil || *target == "" {
			target = sanitize.Clean(m.MediaURLHTTPS)
		}
		if target == nil || *target == "" {
			continue
		}
		out = append(out, MediaItem{URL: *target, Type: sanitize.Clean(m.Type)})
	}
	return out
}
