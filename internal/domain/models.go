// Package domain defines the persistence models for the normalized post
// archive: posts, authors, shared URLs, and the association tables that fan
// a single archived record out across them. These types are mapped with GORM
// and form the core data layer of the loader.
//
// All source identifiers are 64-bit unsigned integers in the archive format
// and are stored as exact-precision decimal strings to avoid float rounding
// anywhere in the pipeline.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Author represents an account that wrote, or is referenced by, an archived
// post. Rows come in two shapes:
//
//   - Stub: only ID is set. Written when a post references an account
//     (reply target, mention) whose profile has not been seen yet.
//   - Hydrated: profile columns populated from the author sub-document of
//     the account's own post.
//
// Inserts never overwrite: once a row exists for an ID, later writes are
// no-ops regardless of shape. All profile columns are nullable so a stub is
// representable as a row of NULLs.
type Author struct {
	ID                  string                      `json:"id"                    gorm:"type:varchar(32);primaryKey"`
	CreatedAt           *time.Time                  `json:"created_at,omitempty"  gorm:"autoCreateTime:false"`
	ScreenName          *string                     `json:"screen_name,omitempty" gorm:"type:varchar(64)"`
	Name                *string                     `json:"name,omitempty"        gorm:"type:varchar(128)"`
	Location            *string                     `json:"location,omitempty"    gorm:"type:text"`
	URLID               *int64                      `json:"url_id,omitempty"      gorm:"index"`
	Description         *string                     `json:"description,omitempty" gorm:"type:text"`
	Protected           *bool                       `json:"protected,omitempty"`
	Verified            *bool                       `json:"verified,omitempty"`
	FriendsCount        *int64                      `json:"friends_count,omitempty"`
	ListedCount         *int64                      `json:"listed_count,omitempty"`
	FavouritesCount     *int64                      `json:"favourites_count,omitempty"`
	StatusesCount       *int64                      `json:"statuses_count,omitempty"`
	WithheldInCountries datatypes.JSONSlice[string] `json:"withheld_in_countries,omitempty"`

	// ProfileURL is the resolved urls row for the account's profile link.
	ProfileURL *URL `json:"-" gorm:"foreignKey:URLID;references:ID"`
}

// TableName returns the database table name for Author.
func (Author) TableName() string { return "authors" }

// URL is the shared dimension for every link that appears anywhere in the
// archive: post bodies, media attachments, author profiles. The url text is
// unique; all referencing tables point at the surrogate ID, so a link that
// occurs in a million posts is stored once.
type URL struct {
	ID  int64  `json:"id"  gorm:"primaryKey;autoIncrement"`
	URL string `json:"url" gorm:"type:text;not null;uniqueIndex:ux_urls_url"`
}

// TableName returns the database table name for URL.
func (URL) TableName() string { return "urls" }

// Post is one archived record. Almost every column is nullable because the
// archive format only guarantees the identifiers; everything else depends on
// which variant of the document shape the record was exported with.
//
// Fields:
//   - ID / AuthorID: exact-precision decimal strings (source ids).
//   - CreatedAt: parsed source timestamp, nil when unparseable.
//   - InReplyToPostID / InReplyToAuthorID / QuotedPostID: thread links,
//     stored as plain columns (no FK to posts; the target may never arrive).
//   - Geo: reserved; writers leave it NULL.
type Post struct {
	ID                  string                      `json:"id"        gorm:"type:varchar(32);primaryKey"`
	AuthorID            string                      `json:"author_id" gorm:"type:varchar(32);not null;index:idx_posts_author"`
	CreatedAt           *time.Time                  `json:"created_at,omitempty" gorm:"autoCreateTime:false;index"`
	InReplyToPostID     *string                     `json:"in_reply_to_post_id,omitempty"   gorm:"type:varchar(32)"`
	InReplyToAuthorID   *string                     `json:"in_reply_to_author_id,omitempty" gorm:"type:varchar(32)"`
	QuotedPostID        *string                     `json:"quoted_post_id,omitempty"        gorm:"type:varchar(32)"`
	RetweetCount        *int64                      `json:"retweet_count,omitempty"`
	QuoteCount          *int64                      `json:"quote_count,omitempty"`
	FavoriteCount       *int64                      `json:"favorite_count,omitempty"`
	WithheldCopyright   *bool                       `json:"withheld_copyright,omitempty"`
	WithheldInCountries datatypes.JSONSlice[string] `json:"withheld_in_countries,omitempty"`
	Source              *string                     `json:"source,omitempty" gorm:"type:text"`
	Text                *string                     `json:"text,omitempty"   gorm:"type:text"`
	CountryCode         *string                     `json:"country_code,omitempty" gorm:"type:varchar(8)"`
	StateCode           *string                     `json:"state_code,omitempty"   gorm:"type:varchar(2)"`
	Lang                *string                     `json:"lang,omitempty"         gorm:"type:varchar(16)"`
	PlaceName           *string                     `json:"place_name,omitempty"   gorm:"type:text"`
	Geo                 *string                     `json:"geo,omitempty" gorm:"type:text"`

	// Author must exist before the post row commits; stubs satisfy this.
	Author Author `json:"-" gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// PostURL links a post to a url it contains. The composite primary key makes
// re-linking the same pair a no-op at the constraint level.
type PostURL struct {
	PostID string `json:"post_id" gorm:"type:varchar(32);primaryKey"`
	URLID  int64  `json:"url_id"  gorm:"primaryKey"`

	Post Post `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	URL  URL  `json:"-" gorm:"foreignKey:URLID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PostURL.
func (PostURL) TableName() string { return "post_urls" }

// Mention links a post to an account it mentions. The mentioned account is
// guaranteed to have an authors row (stub at minimum) before the link commits.
type Mention struct {
	PostID   string `json:"post_id"   gorm:"type:varchar(32);primaryKey"`
	AuthorID string `json:"author_id" gorm:"type:varchar(32);primaryKey"`

	Post   Post   `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Author Author `json:"-" gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Mention.
func (Mention) TableName() string { return "post_mentions" }

// Tag links a post to one hashtag or cashtag. The tag text keeps its sigil
// ("#" or "$") so both families share the table without a discriminator.
type Tag struct {
	PostID string `json:"post_id" gorm:"type:varchar(32);primaryKey"`
	Tag    string `json:"tag"     gorm:"type:varchar(280);primaryKey"`

	Post Post `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Tag.
func (Tag) TableName() string { return "post_tags" }

// Media links a post to an attachment. The attachment address lives in the
// urls dimension like any other link; MediaType carries the source's label
// ("photo", "video", ...) when present.
type Media struct {
	PostID    string  `json:"post_id" gorm:"type:varchar(32);primaryKey"`
	URLID     int64   `json:"url_id"  gorm:"primaryKey"`
	MediaType *string `json:"media_type,omitempty" gorm:"type:varchar(32)"`

	Post Post `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	URL  URL  `json:"-" gorm:"foreignKey:URLID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Media.
func (Media) TableName() string { return "post_media" }
