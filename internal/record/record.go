// Package record declares the structural contract for one archived post
// document and decodes JSONL lines into it.
//
// The archive format is deeply variant: nearly every key is optional, numbers
// arrive as 64-bit unsigned integers that do not survive float64 decoding,
// and the same logical field can live at several places depending on which
// export produced the record. Decoding therefore uses json.Number everywhere
// an identifier or coordinate appears, and keeps the nil-vs-empty distinction
// on every list so callers can tell "tier absent" from "tier present but
// empty" when walking fallback chains.
package record

import (
	"bytes"
	"encoding/json"
)

// Record is the top-level archived post document.
//
// Field names follow the wire format, not the normalized schema; mapping to
// domain vocabulary happens in the extraction layer.
type Record struct {
	ID        json.Number `json:"id"`
	CreatedAt *string     `json:"created_at"`
	Text      *string     `json:"text"`
	Source    *string     `json:"source"`
	Lang      *string     `json:"lang"`

	User *User `json:"user"`

	InReplyToStatusID json.Number `json:"in_reply_to_status_id"`
	InReplyToUserID   json.Number `json:"in_reply_to_user_id"`
	QuotedStatusID    json.Number `json:"quoted_status_id"`

	RetweetCount  *int64 `json:"retweet_count"`
	QuoteCount    *int64 `json:"quote_count"`
	FavoriteCount *int64 `json:"favorite_count"`

	WithheldCopyright   *bool    `json:"withheld_copyright"`
	WithheldInCountries []string `json:"withheld_in_countries"`

	Geo   *GeoPoint `json:"geo"`
	Place *Place    `json:"place"`

	Entities         *Entities `json:"entities"`
	ExtendedEntities *Entities `json:"extended_entities"`

	ExtendedTweet *ExtendedTweet `json:"extended_tweet"`
}

// ExtendedTweet carries the untruncated body and its own entity blocks.
// When present, its fields take precedence over the top-level ones.
type ExtendedTweet struct {
	FullText         *string   `json:"full_text"`
	Entities         *Entities `json:"entities"`
	ExtendedEntities *Entities `json:"extended_entities"`
}

// User is the author sub-document embedded in every hydrated record.
type User struct {
	ID                  json.Number `json:"id"`
	CreatedAt           *string     `json:"created_at"`
	ScreenName          *string     `json:"screen_name"`
	Name                *string     `json:"name"`
	Location            *string     `json:"location"`
	URL                 *string     `json:"url"`
	Description         *string     `json:"description"`
	Protected           *bool       `json:"protected"`
	Verified            *bool       `json:"verified"`
	FriendsCount        *int64      `json:"friends_count"`
	ListedCount         *int64      `json:"listed_count"`
	FavouritesCount     *int64      `json:"favourites_count"`
	StatusesCount       *int64      `json:"statuses_count"`
	WithheldInCountries []string    `json:"withheld_in_countries"`
	GeoEnabled          *bool       `json:"geo_enabled"`
}

// GeoPoint is the record-level exact coordinate, when the author attached one.
// Coordinates keep their raw source tokens so rendering them back into a
// geometry string loses no precision.
type GeoPoint struct {
	Type        string        `json:"type"`
	Coordinates []json.Number `json:"coordinates"`
}

// Place describes the coarse location a record was tagged with.
type Place struct {
	CountryCode *string      `json:"country_code"`
	FullName    *string      `json:"full_name"`
	BoundingBox *BoundingBox `json:"bounding_box"`
}

// BoundingBox holds polygons as the source ships them: a list of rings, each
// ring a list of [lon, lat] pairs. Rings may arrive unclosed.
type BoundingBox struct {
	Type        string            `json:"type"`
	Coordinates [][][]json.Number `json:"coordinates"`
}

// Entities is one entity block. The same shape appears at the top level,
// under extended_tweet, and under extended_entities; which copy wins is the
// extraction layer's business. A nil slice means the key was absent.
type Entities struct {
	URLs         []URLEntity     `json:"urls"`
	Hashtags     []TagEntity     `json:"hashtags"`
	Symbols      []TagEntity     `json:"symbols"`
	UserMentions []MentionEntity `json:"user_mentions"`
	Media        []MediaEntity   `json:"media"`
}

// URLEntity is one link occurrence in a post body.
type URLEntity struct {
	URL         *string `json:"url"`
	ExpandedURL *string `json:"expanded_url"`
}

// TagEntity is one hashtag or cashtag occurrence. The text arrives without
// its sigil.
type TagEntity struct {
	Text *string `json:"text"`
}

// MentionEntity is one account reference in a post body.
type MentionEntity struct {
	ID         json.Number `json:"id"`
	ScreenName *string     `json:"screen_name"`
}

// MediaEntity is one attachment reference.
type MediaEntity struct {
	MediaURL      *string `json:"media_url"`
	MediaURLHTTPS *string `json:"media_url_https"`
	Type          *string `json:"type"`
}

// Decode parses one JSONL line into a Record. Numbers are decoded as
// json.Number so 64-bit identifiers keep their exact decimal text.
func Decode(line []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
