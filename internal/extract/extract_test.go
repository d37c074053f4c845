package extract

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tbourn/go-post-archive/internal/record"
)

func mustDecode(t *testing.T, line string) *record.Record {
	t.Helper()
	r, err := record.Decode([]byte(line))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return r
}

func strv(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestExtract_MalformedIdentity(t *testing.T) {
	cases := []struct {
		name  string
		line  string
		field string
	}{
		{"missing id", `{"text":"x","user":{"id":1}}`, "id"},
		{"fractional id", `{"id":1.5,"user":{"id":1}}`, "id"},
		{"negative id", `{"id":-3,"user":{"id":1}}`, "id"},
		{"missing user", `{"id":12}`, "user.id"},
		{"missing user id", `{"id":12,"user":{"screen_name":"sn"}}`, "user.id"},
		{"fractional user id", `{"id":12,"user":{"id":2.25}}`, "user.id"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Extract(mustDecode(t, c.line))
			var mErr *MalformedRecordError
			if !errors.As(err, &mErr) {
				t.Fatalf("expected *MalformedRecordError, got %v", err)
			}
			if mErr.Field != c.field {
				t.Fatalf("field = %q; want %q", mErr.Field, c.field)
			}
		})
	}

	var mErr *MalformedRecordError
	if _, err := Extract(nil); !errors.As(err, &mErr) {
		t.Fatalf("expected *MalformedRecordError for nil record, got %v", err)
	}
}

func TestExtract_IdentifiersCanonicalized(t *testing.T) {
	f, err := Extract(mustDecode(t, `{
		"id": 1278946926839353344,
		"user": {"id": 9973282134},
		"in_reply_to_status_id": 1278946926839353340,
		"in_reply_to_user_id": 12,
		"quoted_status_id": 99
	}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if f.PostID != "1278946926839353344" || f.Author.ID != "9973282134" {
		t.Fatalf("identity = (%q, %q)", f.PostID, f.Author.ID)
	}
	if strv(f.InReplyToPostID) != "1278946926839353340" || strv(f.InReplyToAuthorID) != "12" || strv(f.QuotedPostID) != "99" {
		t.Fatalf("thread links = (%s, %s, %s)", strv(f.InReplyToPostID), strv(f.InReplyToAuthorID), strv(f.QuotedPostID))
	}

	// Invalid optional identifiers degrade to nil, never to an error.
	f, err = Extract(mustDecode(t, `{"id":1,"user":{"id":2},"in_reply_to_status_id":-5}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if f.InReplyToPostID != nil {
		t.Fatalf("expected nil reply id for invalid value, got %q", *f.InReplyToPostID)
	}
}

func TestExtract_BodyTextFallback(t *testing.T) {
	f, err := Extract(mustDecode(t, `{"id":1,"user":{"id":2},"text":"short","extended_tweet":{"full_text":"the whole thing"}}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strv(f.Text) != "the whole thing" {
		t.Fatalf("text = %q; want extended body to win", strv(f.Text))
	}

	f, _ = Extract(mustDecode(t, `{"id":1,"user":{"id":2},"text":"short"}`))
	if strv(f.Text) != "short" {
		t.Fatalf("text = %q; want top-level fallback", strv(f.Text))
	}

	f, _ = Extract(mustDecode(t, `{"id":1,"user":{"id":2}}`))
	if f.Text != nil {
		t.Fatalf("text = %q; want nil when both tiers absent", *f.Text)
	}
}

func TestExtract_EntityTiersFallIndependently(t *testing.T) {
	// urls present (empty!) under the extended body, hashtags only at the top
	// level: urls must NOT fall through, hashtags must.
	f, err := Extract(mustDecode(t, `{
		"id": 1, "user": {"id": 2},
		"entities": {
			"urls": [{"expanded_url": "https://lower.example"}],
			"hashtags": [{"text": "fromBase"}]
		},
		"extended_tweet": {
			"full_text": "t",
			"entities": {"urls": []}
		}
	}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(f.URLs) != 0 {
		t.Fatalf("urls = %v; present-but-empty tier must win", f.URLs)
	}
	if !reflect.DeepEqual(f.Tags, []string{"#fromBase"}) {
		t.Fatalf("tags = %v; want fallback to the base tier", f.Tags)
	}
}

func TestExtract_URLs(t *testing.T) {
	f, err := Extract(mustDecode(t, `{
		"id": 1, "user": {"id": 2},
		"entities": {"urls": [
			{"expanded_url": "https://a.example/x"},
			{"url": "https://t.example/short"},
			{"expanded_url": "https://a.example/x"}
		]}
	}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// Entries without an expanded target are skipped; duplicates are kept
	// (the writer's links are idempotent).
	want := []string{"https://a.example/x", "https://a.example/x"}
	if !reflect.DeepEqual(f.URLs, want) {
		t.Fatalf("urls = %v; want %v", f.URLs, want)
	}
}

func TestExtract_TagsCarrySigils(t *testing.T) {
	f, err := Extract(mustDecode(t, `{
		"id": 1, "user": {"id": 2},
		"entities": {
			"hashtags": [{"text": "foo"}, {"text": ""}, {}],
			"symbols": [{"text": "BAR"}]
		}
	}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []string{"#foo", "$BAR"}
	if !reflect.DeepEqual(f.Tags, want) {
		t.Fatalf("tags = %v; want %v", f.Tags, want)
	}
}

func TestExtract_MentionsSkipUnusableIDs(t *testing.T) {
	f, err := Extract(mustDecode(t, `{
		"id": 1, "user": {"id": 2},
		"entities": {"user_mentions": [
			{"id": 31, "screen_name": "a"},
			{"screen_name": "no-id"},
			{"id": 7.5}
		]}
	}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !reflect.DeepEqual(f.MentionIDs, []string{"31"}) {
		t.Fatalf("mentions = %v", f.MentionIDs)
	}
}

func TestExtract_MediaTiers(t *testing.T) {
	t.Run("extended body wins", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{
			"id": 1, "user": {"id": 2},
			"entities": {"media": [{"media_url": "http://m/base"}]},
			"extended_entities": {"media": [{"media_url": "http://m/mid"}]},
			"extended_tweet": {"extended_entities": {"media": [{"media_url": "http://m/top", "type": "photo"}]}}
		}`))
		if len(f.Media) != 1 || f.Media[0].URL != "http://m/top" || strv(f.Media[0].Type) != "photo" {
			t.Fatalf("media = %+v", f.Media)
		}
	})
	t.Run("top-level extended next", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{
			"id": 1, "user": {"id": 2},
			"entities": {"media": [{"media_url": "http://m/base"}]},
			"extended_entities": {"media": [{"media_url": "http://m/mid"}]}
		}`))
		if len(f.Media) != 1 || f.Media[0].URL != "http://m/mid" {
			t.Fatalf("media = %+v", f.Media)
		}
	})
	t.Run("base entities last", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{
			"id": 1, "user": {"id": 2},
			"entities": {"media": [{"media_url": "http://m/base"}]}
		}`))
		if len(f.Media) != 1 || f.Media[0].URL != "http://m/base" {
			t.Fatalf("media = %+v", f.Media)
		}
	})
	t.Run("tls fallback and skips", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{
			"id": 1, "user": {"id": 2},
			"entities": {"media": [{"media_url_https": "https://m/1"}, {"type": "video"}]}
		}`))
		if len(f.Media) != 1 || f.Media[0].URL != "https://m/1" {
			t.Fatalf("media = %+v", f.Media)
		}
	})
	t.Run("no tier resolves empty", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{"id":1,"user":{"id":2}}`))
		if len(f.Media) != 0 {
			t.Fatalf("media = %+v", f.Media)
		}
	})
}

func TestExtract_GeographyPoint(t *testing.T) {
	f, err := Extract(mustDecode(t, `{
		"id": 1, "user": {"id": 2, "geo_enabled": true},
		"geo": {"type": "Point", "coordinates": [41.4219, -87.3320]}
	}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if f.Geo.Kind != KindPoint || strv(f.Geo.Shape) != "41.4219 -87.3320" {
		t.Fatalf("geo = %+v", f.Geo)
	}
	if got := f.Geo.WKT(); got == nil || *got != "POINT(41.4219 -87.3320)" {
		t.Fatalf("wkt = %v", got)
	}
}

func TestExtract_GeographyBoundingBox(t *testing.T) {
	t.Run("open ring is closed", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{
			"id": 1, "user": {"id": 2},
			"place": {"bounding_box": {"type": "Polygon", "coordinates": [[
				[-71.19, 42.22], [-71.19, 42.39], [-70.98, 42.39], [-70.98, 42.22]
			]]}}
		}`))
		want := "((-71.19 42.22,-71.19 42.39,-70.98 42.39,-70.98 42.22,-71.19 42.22))"
		if f.Geo.Kind != KindMultiPolygon || strv(f.Geo.Shape) != want {
			t.Fatalf("geo = %+v; want shape %q", f.Geo, want)
		}
	})
	t.Run("closed ring untouched", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{
			"id": 1, "user": {"id": 2},
			"place": {"bounding_box": {"type": "Polygon", "coordinates": [[
				[-1 , 2], [-1, 3], [0, 3], [-1, 2]
			]]}}
		}`))
		want := "((-1 2,-1 3,0 3,-1 2))"
		if strv(f.Geo.Shape) != want {
			t.Fatalf("shape = %q; want %q", strv(f.Geo.Shape), want)
		}
	})
	t.Run("point outranks bounding box", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{
			"id": 1, "user": {"id": 2},
			"geo": {"coordinates": [1.5, 2.5]},
			"place": {"bounding_box": {"coordinates": [[[0, 0], [0, 1], [1, 1]]]}}
		}`))
		if f.Geo.Kind != KindPoint {
			t.Fatalf("geo = %+v; want the exact point to win", f.Geo)
		}
	})
	t.Run("degenerate box falls through", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{
			"id": 1, "user": {"id": 2, "geo_enabled": true},
			"place": {"bounding_box": {"coordinates": []}}
		}`))
		if f.Geo.Shape != nil || !f.Geo.Attempted {
			t.Fatalf("geo = %+v; want attempted-only", f.Geo)
		}
	})
}

func TestExtract_GeographyAttemptedAndAbsent(t *testing.T) {
	f, _ := Extract(mustDecode(t, `{"id":1,"user":{"id":2,"geo_enabled":true}}`))
	if f.Geo.Shape != nil || f.Geo.Kind != "" || !f.Geo.Attempted {
		t.Fatalf("geo = %+v; want attempted marker only", f.Geo)
	}
	if f.Geo.WKT() != nil {
		t.Fatalf("attempted geography must have no WKT")
	}

	f, _ = Extract(mustDecode(t, `{"id":1,"user":{"id":2,"geo_enabled":false}}`))
	if f.Geo != (Geography{}) {
		t.Fatalf("geo = %+v; want zero value", f.Geo)
	}
}

func TestExtract_PlaceDerivation(t *testing.T) {
	t.Run("us place yields state code", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{"id":1,"user":{"id":2},
			"place": {"country_code": "US", "full_name": "Boston, MA"}}`))
		if strv(f.CountryCode) != "us" || strv(f.StateCode) != "ma" || strv(f.PlaceName) != "Boston, MA" {
			t.Fatalf("place = (%s, %s, %s)", strv(f.CountryCode), strv(f.StateCode), strv(f.PlaceName))
		}
	})
	t.Run("long tail segment is not a state", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{"id":1,"user":{"id":2},
			"place": {"country_code": "US", "full_name": "Puerto Rico, Estados Unidos"}}`))
		if f.StateCode != nil {
			t.Fatalf("state = %q; want nil", *f.StateCode)
		}
	})
	t.Run("non-us never yields a state", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{"id":1,"user":{"id":2},
			"place": {"country_code": "FR", "full_name": "Paris, FR"}}`))
		if strv(f.CountryCode) != "fr" || f.StateCode != nil {
			t.Fatalf("place = (%s, %v)", strv(f.CountryCode), f.StateCode)
		}
	})
	t.Run("no place at all", func(t *testing.T) {
		f, _ := Extract(mustDecode(t, `{"id":1,"user":{"id":2}}`))
		if f.CountryCode != nil || f.StateCode != nil || f.PlaceName != nil {
			t.Fatalf("place = (%v, %v, %v)", f.CountryCode, f.StateCode, f.PlaceName)
		}
	})
}

func TestExtract_Timestamps(t *testing.T) {
	f, _ := Extract(mustDecode(t, `{"id":1,"user":{"id":2},"created_at":"Wed Oct 10 20:19:24 +0000 2018"}`))
	want := time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC)
	if f.CreatedAt == nil || !f.CreatedAt.Equal(want) {
		t.Fatalf("created_at = %v; want %v", f.CreatedAt, want)
	}

	f, _ = Extract(mustDecode(t, `{"id":1,"user":{"id":2},"created_at":"2018-10-10T20:19:24Z"}`))
	if f.CreatedAt == nil || !f.CreatedAt.Equal(want) {
		t.Fatalf("rfc3339 created_at = %v; want %v", f.CreatedAt, want)
	}

	f, _ = Extract(mustDecode(t, `{"id":1,"user":{"id":2},"created_at":"yesterday-ish"}`))
	if f.CreatedAt != nil {
		t.Fatalf("created_at = %v; want nil for unparseable", f.CreatedAt)
	}
}

func TestExtract_SanitizesEverything(t *testing.T) {
	f, err := Extract(mustDecode(t, `{
		"id": 1,
		"user": {"id": 2, "screen_name": "ev\u0000il", "description": "a\u0000b"},
		"text": "null\u0000byte",
		"entities": {
			"urls": [{"expanded_url": "https://x.example/\u0000p"}],
			"hashtags": [{"text": "ta\u0000g"}]
		},
		"withheld_in_countries": ["d\u0000e"]
	}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strv(f.Text) != "nullbyte" {
		t.Fatalf("text = %q", strv(f.Text))
	}
	if strv(f.Author.ScreenName) != "evil" || strv(f.Author.Description) != "ab" {
		t.Fatalf("author = %+v", f.Author)
	}
	if len(f.URLs) != 1 || f.URLs[0] != "https://x.example/p" {
		t.Fatalf("urls = %v", f.URLs)
	}
	if len(f.Tags) != 1 || f.Tags[0] != "#tag" {
		t.Fatalf("tags = %v", f.Tags)
	}
	if len(f.WithheldInCountries) != 1 || f.WithheldInCountries[0] != "de" {
		t.Fatalf("withheld = %v", f.WithheldInCountries)
	}
}

func TestExtract_AuthorProfile(t *testing.T) {
	f, err := Extract(mustDecode(t, `{
		"id": 1,
		"user": {
			"id": 2,
			"created_at": "Wed Oct 10 20:19:24 +0000 2018",
			"screen_name": "sn", "name": "Name", "location": "loc",
			"url": "https://me.example", "description": "desc",
			"protected": false, "verified": true,
			"friends_count": 10, "listed_count": 1,
			"favourites_count": 5, "statuses_count": 1000,
			"withheld_in_countries": ["tr"]
		}
	}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	a := f.Author
	if a.ID != "2" || strv(a.ScreenName) != "sn" || strv(a.Name) != "Name" ||
		strv(a.Location) != "loc" || strv(a.URL) != "https://me.example" || strv(a.Description) != "desc" {
		t.Fatalf("author text fields = %+v", a)
	}
	if a.Protected == nil || *a.Protected || a.Verified == nil || !*a.Verified {
		t.Fatalf("author flags = %+v", a)
	}
	if a.FriendsCount == nil || *a.FriendsCount != 10 || a.StatusesCount == nil || *a.StatusesCount != 1000 {
		t.Fatalf("author counts = %+v", a)
	}
	if a.CreatedAt == nil || a.CreatedAt.Year() != 2018 {
		t.Fatalf("author created_at = %v", a.CreatedAt)
	}
	if !reflect.DeepEqual(a.WithheldInCountries, []string{"tr"}) {
		t.Fatalf("author withheld = %v", a.WithheldInCountries)
	}
}
