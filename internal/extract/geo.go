package extract

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/tbourn/go-post-archive/internal/record"
	"github.com/tbourn/go-post-archive/internal/sanitize"
)

// Geometry kinds produced by the location fallback chain.
const (
	KindPoint        = "POINT"
	KindMultiPolygon = "MULTIPOLYGON"
)

// Geography is the outcome of the location fallback chain. Three states:
//
//   - Shape set: Kind names the geometry and Shape holds the coordinate
//     body (the text inside the kind's outer parentheses).
//   - Attempted without Shape: the account has geotagging enabled but the
//     record carried no usable coordinates.
//   - Zero value: no location signal at all.
//
// Coordinate tokens are carried verbatim from the source document, so the
// rendered body round-trips without float formatting drift.
type Geography struct {
	Kind      string
	Shape     *string
	Attempted bool
}

// WKT renders the geometry as well-known text, or nil when there is none.
func (g Geography) WKT() *string {
	if g.Shape == nil || g.Kind == "" {
		return nil
	}
	s := g.Kind + "(" + *g.Shape + ")"
	return &s
}

// deriveGeography evaluates the location rules in order: exact point,
// place bounding box, geotagging-enabled marker, nothing.
func deriveGeography(rec *record.Record) Geography {
	if rec.Geo != nil && len(rec.Geo.Coordinates) >= 2 {
		shape := rec.Geo.Coordinates[0].String() + " " + rec.Geo.Coordinates[1].String()
		return Geography{Kind: KindPoint, Shape: &shape}
	}
	if rec.Place != nil && rec.Place.BoundingBox != nil {
		if shape := multiPolygonShape(rec.Place.BoundingBox.Coordinates); shape != nil {
			return Geography{Kind: KindMultiPolygon, Shape: shape}
		}
	}
	if rec.User != nil && rec.User.GeoEnabled != nil && *rec.User.GeoEnabled {
		return Geography{Attempted: true}
	}
	return Geography{}
}

// multiPolygonShape renders bounding-box rings as a multipolygon coordinate
// body. Degenerate input (no rings, rings without coordinate pairs) yields
// nil so the caller falls through to the next rule.
func multiPolygonShape(rings [][][]json.Number) *string {
	rendered := make([]string, 0, len(rings))
	for _, ring := range rings {
		pts := make([]string, 0, len(ring)+1)
		for _, p := range ring {
			if len(p) < 2 {
				continue
			}
			pts = append(pts, p[0].String()+" "+p[1].String())
		}
		if len(pts) == 0 {
			continue
		}
		// Close the ring when the source leaves it open.
		if pts[0] != pts[len(pts)-1] {
			pts = append(pts, pts[0])
		}
		rendered = append(rendered, "(("+strings.Join(pts, ",")+"))")
	}
	if len(rendered) == 0 {
		return nil
	}
	s := strings.Join(rendered, ",")
	return &s
}

// derivePlace resolves the coarse location columns from the place
// sub-document: lower-cased country code, the display name, and a state
// code derived from the display name for US records only.
func derivePlace(p *record.Place) (country, state, name *string) {
	if p == nil {
		return nil, nil, nil
	}
	name = sanitize.Clean(p.FullName)
	if p.CountryCode != nil {
		if cc := strings.ToLower(strings.TrimSpace(*p.CountryCode)); cc != "" {
			country = &cc
		}
	}
	if country != nil && *country == "us" && name != nil {
		state = stateCode(*name)
	}
	return country, state, name
}

// stateCode takes the last comma-separated segment of a place display name
// ("Boston, MA" -> "ma"). Segments longer than two characters are not state
// codes ("Paris, France") and yield nil.
func stateCode(fullName string) *string {
	parts := strings.Split(fullName, ",")
	last := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	if last == "" || utf8.RuneCountInString(last) > 2 {
		return nil
	}
	return &last
}
