package geom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Role determines how a geometry takes part in an analysis.
type Role int

const (
	// Source geometries are the keys of the adjacency mapping.
	Source Role = iota
	// Target geometries are the values of the adjacency mapping.
	Target
	// Obstacle geometries occupy the partition but never appear in the mapping.
	Obstacle
)

// Roles lists every role in site-indexing order.
var Roles = []Role{Source, Target, Obstacle}

// String returns the lower-case role name used in logs and JSON.
func (r Role) String() string {
	switch r {
	case Source:
		return "source"
	case Target:
		return "target"
	case Obstacle:
		return "obstacle"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseRole converts a role name back into a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Layer is the ordered geometry collection of one role. A nil entry marks a
// geometry that is absent from the analysis but keeps its index.
type Layer struct {
	Role       Role
	Geometries []orb.Geometry
}

// Len returns the number of slots, including nil ones.
func (l Layer) Len() int { return len(l.Geometries) }

// Present returns the number of non-nil geometries.
func (l Layer) Present() int {
	n := 0
	for _, g := range l.Geometries {
		if g != nil {
			n++
		}
	}
	return n
}

// Clone returns a layer with a copied slot slice. Geometries are shared since
// they are never mutated in place.
func (l Layer) Clone() Layer {
	return Layer{Role: l.Role, Geometries: append([]orb.Geometry(nil), l.Geometries...)}
}

// Vertices returns the ordered vertices of g. Rings drop the closing repeat of
// their first vertex; all other repeats are kept. A nil geometry has no
// vertices.
func Vertices(g orb.Geometry) []orb.Point {
	var out []orb.Point
	appendVertices(&out, g)
	return out
}

func appendVertices(out *[]orb.Point, g orb.Geometry) {
	switch g := g.(type) {
	case nil:
	case orb.Point:
		*out = append(*out, g)
	case orb.MultiPoint:
		*out = append(*out, g...)
	case orb.LineString:
		*out = append(*out, g...)
	case orb.MultiLineString:
		for _, ls := range g {
			*out = append(*out, ls...)
		}
	case orb.Ring:
		*out = append(*out, openRing(g)...)
	case orb.Polygon:
		for _, r := range g {
			*out = append(*out, openRing(r)...)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			appendVertices(out, p)
		}
	case orb.Collection:
		for _, c := range g {
			appendVertices(out, c)
		}
	case orb.Bound:
		appendVertices(out, g.ToRing())
	}
}

// openRing drops the closing vertex of a closed ring.
func openRing(r orb.Ring) []orb.Point {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}

// Supported reports whether g is a geometry type the pipeline understands.
func Supported(g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.Point, orb.MultiPoint, orb.LineString, orb.MultiLineString,
		orb.Ring, orb.Polygon, orb.MultiPolygon, orb.Bound:
		return true
	case orb.Collection:
		for _, c := range g {
			if !Supported(c) {
				return false
			}
		}
		return true
	}
	return false
}

// NonFinite returns the first vertex of g with a NaN or infinite
// coordinate.
func NonFinite(g orb.Geometry) (orb.Point, bool) {
	for _, p := range Vertices(g) {
		if !finite(p[0]) || !finite(p[1]) {
			return p, true
		}
	}
	return orb.Point{}, false
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Empty reports whether g contributes nothing to an analysis: it is nil, has
// no vertices, or is areal with zero area.
func Empty(g orb.Geometry) bool {
	if g == nil || len(Vertices(g)) == 0 {
		return true
	}
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon, orb.Ring:
		return planar.Area(g) == 0
	}
	return false
}

// Segment is a straight edge between two consecutive vertices.
type Segment [2]orb.Point

// Length returns the planar length of s.
func (s Segment) Length() float64 { return planar.Distance(s[0], s[1]) }

// Segments returns every edge of g in vertex order. Rings include their
// closing edge. Points contribute no segments.
func Segments(g orb.Geometry) []Segment {
	var out []Segment
	appendSegments(&out, g)
	return out
}

func appendSegments(out *[]Segment, g orb.Geometry) {
	switch g := g.(type) {
	case orb.LineString:
		for i := 1; i < len(g); i++ {
			*out = append(*out, Segment{g[i-1], g[i]})
		}
	case orb.MultiLineString:
		for _, ls := range g {
			appendSegments(out, ls)
		}
	case orb.Ring:
		appendSegments(out, orb.LineString(closeRing(g)))
	case orb.Polygon:
		for _, r := range g {
			appendSegments(out, r)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			appendSegments(out, p)
		}
	case orb.Collection:
		for _, c := range g {
			appendSegments(out, c)
		}
	case orb.Bound:
		appendSegments(out, g.ToRing())
	}
}

// closeRing returns r with its first vertex repeated at the end if needed.
func closeRing(r orb.Ring) orb.Ring {
	if len(r) > 1 && r[0] != r[len(r)-1] {
		return append(append(orb.Ring(nil), r...), r[0])
	}
	return r
}
