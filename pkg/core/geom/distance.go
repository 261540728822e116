package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Distance returns the minimum planar distance between any point of a and any
// point of b. It is zero when the geometries touch, cross, or when a vertex of
// one lies inside an areal part of the other. Nil or empty geometries are
// infinitely far from everything.
func Distance(a, b orb.Geometry) float64 {
	va, vb := Vertices(a), Vertices(b)
	if len(va) == 0 || len(vb) == 0 {
		return math.Inf(1)
	}
	if anyInside(va, b) || anyInside(vb, a) {
		return 0
	}

	sa, sb := Segments(a), Segments(b)
	for _, x := range sa {
		for _, y := range sb {
			if intersects(x, y) {
				return 0
			}
		}
	}

	best := math.Inf(1)
	// Vertex to segment covers every segment pair that does not intersect,
	// and vertex to vertex covers bare points.
	for _, p := range va {
		best = math.Min(best, pointDistance(p, vb, sb))
	}
	for _, p := range vb {
		best = math.Min(best, pointDistance(p, va, sa))
	}
	return best
}

// ClosestPoint returns the point of g nearest to p. It returns p itself when g
// has no vertices.
func ClosestPoint(g orb.Geometry, p orb.Point) orb.Point {
	best, bestD := p, math.Inf(1)
	for _, v := range Vertices(g) {
		if d := planar.DistanceSquared(v, p); d < bestD {
			best, bestD = v, d
		}
	}
	for _, s := range Segments(g) {
		q := project(s, p)
		if d := planar.DistanceSquared(q, p); d < bestD {
			best, bestD = q, d
		}
	}
	return best
}

// Centroid returns the area-weighted centroid of areal geometries and the
// length- or point-weighted centroid otherwise.
func Centroid(g orb.Geometry) orb.Point {
	c, _ := planar.CentroidArea(g)
	return c
}

func pointDistance(p orb.Point, verts []orb.Point, segs []Segment) float64 {
	best := math.Inf(1)
	for _, v := range verts {
		best = math.Min(best, planar.Distance(p, v))
	}
	for _, s := range segs {
		best = math.Min(best, planar.DistanceFromSegment(s[0], s[1], p))
	}
	return best
}

// anyInside reports whether any of pts lies within an areal part of g.
func anyInside(pts []orb.Point, g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.Polygon:
		for _, p := range pts {
			if planar.PolygonContains(g, p) {
				return true
			}
		}
	case orb.MultiPolygon:
		for _, p := range pts {
			if planar.MultiPolygonContains(g, p) {
				return true
			}
		}
	case orb.Ring:
		for _, p := range pts {
			if planar.RingContains(closeRing(g), p) {
				return true
			}
		}
	case orb.Bound:
		for _, p := range pts {
			if g.Contains(p) {
				return true
			}
		}
	case orb.Collection:
		for _, c := range g {
			if anyInside(pts, c) {
				return true
			}
		}
	}
	return false
}

// project returns the point of s nearest to p.
func project(s Segment, p orb.Point) orb.Point {
	dx, dy := s[1][0]-s[0][0], s[1][1]-s[0][1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return s[0]
	}
	t := ((p[0]-s[0][0])*dx + (p[1]-s[0][1])*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return orb.Point{s[0][0] + t*dx, s[0][1] + t*dy}
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// onSegment reports whether c, known to be collinear with s, lies within its
// bounding box.
func onSegment(s Segment, c orb.Point) bool {
	return math.Min(s[0][0], s[1][0]) <= c[0] && c[0] <= math.Max(s[0][0], s[1][0]) &&
		math.Min(s[0][1], s[1][1]) <= c[1] && c[1] <= math.Max(s[0][1], s[1][1])
}

func intersects(x, y Segment) bool {
	d1 := orientation(y[0], y[1], x[0])
	d2 := orientation(y[0], y[1], x[1])
	d3 := orientation(x[0], x[1], y[0])
	d4 := orientation(x[0], x[1], y[1])

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(y, x[0])) ||
		(d2 == 0 && onSegment(y, x[1])) ||
		(d3 == 0 && onSegment(x, y[0])) ||
		(d4 == 0 && onSegment(x, y[1]))
}
