// Package normalize clips geometries to an optional window and densifies
// their boundaries so a point-based proximity partition has enough
// resolution.
//
// Both steps keep geometry identity: the output layers have exactly the
// slots of the input layers, and a geometry that clipping removes becomes a
// nil slot rather than shifting its successors.
package normalize

import (
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/geoadjacency/pkg/core/geom"
	"github.com/matzehuels/geoadjacency/pkg/errors"
)

// DefaultDivisor splits the mean segment length into this many pieces when
// no explicit interval is configured.
const DefaultDivisor = 5.0

// Options controls normalization.
type Options struct {
	// BoundingBox clips every geometry when set.
	BoundingBox *orb.Bound
	// Densify enables vertex insertion.
	Densify bool
	// MaxSegmentLength overrides the computed densification interval.
	MaxSegmentLength *float64
	// MaxSites caps the number of vertices the normalized layers may hold.
	// Zero means no limit.
	MaxSites int
	// Logger receives progress messages. Nil discards them.
	Logger *log.Logger
}

// Result holds the normalized layers.
type Result struct {
	// Layers are the clipped and, if enabled, densified geometries.
	Layers []geom.Layer
	// Originals are the clipped geometries before densification.
	Originals []geom.Layer
	// Interval is the densification interval used, or 0 when none was applied.
	Interval float64
	// Dropped counts geometries removed by clipping, per role.
	Dropped map[geom.Role]int
}

// Validate reports configuration errors. It is called by [Normalize] before
// any geometry is processed.
func (o Options) Validate() error {
	if b := o.BoundingBox; b != nil {
		if err := errors.ValidateBoundingBox(b.Min[0], b.Min[1], b.Max[0], b.Max[1]); err != nil {
			return err
		}
	}
	return errors.ValidatePositive("max_segment_length", o.MaxSegmentLength)
}

// Normalize clips and densifies layers. Input layers are not modified.
func Normalize(layers []geom.Layer, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	res := &Result{Dropped: make(map[geom.Role]int)}
	for _, l := range layers {
		out := geom.Layer{Role: l.Role, Geometries: make([]orb.Geometry, len(l.Geometries))}
		for i, g := range l.Geometries {
			if g != nil && opts.BoundingBox != nil {
				g = clip.Geometry(*opts.BoundingBox, g)
			}
			if geom.Empty(g) {
				if l.Geometries[i] != nil {
					res.Dropped[l.Role]++
				}
				continue
			}
			out.Geometries[i] = g
		}
		res.Originals = append(res.Originals, out)
	}

	if opts.BoundingBox != nil {
		logger.Debug("clipped geometries",
			"sources_dropped", res.Dropped[geom.Source],
			"targets_dropped", res.Dropped[geom.Target],
			"obstacles_dropped", res.Dropped[geom.Obstacle])
	}

	if !opts.Densify {
		if err := checkSites(res.Originals, 0, opts.MaxSites); err != nil {
			return nil, err
		}
		res.Layers = res.Originals
		return res, nil
	}

	if opts.MaxSegmentLength != nil {
		res.Interval = *opts.MaxSegmentLength
	} else {
		res.Interval = SegmentationInterval(res.Originals, DefaultDivisor)
		logger.Info("calculated max_segment_length", "value", res.Interval)
	}
	if res.Interval <= 0 {
		logger.Warn("densification skipped: input has no segments")
		res.Interval = 0
		if err := checkSites(res.Originals, 0, opts.MaxSites); err != nil {
			return nil, err
		}
		res.Layers = res.Originals
		return res, nil
	}
	if err := checkSites(res.Originals, res.Interval, opts.MaxSites); err != nil {
		return nil, err
	}

	for _, l := range res.Originals {
		out := geom.Layer{Role: l.Role, Geometries: make([]orb.Geometry, len(l.Geometries))}
		for i, g := range l.Geometries {
			if g != nil {
				out.Geometries[i] = Densify(g, res.Interval)
			}
		}
		res.Layers = append(res.Layers, out)
	}
	return res, nil
}

// SegmentationInterval returns the mean length of every segment in layers
// divided by divisor, so an average segment is split into divisor pieces.
// It returns 0 when the layers have no segments.
func SegmentationInterval(layers []geom.Layer, divisor float64) float64 {
	var lengths []float64
	for _, l := range layers {
		for _, g := range l.Geometries {
			for _, s := range geom.Segments(g) {
				lengths = append(lengths, s.Length())
			}
		}
	}
	if len(lengths) == 0 || divisor <= 0 {
		return 0
	}
	return stat.Mean(lengths, nil) / divisor
}

// SiteCount returns the number of vertices layers hold once densified with
// interval, without building them. An interval of 0 counts the vertices as
// they are. The result does not overflow for tiny intervals.
func SiteCount(layers []geom.Layer, interval float64) float64 {
	n := 0.0
	for _, l := range layers {
		for _, g := range l.Geometries {
			if g == nil {
				continue
			}
			n += float64(len(geom.Vertices(g)))
			if interval <= 0 {
				continue
			}
			for _, s := range geom.Segments(g) {
				if k := math.Ceil(s.Length() / interval); k > 1 {
					n += k - 1
				}
			}
		}
	}
	return n
}

func checkSites(layers []geom.Layer, interval float64, limit int) error {
	if limit <= 0 {
		return nil
	}
	n := SiteCount(layers, interval)
	if n <= float64(limit) {
		return nil
	}
	if interval > 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"densifying with max_segment_length %g yields %.0f vertices, limit is %d", interval, n, limit)
	}
	return errors.New(errors.ErrCodeInvalidConfig, "input has %.0f vertices, limit is %d", n, limit)
}

// Densify inserts evenly spaced vertices so no segment of g is longer than
// interval. Existing vertices keep their position and order. Points are
// returned unchanged, and a Bound becomes the equivalent Polygon.
func Densify(g orb.Geometry, interval float64) orb.Geometry {
	if interval <= 0 {
		return g
	}
	switch g := g.(type) {
	case orb.LineString:
		return orb.LineString(densifyPath(g, interval))
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			out[i] = orb.LineString(densifyPath(ls, interval))
		}
		return out
	case orb.Ring:
		return densifyRing(g, interval)
	case orb.Polygon:
		return densifyPolygon(g, interval)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = densifyPolygon(p, interval)
		}
		return out
	case orb.Collection:
		out := make(orb.Collection, len(g))
		for i, c := range g {
			out[i] = Densify(c, interval)
		}
		return out
	case orb.Bound:
		return densifyPolygon(g.ToPolygon(), interval)
	}
	return g
}

func densifyPolygon(p orb.Polygon, interval float64) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = densifyRing(r, interval)
	}
	return out
}

// densifyRing densifies the closing edge too. An open ring stays open.
func densifyRing(r orb.Ring, interval float64) orb.Ring {
	if len(r) < 2 {
		return r
	}
	if r[0] == r[len(r)-1] {
		return orb.Ring(densifyPath(r, interval))
	}
	closed := densifyPath(append(append([]orb.Point(nil), r...), r[0]), interval)
	return orb.Ring(closed[:len(closed)-1])
}

func densifyPath(pts []orb.Point, interval float64) []orb.Point {
	if len(pts) < 2 {
		return append([]orb.Point(nil), pts...)
	}
	out := make([]orb.Point, 0, len(pts))
	out = append(out, pts[0])
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		n := int(math.Ceil(geom.Segment{a, b}.Length() / interval))
		for k := 1; k < n; k++ {
			f := float64(k) / float64(n)
			out = append(out, orb.Point{a[0] + (b[0]-a[0])*f, a[1] + (b[1]-a[1])*f})
		}
		out = append(out, b)
	}
	return out
}
