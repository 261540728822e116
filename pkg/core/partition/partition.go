// Package partition computes the nearest-site partition (Voronoi diagram) of a
// point set and reports, for every site, the ids of the region vertices
// bounding its cell.
//
// # Primitives
//
// The diagram itself comes from a [Primitive]. Two are built in:
//
//   - "delaunay" derives the diagram from a Delaunay triangulation: every
//     triangle's circumcenter is a region vertex shared by its three corners.
//   - "fortune" runs Fortune's sweep-line algorithm on a box padded well
//     beyond the input.
//
// Primitives report infinite boundaries with the [Unbounded] marker.
//
// # Partitioner
//
// [Partitioner] wraps a primitive and makes its output safe to consume:
//
//   - exactly coincident sites are collapsed before the primitive runs, and
//     every copy receives the cell of its twin
//   - fewer than three distinct sites, or only collinear ones, yield empty
//     cells without calling the primitive
//   - primitive errors and panics become the same degenerate result
//   - [Unbounded] markers are removed
//   - region vertices closer than a tolerance scaled to the input extent
//     share one id, so co-circular sites agree on their common vertex
package partition

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
)

// Unbounded marks a cell boundary that extends to infinity.
const Unbounded = -1

// DefaultBackend is used when no backend is named.
const DefaultBackend = "delaunay"

// relTolerance scales the input extent into the vertex merge distance.
const relTolerance = 1e-9

// Diagram is the raw output of a [Primitive]. Cells has one entry per input
// site, in input order, holding indices into Vertices or [Unbounded].
type Diagram struct {
	Cells    [][]int
	Vertices []orb.Point
}

// Primitive computes a Voronoi diagram of distinct, non-collinear sites.
type Primitive interface {
	Name() string
	Diagram(sites []orb.Point) (*Diagram, error)
}

// Partition is the cleaned-up diagram consumed by the resolver.
type Partition struct {
	// Cells holds the region vertex ids of each site, indexed by site id.
	Cells []VertexSet
	// Vertices holds the coordinates of region vertices by id.
	Vertices []orb.Point
	// Degenerate is set when no diagram could be built.
	Degenerate bool
	// Backend names the primitive that produced the partition.
	Backend string
}

// Lookup returns the built-in primitive with the given name. An empty name
// selects [DefaultBackend].
func Lookup(name string) (Primitive, error) {
	switch strings.ToLower(name) {
	case "", DefaultBackend:
		return Delaunay{}, nil
	case "fortune":
		return Fortune{}, nil
	}
	return nil, fmt.Errorf("unknown partition backend %q (available: %s)", name, strings.Join(Backends(), ", "))
}

// Backends lists the names accepted by [Lookup].
func Backends() []string {
	return []string{"delaunay", "fortune"}
}

// Partitioner turns raw primitive output into a [Partition].
type Partitioner struct {
	Primitive Primitive
	Logger    *log.Logger
}

// New returns a Partitioner for p. A nil logger discards messages.
func New(p Primitive, logger *log.Logger) *Partitioner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Partitioner{Primitive: p, Logger: logger}
}

// Partition computes the cells of points. It never fails: inputs the
// primitive cannot handle produce a degenerate partition with empty cells.
func (p *Partitioner) Partition(points []orb.Point) *Partition {
	out := &Partition{
		Cells:    emptyCells(len(points)),
		Vertices: []orb.Point{},
		Backend:  p.Primitive.Name(),
	}

	distinct, twin := dedupe(points)
	if len(distinct) < 3 || collinear(distinct) {
		out.Degenerate = true
		p.Logger.Debug("partition skipped: degenerate site set", "sites", len(points), "distinct", len(distinct))
		return out
	}

	diag, err := p.diagram(distinct)
	if err == nil && len(diag.Cells) != len(distinct) {
		err = fmt.Errorf("%s returned %d cells for %d sites", p.Primitive.Name(), len(diag.Cells), len(distinct))
	}
	if err != nil {
		out.Degenerate = true
		p.Logger.Warn("partition failed", "backend", p.Primitive.Name(), "error", err)
		return out
	}

	remap, vertices := mergeVertices(diag.Vertices, extent(distinct)*relTolerance)
	out.Vertices = vertices

	cells := make([]VertexSet, len(distinct))
	for i, raw := range diag.Cells {
		ids := make([]int, 0, len(raw))
		for _, v := range raw {
			if v == Unbounded || v < 0 || v >= len(remap) {
				continue
			}
			ids = append(ids, remap[v])
		}
		cells[i] = NewVertexSet(ids...)
	}
	for i := range points {
		out.Cells[i] = cells[twin[i]]
	}
	return out
}

// diagram calls the primitive, converting a panic into an error.
func (p *Partitioner) diagram(sites []orb.Point) (d *Diagram, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("%s panicked: %v", p.Primitive.Name(), r)
		}
	}()
	return p.Primitive.Diagram(sites)
}

// dedupe returns the distinct points in first-seen order and, for every
// input point, the index of its distinct representative.
func emptyCells(n int) []VertexSet {
	cells := make([]VertexSet, n)
	for i := range cells {
		cells[i] = VertexSet{}
	}
	return cells
}

func dedupe(points []orb.Point) ([]orb.Point, []int) {
	seen := make(map[orb.Point]int, len(points))
	distinct := make([]orb.Point, 0, len(points))
	twin := make([]int, len(points))
	for i, pt := range points {
		j, ok := seen[pt]
		if !ok {
			j = len(distinct)
			seen[pt] = j
			distinct = append(distinct, pt)
		}
		twin[i] = j
	}
	return distinct, twin
}

func extent(points []orb.Point) float64 {
	b := orb.MultiPoint(points).Bound()
	if s := math.Max(b.Right()-b.Left(), b.Top()-b.Bottom()); s > 0 {
		return s
	}
	return 1
}

// collinear reports whether all points lie on one line, within a tolerance
// relative to the point extent.
func collinear(points []orb.Point) bool {
	a := points[0]
	far, farD := a, 0.0
	for _, p := range points[1:] {
		if d := (p[0]-a[0])*(p[0]-a[0]) + (p[1]-a[1])*(p[1]-a[1]); d > farD {
			far, farD = p, d
		}
	}
	if farD == 0 {
		return true
	}
	tol := math.Sqrt(farD) * extent(points) * relTolerance
	for _, p := range points {
		cross := (far[0]-a[0])*(p[1]-a[1]) - (far[1]-a[1])*(p[0]-a[0])
		if math.Abs(cross) > tol {
			return false
		}
	}
	return true
}

type gridKey [2]int64

// mergeVertices gives vertices within tol of each other the same id. Ids are
// assigned in input order. It returns the id of every input vertex and the
// coordinates of every id.
func mergeVertices(vertices []orb.Point, tol float64) ([]int, []orb.Point) {
	remap := make([]int, len(vertices))
	var merged []orb.Point
	grid := make(map[gridKey][]int)

	for i, v := range vertices {
		if math.IsNaN(v[0]) || math.IsNaN(v[1]) || math.IsInf(v[0], 0) || math.IsInf(v[1], 0) {
			remap[i] = Unbounded
			continue
		}
		k := gridKey{int64(math.Floor(v[0] / tol)), int64(math.Floor(v[1] / tol))}
		id, found := -1, false
		for dx := int64(-1); dx <= 1 && !found; dx++ {
			for dy := int64(-1); dy <= 1 && !found; dy++ {
				for _, c := range grid[gridKey{k[0] + dx, k[1] + dy}] {
					if math.Abs(merged[c][0]-v[0]) <= tol && math.Abs(merged[c][1]-v[1]) <= tol {
						id, found = c, true
						break
					}
				}
			}
		}
		if !found {
			id = len(merged)
			merged = append(merged, v)
			grid[k] = append(grid[k], id)
		}
		remap[i] = id
	}
	return remap, merged
}

// VertexSet is a sorted, duplicate-free set of region vertex ids.
type VertexSet []int

// NewVertexSet builds a set from ids in any order.
func NewVertexSet(ids ...int) VertexSet {
	if len(ids) == 0 {
		return VertexSet{}
	}
	s := append(VertexSet(nil), ids...)
	sort.Ints(s)
	n := 1
	for i := 1; i < len(s); i++ {
		if s[i] != s[n-1] {
			s[n] = s[i]
			n++
		}
	}
	return s[:n]
}

// Union returns the union of sets.
func Union(sets ...VertexSet) VertexSet {
	var all []int
	for _, s := range sets {
		all = append(all, s...)
	}
	return NewVertexSet(all...)
}

// Intersects reports whether s and o share an id.
func (s VertexSet) Intersects(o VertexSet) bool {
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch {
		case s[i] == o[j]:
			return true
		case s[i] < o[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Contains reports whether id is in s.
func (s VertexSet) Contains(id int) bool {
	i := sort.SearchInts(s, id)
	return i < len(s) && s[i] == id
}
