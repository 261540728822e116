package partition

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/pzsz/voronoi"
)

// fortunePadding is how far, in multiples of the input extent, the clipping
// box reaches beyond the sites.
const fortunePadding = 10.0

// Fortune computes the diagram with Fortune's sweep-line algorithm.
//
// The sweep clips infinite edges to a box padded well beyond the sites.
// Region vertices lying on that box are reported as [Unbounded].
type Fortune struct{}

// Name implements [Primitive].
func (Fortune) Name() string { return "fortune" }

// Diagram implements [Primitive].
func (Fortune) Diagram(sites []orb.Point) (*Diagram, error) {
	b := orb.MultiPoint(sites).Bound()
	pad := fortunePadding*math.Max(b.Right()-b.Left(), b.Top()-b.Bottom()) + 1
	box := voronoi.NewBBox(b.Left()-pad, b.Right()+pad, b.Bottom()-pad, b.Top()+pad)

	// ComputeDiagram sorts its input in place.
	in := make([]voronoi.Vertex, len(sites))
	site := make(map[voronoi.Vertex]int, len(sites))
	for i, s := range sites {
		v := voronoi.Vertex{X: s[0], Y: s[1]}
		in[i] = v
		site[v] = i
	}

	vd := voronoi.ComputeDiagram(in, box, false)
	if vd == nil {
		return nil, fmt.Errorf("sweep produced no diagram")
	}

	d := &Diagram{Cells: make([][]int, len(sites))}
	ids := make(map[voronoi.Vertex]int)
	vertex := func(v voronoi.Vertex) int {
		if v == voronoi.NO_VERTEX || onBorder(v, box) {
			return Unbounded
		}
		id, ok := ids[v]
		if !ok {
			id = len(d.Vertices)
			ids[v] = id
			d.Vertices = append(d.Vertices, orb.Point{v.X, v.Y})
		}
		return id
	}

	for _, cell := range vd.Cells {
		i, ok := site[cell.Site]
		if !ok {
			return nil, fmt.Errorf("sweep returned unknown site (%g, %g)", cell.Site.X, cell.Site.Y)
		}
		for _, he := range cell.Halfedges {
			d.Cells[i] = append(d.Cells[i], vertex(he.GetStartpoint()), vertex(he.GetEndpoint()))
		}
	}
	return d, nil
}

func onBorder(v voronoi.Vertex, box voronoi.BBox) bool {
	return v.X <= box.Xl || v.X >= box.Xr || v.Y <= box.Yt || v.Y >= box.Yb
}
