package partition

import (
	"fmt"

	"github.com/fogleman/delaunay"
	"github.com/paulmach/orb"
)

// Delaunay builds the diagram as the dual of a Delaunay triangulation.
//
// Each triangle contributes its circumcenter as a region vertex. Sites on the
// convex hull own an unbounded cell and get the [Unbounded] marker.
type Delaunay struct{}

// Name implements [Primitive].
func (Delaunay) Name() string { return "delaunay" }

// Diagram implements [Primitive].
func (Delaunay) Diagram(sites []orb.Point) (*Diagram, error) {
	pts := make([]delaunay.Point, len(sites))
	for i, s := range sites {
		pts[i] = delaunay.Point{X: s[0], Y: s[1]}
	}

	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		return nil, fmt.Errorf("triangulate: %w", err)
	}

	nt := len(tri.Triangles) / 3
	d := &Diagram{
		Cells:    make([][]int, len(sites)),
		Vertices: make([]orb.Point, nt),
	}
	for t := 0; t < nt; t++ {
		a := tri.Points[tri.Triangles[3*t]]
		b := tri.Points[tri.Triangles[3*t+1]]
		c := tri.Points[tri.Triangles[3*t+2]]
		d.Vertices[t] = circumcenter(a, b, c)
	}

	for e, s := range tri.Triangles {
		d.Cells[s] = append(d.Cells[s], e/3)
		if tri.Halfedges[e] == -1 {
			// Hull edge: both endpoints have an infinite boundary.
			d.Cells[s] = append(d.Cells[s], Unbounded)
			next := tri.Triangles[nextHalfedge(e)]
			d.Cells[next] = append(d.Cells[next], Unbounded)
		}
	}
	return d, nil
}

func nextHalfedge(e int) int {
	if e%3 == 2 {
		return e - 2
	}
	return e + 1
}

func circumcenter(a, b, c delaunay.Point) orb.Point {
	bx, by := b.X-a.X, b.Y-a.Y
	cx, cy := c.X-a.X, c.Y-a.Y
	d := 2 * (bx*cy - by*cx)
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	return orb.Point{
		a.X + (cy*b2-by*c2)/d,
		a.Y + (bx*c2-cx*b2)/d,
	}
}
