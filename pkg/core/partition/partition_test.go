package partition

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
)

var primitives = []Primitive{Delaunay{}, Fortune{}}

// cellPoints returns the sorted coordinates of a cell's region vertices.
func cellPoints(p *Partition, site int) []orb.Point {
	var out []orb.Point
	for _, id := range p.Cells[site] {
		out = append(out, p.Vertices[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

func approxPoints(t *testing.T, want, got []orb.Point) {
	t.Helper()
	opt := cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Errorf("vertices mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionSquareWithCenter(t *testing.T) {
	sites := []orb.Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}}

	for _, prim := range primitives {
		t.Run(prim.Name(), func(t *testing.T) {
			p := New(prim, nil).Partition(sites)
			if p.Degenerate {
				t.Fatal("unexpected degenerate partition")
			}
			if p.Backend != prim.Name() {
				t.Errorf("Backend = %q, want %q", p.Backend, prim.Name())
			}

			approxPoints(t, []orb.Point{{0, 1}, {1, 0}, {1, 2}, {2, 1}}, cellPoints(p, 4))
			approxPoints(t, []orb.Point{{0, 1}, {1, 0}}, cellPoints(p, 0))
			approxPoints(t, []orb.Point{{1, 2}, {2, 1}}, cellPoints(p, 2))

			for i, c := range p.Cells {
				for _, id := range c {
					if id == Unbounded {
						t.Errorf("cell %d exposes the Unbounded marker", i)
					}
				}
			}
		})
	}
}

func TestPartitionCocircularSitesShareVertex(t *testing.T) {
	sites := []orb.Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}}

	for _, prim := range primitives {
		t.Run(prim.Name(), func(t *testing.T) {
			p := New(prim, nil).Partition(sites)
			if len(p.Vertices) != 1 {
				t.Fatalf("Vertices = %v, want the single center", p.Vertices)
			}
			approxPoints(t, []orb.Point{{1, 1}}, p.Vertices)
			for i := range sites {
				if diff := cmp.Diff(VertexSet{0}, p.Cells[i]); diff != "" {
					t.Errorf("cell %d mismatch (-want +got):\n%s", i, diff)
				}
			}
		})
	}
}

func TestPartitionDuplicateSites(t *testing.T) {
	sites := []orb.Point{{0, 0}, {2, 0}, {1, 1}, {2, 2}, {0, 2}, {1, 1}}

	for _, prim := range primitives {
		t.Run(prim.Name(), func(t *testing.T) {
			p := New(prim, nil).Partition(sites)
			if len(p.Cells) != len(sites) {
				t.Fatalf("Cells = %d, want %d", len(p.Cells), len(sites))
			}
			if len(p.Cells[2]) != 4 {
				t.Errorf("center cell = %v, want 4 vertices", p.Cells[2])
			}
			if diff := cmp.Diff(p.Cells[2], p.Cells[5]); diff != "" {
				t.Errorf("duplicate site cell differs (-first +second):\n%s", diff)
			}
		})
	}
}

func TestPartitionDegenerate(t *testing.T) {
	tests := []struct {
		name  string
		sites []orb.Point
	}{
		{"empty", nil},
		{"one site", []orb.Point{{1, 1}}},
		{"two sites", []orb.Point{{0, 0}, {1, 1}}},
		{"three coincident", []orb.Point{{1, 1}, {1, 1}, {1, 1}}},
		{"collinear", []orb.Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}}},
		{"two distinct with duplicates", []orb.Point{{0, 0}, {0, 0}, {5, 5}, {5, 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(Delaunay{}, nil).Partition(tt.sites)
			if !p.Degenerate {
				t.Error("Degenerate = false, want true")
			}
			if len(p.Cells) != len(tt.sites) {
				t.Fatalf("Cells = %d, want %d", len(p.Cells), len(tt.sites))
			}
			for i, c := range p.Cells {
				if c == nil || len(c) != 0 {
					t.Errorf("cell %d = %#v, want empty set", i, c)
				}
			}
		})
	}
}

type failingPrimitive struct{ panics bool }

func (failingPrimitive) Name() string { return "failing" }

func (f failingPrimitive) Diagram([]orb.Point) (*Diagram, error) {
	if f.panics {
		panic("boom")
	}
	return nil, errors.New("boom")
}

type shortPrimitive struct{}

func (shortPrimitive) Name() string { return "short" }

func (shortPrimitive) Diagram([]orb.Point) (*Diagram, error) {
	return &Diagram{Cells: [][]int{{0}}, Vertices: []orb.Point{{0, 0}}}, nil
}

func TestPartitionRecoversPrimitiveFailure(t *testing.T) {
	sites := []orb.Point{{0, 0}, {2, 0}, {1, 2}}

	for _, prim := range []Primitive{failingPrimitive{}, failingPrimitive{panics: true}, shortPrimitive{}} {
		p := New(prim, nil).Partition(sites)
		if !p.Degenerate {
			t.Errorf("%T: Degenerate = false, want true", prim)
		}
		if len(p.Cells) != 3 {
			t.Errorf("%T: Cells = %d, want 3", prim, len(p.Cells))
		}
		data, err := json.Marshal(p.Cells)
		if err != nil {
			t.Fatalf("%T: marshal cells: %v", prim, err)
		}
		if got := string(data); got != "[[],[],[]]" {
			t.Errorf("%T: cells encode as %s, want [[],[],[]]", prim, got)
		}
	}
}

func TestLookup(t *testing.T) {
	for _, name := range append(Backends(), "") {
		if _, err := Lookup(name); err != nil {
			t.Errorf("Lookup(%q) error: %v", name, err)
		}
	}
	p, _ := Lookup("")
	if p.Name() != DefaultBackend {
		t.Errorf("Lookup(\"\") = %s, want %s", p.Name(), DefaultBackend)
	}
	if _, err := Lookup("qhull"); err == nil {
		t.Error("Lookup(qhull) should fail")
	}
}

func TestVertexSet(t *testing.T) {
	s := NewVertexSet(5, 1, 3, 1, 5)
	if diff := cmp.Diff(VertexSet{1, 3, 5}, s); diff != "" {
		t.Errorf("NewVertexSet mismatch (-want +got):\n%s", diff)
	}
	if !s.Contains(3) || s.Contains(2) {
		t.Error("Contains gave a wrong answer")
	}

	u := Union(VertexSet{1, 4}, VertexSet{}, VertexSet{2, 4, 9})
	if diff := cmp.Diff(VertexSet{1, 2, 4, 9}, u); diff != "" {
		t.Errorf("Union mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		a, b VertexSet
		want bool
	}{
		{VertexSet{1, 3, 5}, VertexSet{2, 4, 5}, true},
		{VertexSet{1, 3, 5}, VertexSet{0, 2, 4, 6}, false},
		{VertexSet{}, VertexSet{1}, false},
		{nil, nil, false},
	}
	for _, tt := range tests {
		if got := tt.a.Intersects(tt.b); got != tt.want {
			t.Errorf("%v.Intersects(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := tt.b.Intersects(tt.a); got != tt.want {
			t.Errorf("Intersects is not symmetric for %v, %v", tt.a, tt.b)
		}
	}
}
