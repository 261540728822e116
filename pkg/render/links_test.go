package render

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"

	"github.com/matzehuels/geoadjacency/pkg/core/adjacency"
	"github.com/matzehuels/geoadjacency/pkg/core/geom"
)

func box(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}, {x0, y0}}}
}

func analyze(t *testing.T, in adjacency.Input) *adjacency.Analysis {
	t.Helper()
	eng, err := adjacency.New(adjacency.Config{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	a, err := eng.Analyze(in)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	return a
}

func TestLinks_SourceTarget(t *testing.T) {
	a := analyze(t, adjacency.Input{
		Sources: []orb.Geometry{box(0, 0, 1, 1)},
		Targets: []orb.Geometry{box(3, 0, 4, 1)},
	})

	got := Links(a)
	want := []Link{{Source: 0, Target: 0, From: orb.Point{3, 0.5}, To: orb.Point{0.5, 0.5}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Links() mismatch (-want +got):\n%s", diff)
	}
	if r := TargetRole(a); r != geom.Target {
		t.Errorf("TargetRole() = %v, want target", r)
	}
}

func TestLinks_SourceSource(t *testing.T) {
	a := analyze(t, adjacency.Input{
		Sources: []orb.Geometry{box(0, 0, 1, 1), box(1, 0, 2, 1)},
	})

	got := Links(a)
	want := []Link{
		{Source: 0, Target: 1, From: orb.Point{1, 0.5}, To: orb.Point{0.5, 0.5}},
		{Source: 1, Target: 0, From: orb.Point{1, 0.5}, To: orb.Point{1.5, 0.5}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Links() mismatch (-want +got):\n%s", diff)
	}
	if r := TargetRole(a); r != geom.Source {
		t.Errorf("TargetRole() = %v, want source", r)
	}
}

func TestLinks_Empty(t *testing.T) {
	a := analyze(t, adjacency.Input{
		Sources:   []orb.Geometry{box(0, 0, 1, 1)},
		Targets:   []orb.Geometry{box(3, 0, 4, 1)},
		Obstacles: []orb.Geometry{box(1.5, 0, 2.5, 1)},
	})
	if got := Links(a); len(got) != 0 {
		t.Errorf("Links() = %v, want none", got)
	}
}
