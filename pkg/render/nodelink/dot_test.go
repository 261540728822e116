package nodelink

import (
	"regexp"
	"strings"
	"testing"

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

func TestToDOT_SourceTarget(t *testing.T) {
	a := analyze(t, adjacency.Input{
		Sources: []orb.Geometry{box(0, 0, 1, 1)},
		Targets: []orb.Geometry{box(3, 0, 4, 1)},
	})

	dot := ToDOT(a, Options{})

	if !strings.Contains(dot, "graph G") {
		t.Error("ToDOT() output missing graph declaration")
	}
	if !strings.Contains(dot, `"s0" [label="s0", shape=box`) {
		t.Error("ToDOT() output missing source node")
	}
	if !strings.Contains(dot, `"t0" [label="t0", shape=ellipse`) {
		t.Error("ToDOT() output missing target node")
	}
	if !targetNode.MatchString(dot) {
		t.Error("ToDOT() target node pattern does not match")
	}
	if !strings.Contains(dot, `"s0" -- "t0"`) {
		t.Error("ToDOT() output missing edge")
	}
}

func TestToDOT_Blocked(t *testing.T) {
	a := analyze(t, adjacency.Input{
		Sources:   []orb.Geometry{box(0, 0, 1, 1)},
		Targets:   []orb.Geometry{box(3, 0, 4, 1)},
		Obstacles: []orb.Geometry{box(1.5, 0, 2.5, 1)},
	})

	dot := ToDOT(a, Options{})

	if strings.Contains(dot, "--") {
		t.Errorf("ToDOT() blocked pair has an edge:\n%s", dot)
	}
	if strings.Contains(dot, `"o0"`) {
		t.Error("ToDOT() output contains an obstacle node")
	}
}

var targetNode = regexp.MustCompile(`"t\d+"`)

func TestToDOT_SourceSourceEdgesOnce(t *testing.T) {
	a := analyze(t, adjacency.Input{
		Sources: []orb.Geometry{box(0, 0, 1, 1), box(1, 0, 2, 1)},
	})

	dot := ToDOT(a, Options{})

	if !strings.Contains(dot, `"s0" -- "s1"`) {
		t.Error("ToDOT() output missing edge")
	}
	if strings.Contains(dot, `"s1" -- "s0"`) {
		t.Error("ToDOT() output repeats the reverse edge")
	}
	if targetNode.MatchString(dot) {
		t.Errorf("ToDOT() source-source output has target nodes:\n%s", dot)
	}
}

func TestToDOT_Detailed(t *testing.T) {
	a := analyze(t, adjacency.Input{
		Sources: []orb.Geometry{box(0, 0, 2, 2)},
		Targets: []orb.Geometry{box(4, 0, 6, 2)},
	})

	dot := ToDOT(a, Options{Detailed: true})

	if !strings.Contains(dot, `vertices: 4`) {
		t.Error("ToDOT() detailed output missing vertex count")
	}
	if !strings.Contains(dot, `centroid: 1, 1`) {
		t.Error("ToDOT() detailed output missing centroid")
	}
}

func TestNodeID(t *testing.T) {
	if got := NodeID(geom.Source, 3); got != "s3" {
		t.Errorf("NodeID(source, 3) = %q, want %q", got, "s3")
	}
	if got := NodeID(geom.Target, 0); got != "t0" {
		t.Errorf("NodeID(target, 0) = %q, want %q", got, "t0")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))

	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 62.00 116.00" width="62" height="116">`
	if !strings.HasPrefix(out, want) {
		t.Errorf("normalizeViewBox() = %q, want prefix %q", out, want)
	}

	plain := []byte(`<svg><g/></svg>`)
	if got := normalizeViewBox(plain); string(got) != string(plain) {
		t.Errorf("normalizeViewBox() without viewBox changed input: %q", got)
	}
}
