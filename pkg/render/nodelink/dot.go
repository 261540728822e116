package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/paulmach/orb"

	"github.com/matzehuels/geoadjacency/pkg/core/adjacency"
	"github.com/matzehuels/geoadjacency/pkg/core/geom"
	"github.com/matzehuels/geoadjacency/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the vertex count and centroid to node labels.
	Detailed bool
}

// NodeID returns the DOT node id of a geometry slot.
func NodeID(role geom.Role, i int) string {
	return fmt.Sprintf("%c%d", role.String()[0], i)
}

// ToDOT converts an analysis to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
func ToDOT(a *adjacency.Analysis, opts Options) string {
	art := a.Artifacts()
	role := render.TargetRole(a)

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fontsize=14];\n")
	buf.WriteString("\n")

	writeNodes(&buf, art, geom.Source, opts)
	if role == geom.Target {
		writeNodes(&buf, art, geom.Target, opts)
	}

	buf.WriteString("\n")
	for _, p := range a.Mapping().Pairs() {
		if role == geom.Source && p.Target < p.Source {
			continue
		}
		fmt.Fprintf(&buf, "  %q -- %q;\n", NodeID(geom.Source, p.Source), NodeID(role, p.Target))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeNodes(buf *bytes.Buffer, art *adjacency.Artifacts, role geom.Role, opts Options) {
	for _, l := range art.Layers {
		if l.Role != role {
			continue
		}
		for i, g := range l.Geometries {
			if g == nil {
				continue
			}
			id := NodeID(role, i)
			label := fmtLabel(id, art.Original(role, i), opts.Detailed)
			fmt.Fprintf(buf, "  %q [%s];\n", id, strings.Join(fmtAttrs(role, label), ", "))
		}
	}
}

func fmtLabel(id string, g orb.Geometry, detailed bool) string {
	if !detailed || g == nil {
		return id
	}
	c := geom.Centroid(g)
	return fmt.Sprintf("%s\nvertices: %d\ncentroid: %.4g, %.4g", id, len(geom.Vertices(g)), c[0], c[1])
}

func fmtAttrs(role geom.Role, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if role == geom.Source {
		attrs = append(attrs, "shape=box", "fillcolor=\"#9ecae1\"")
	} else {
		attrs = append(attrs, "shape=ellipse", "fillcolor=\"#fdae6b\"")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz root element with one whose
// viewBox starts at the origin and whose size matches it.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
