package plot

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgsvg"

	"github.com/matzehuels/geoadjacency/pkg/core/adjacency"
	"github.com/matzehuels/geoadjacency/pkg/core/geom"
	"github.com/matzehuels/geoadjacency/pkg/render"
)

// Output formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

const (
	// DefaultSize is the default plot width and height in points.
	DefaultSize = 600.0

	// vertexMargin is the fraction of the data extent around the
	// geometries within which region vertices are drawn.
	vertexMargin = 0.1
)

// Options configures a plot.
type Options struct {
	Title  string
	Width  float64 // points
	Height float64 // points
	// HideVertices leaves out the partition vertices.
	HideVertices bool
}

type style struct {
	fill color.Color
	line color.Color
}

var roleStyles = map[geom.Role]style{
	geom.Source:   {fill: color.NRGBA{R: 0x9e, G: 0xca, B: 0xe1, A: 0xb0}, line: color.NRGBA{R: 0x31, G: 0x82, B: 0xbd, A: 0xff}},
	geom.Target:   {fill: color.NRGBA{R: 0xfd, G: 0xae, B: 0x6b, A: 0xb0}, line: color.NRGBA{R: 0xe6, G: 0x55, B: 0x0d, A: 0xff}},
	geom.Obstacle: {fill: color.NRGBA{R: 0xbd, G: 0xbd, B: 0xbd, A: 0xb0}, line: color.NRGBA{R: 0x63, G: 0x63, B: 0x63, A: 0xff}},
}

var (
	vertexColor = color.NRGBA{R: 0x54, G: 0x27, B: 0x8f, A: 0xff}
	linkColor   = color.NRGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// New builds the plot of an analysis.
func New(a *adjacency.Analysis, opts Options) (*plot.Plot, error) {
	art := a.Artifacts()

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Legend.Top = true

	var bound orb.Bound
	hasBound := false
	for _, l := range art.Originals {
		var legend plot.Thumbnailer
		for i, g := range l.Geometries {
			if g == nil {
				continue
			}
			ps, err := geometry(g, roleStyles[l.Role])
			if err != nil {
				return nil, fmt.Errorf("%s %d: %w", l.Role, i, err)
			}
			p.Add(ps...)
			if legend == nil && len(ps) > 0 {
				legend, _ = ps[0].(plot.Thumbnailer)
			}
			if hasBound {
				bound = bound.Union(g.Bound())
			} else {
				bound, hasBound = g.Bound(), true
			}
		}
		if legend != nil {
			p.Legend.Add(l.Role.String()+"s", legend)
		}
	}

	if !opts.HideVertices && hasBound {
		sc, err := vertices(art.Vertices, bound)
		if err != nil {
			return nil, err
		}
		if sc != nil {
			p.Add(sc)
			p.Legend.Add("region vertices", sc)
		}
	}

	for i, l := range render.Links(a) {
		line, err := plotter.NewLine(plotter.XYs{
			{X: l.From[0], Y: l.From[1]},
			{X: l.To[0], Y: l.To[1]},
		})
		if err != nil {
			return nil, fmt.Errorf("link %d->%d: %w", l.Source, l.Target, err)
		}
		line.Color = linkColor
		line.Width = vg.Points(1.5)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		if i == 0 {
			p.Legend.Add("links", line)
		}
	}

	return p, nil
}

// Render draws the analysis in the given format.
func Render(a *adjacency.Analysis, format string, opts Options) ([]byte, error) {
	if format != FormatPNG && format != FormatSVG {
		return nil, fmt.Errorf("unsupported plot format: %s", format)
	}
	p, err := New(a, opts)
	if err != nil {
		return nil, err
	}

	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = DefaultSize
	}
	if h <= 0 {
		h = DefaultSize
	}
	wt, err := p.WriterTo(vg.Points(w), vg.Points(h), format)
	if err != nil {
		return nil, fmt.Errorf("create %s canvas: %w", format, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

func geometry(g orb.Geometry, st style) ([]plot.Plotter, error) {
	switch g := g.(type) {
	case orb.Point:
		return points([]orb.Point{g}, st)
	case orb.MultiPoint:
		return points(g, st)
	case orb.LineString:
		return lines([]orb.LineString{g}, st)
	case orb.MultiLineString:
		return lines(g, st)
	case orb.Ring:
		return polygons([]orb.Polygon{{g}}, st)
	case orb.Polygon:
		return polygons([]orb.Polygon{g}, st)
	case orb.MultiPolygon:
		return polygons(g, st)
	case orb.Bound:
		return polygons([]orb.Polygon{g.ToPolygon()}, st)
	case orb.Collection:
		var out []plot.Plotter
		for _, c := range g {
			ps, err := geometry(c, st)
			if err != nil {
				return nil, err
			}
			out = append(out, ps...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot plot %s", g.GeoJSONType())
}

func xys(pts []orb.Point) plotter.XYs {
	out := make(plotter.XYs, len(pts))
	for i, p := range pts {
		out[i] = plotter.XY{X: p[0], Y: p[1]}
	}
	return out
}

func points(pts []orb.Point, st style) ([]plot.Plotter, error) {
	sc, err := plotter.NewScatter(xys(pts))
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = st.line
	sc.GlyphStyle.Radius = vg.Points(3)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	return []plot.Plotter{sc}, nil
}

func lines(ls []orb.LineString, st style) ([]plot.Plotter, error) {
	out := make([]plot.Plotter, 0, len(ls))
	for _, l := range ls {
		line, err := plotter.NewLine(xys(l))
		if err != nil {
			return nil, err
		}
		line.Color = st.line
		line.Width = vg.Points(2)
		out = append(out, line)
	}
	return out, nil
}

func polygons(ps []orb.Polygon, st style) ([]plot.Plotter, error) {
	out := make([]plot.Plotter, 0, len(ps))
	for _, p := range ps {
		rings := make([]plotter.XYer, len(p))
		for i, r := range p {
			rings[i] = xys(r)
		}
		poly, err := plotter.NewPolygon(rings...)
		if err != nil {
			return nil, err
		}
		poly.Color = st.fill
		poly.LineStyle.Color = st.line
		poly.LineStyle.Width = vg.Points(1)
		out = append(out, poly)
	}
	return out, nil
}

// vertices returns a scatter of the finite region vertices near bound, or
// nil when there are none.
func vertices(vs []orb.Point, bound orb.Bound) (*plotter.Scatter, error) {
	extent := math.Max(bound.Right()-bound.Left(), bound.Top()-bound.Bottom())
	area := bound.Pad(math.Max(extent*vertexMargin, 1e-9))

	var near []orb.Point
	for _, v := range vs {
		if !math.IsNaN(v[0]) && !math.IsInf(v[0], 0) && area.Contains(v) {
			near = append(near, v)
		}
	}
	if len(near) == 0 {
		return nil, nil
	}
	sc, err := plotter.NewScatter(xys(near))
	if err != nil {
		return nil, fmt.Errorf("region vertices: %w", err)
	}
	sc.GlyphStyle.Color = vertexColor
	sc.GlyphStyle.Radius = vg.Points(1.5)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	return sc, nil
}
