package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/geoadjacency/pkg/core/adjacency"
	"github.com/matzehuels/geoadjacency/pkg/core/resolve"
	"github.com/matzehuels/geoadjacency/pkg/io"
	"github.com/matzehuels/geoadjacency/pkg/render"
	"github.com/matzehuels/geoadjacency/pkg/render/nodelink"
	"github.com/matzehuels/geoadjacency/pkg/render/plot"
)

// Document is the body of the json format.
type Document struct {
	Mode       adjacency.Mode  `json:"mode"`
	Backend    string          `json:"backend"`
	Degenerate bool            `json:"degenerate"`
	Mapping    resolve.Mapping `json:"mapping"`
}

// NewDocument summarizes an analysis for the json format.
func NewDocument(a *adjacency.Analysis) Document {
	art := a.Artifacts()
	return Document{
		Mode:       art.Mode,
		Backend:    art.Backend,
		Degenerate: art.Degenerate,
		Mapping:    a.Mapping(),
	}
}

// Render generates output artifacts in the requested formats.
func Render(a *adjacency.Analysis, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	var dot string
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = json.MarshalIndent(NewDocument(a), "", "  ")
		case FormatArtifacts:
			data, err = json.MarshalIndent(a.Artifacts(), "", "  ")
		case FormatGeoJSON:
			data, err = io.MarshalLinks(render.Links(a))
		case FormatDOT, FormatSVG:
			if dot == "" {
				dot = nodelink.ToDOT(a, nodelink.Options{})
			}
			if format == FormatDOT {
				data = []byte(dot)
			} else {
				data, err = nodelink.RenderSVG(dot)
			}
		case FormatPNG:
			data, err = plot.Render(a, plot.FormatPNG, plot.Options{
				Title:  opts.Title,
				Width:  float64(opts.Width),
				Height: float64(opts.Height),
			})
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}
