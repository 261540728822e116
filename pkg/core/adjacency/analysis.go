package adjacency

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/geoadjacency/pkg/core/geom"
	"github.com/matzehuels/geoadjacency/pkg/core/index"
	"github.com/matzehuels/geoadjacency/pkg/core/partition"
	"github.com/matzehuels/geoadjacency/pkg/core/resolve"
)

// Analysis is the read-only result of [Engine.Analyze].
type Analysis struct {
	mapping   resolve.Mapping
	artifacts *Artifacts
}

// Mapping returns the adjacency mapping: source index to the sorted indices
// of adjacent targets, or of adjacent sources in source-source mode. Sources
// without neighbors are omitted.
func (a *Analysis) Mapping() resolve.Mapping { return a.mapping }

// Artifacts returns the intermediate data needed to draw the analysis.
func (a *Analysis) Artifacts() *Artifacts { return a.artifacts }

// Artifacts exposes the stages behind an analysis for presentation. None of
// it should be modified.
type Artifacts struct {
	// Sites lists every partition site with its owning role and geometry.
	Sites []index.Site `json:"sites"`
	// Cells holds the region vertex ids of each site, by site id.
	Cells []partition.VertexSet `json:"cells"`
	// Vertices holds region vertex coordinates by id.
	Vertices []orb.Point `json:"vertices"`
	// Sets holds the vertex set union of each geometry slot.
	Sets resolve.Sets `json:"-"`
	// Layers are the geometries the partition was built from.
	Layers []geom.Layer `json:"-"`
	// Originals are the clipped geometries before densification.
	Originals []geom.Layer `json:"-"`
	// Interval is the densification interval, 0 when none was applied.
	Interval float64 `json:"interval"`
	// Degenerate is set when no partition could be built.
	Degenerate bool   `json:"degenerate"`
	Backend    string `json:"backend"`
	Mode       Mode   `json:"mode"`
}

// Geometry returns the normalized geometry of a role slot, or nil.
func (a *Artifacts) Geometry(role geom.Role, i int) orb.Geometry {
	return slot(a.Layers, role, i)
}

// Original returns the clipped, undensified geometry of a role slot, or nil.
func (a *Artifacts) Original(role geom.Role, i int) orb.Geometry {
	return slot(a.Originals, role, i)
}

func slot(layers []geom.Layer, role geom.Role, i int) orb.Geometry {
	for _, l := range layers {
		if l.Role == role && i >= 0 && i < l.Len() {
			return l.Geometries[i]
		}
	}
	return nil
}
