// Package index assigns a dense integer id to every vertex of every geometry
// and remembers which geometry each vertex came from.
//
// Ids follow a fixed order: all Source vertices first, then Target, then
// Obstacle. Within a role, geometries appear in slot order and their vertices
// in [geom.Vertices] order. Nil slots contribute no sites but keep their
// index, so a site's Geometry field always refers to the caller's slot.
package index

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/geoadjacency/pkg/core/geom"
)

// Site is one vertex of one input geometry.
type Site struct {
	ID       int       `json:"id"`
	Point    orb.Point `json:"point"`
	Role     geom.Role `json:"role"`
	Geometry int       `json:"geometry"`
}

// Owner identifies the geometry a site belongs to.
type Owner struct {
	Role     geom.Role
	Geometry int
}

// Index is the ordered site list of an analysis.
type Index struct {
	sites  []Site
	counts map[geom.Role]int
}

// Build indexes layers. Layers are processed in role order regardless of
// their order in the slice. Coincident vertices are not collapsed.
func Build(layers []geom.Layer) *Index {
	idx := &Index{sites: []Site{}, counts: make(map[geom.Role]int, len(geom.Roles))}
	for _, role := range geom.Roles {
		for _, l := range layers {
			if l.Role != role {
				continue
			}
			for gi, g := range l.Geometries {
				for _, p := range geom.Vertices(g) {
					idx.sites = append(idx.sites, Site{
						ID:       len(idx.sites),
						Point:    p,
						Role:     role,
						Geometry: gi,
					})
					idx.counts[role]++
				}
			}
		}
	}
	return idx
}

// Len returns the number of sites.
func (x *Index) Len() int { return len(x.sites) }

// Sites returns every site in id order.
func (x *Index) Sites() []Site { return x.sites }

// Site returns the site with the given id.
func (x *Index) Site(id int) Site { return x.sites[id] }

// Points returns the site coordinates indexed by site id.
func (x *Index) Points() []orb.Point {
	out := make([]orb.Point, len(x.sites))
	for i, s := range x.sites {
		out[i] = s.Point
	}
	return out
}

// Owner returns the geometry that contributed site id.
func (x *Index) Owner(id int) Owner {
	s := x.sites[id]
	return Owner{Role: s.Role, Geometry: s.Geometry}
}

// Counts returns the number of sites per role.
func (x *Index) Counts() map[geom.Role]int {
	out := make(map[geom.Role]int, len(x.counts))
	for r, n := range x.counts {
		out[r] = n
	}
	return out
}
