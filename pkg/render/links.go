package render

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/geoadjacency/pkg/core/adjacency"
	"github.com/matzehuels/geoadjacency/pkg/core/geom"
)

// Link is one adjacent pair placed in the plane.
type Link struct {
	Source int `json:"source"`
	Target int `json:"target"`
	// From is the point of the target closest to To.
	From orb.Point `json:"from"`
	// To is the centroid of the source.
	To orb.Point `json:"to"`
}

// TargetRole returns the role the mapping values index into: sources in
// source-source mode, targets otherwise.
func TargetRole(a *adjacency.Analysis) geom.Role {
	if a.Artifacts().Mode == adjacency.ModeSourceSource {
		return geom.Source
	}
	return geom.Target
}

// Links places every pair of the mapping, in pair order. Distances are
// measured on the clipped geometries before densification.
func Links(a *adjacency.Analysis) []Link {
	art := a.Artifacts()
	role := TargetRole(a)

	pairs := a.Mapping().Pairs()
	out := make([]Link, 0, len(pairs))
	for _, p := range pairs {
		src := art.Original(geom.Source, p.Source)
		dst := art.Original(role, p.Target)
		if src == nil || dst == nil {
			continue
		}
		c := geom.Centroid(src)
		out = append(out, Link{
			Source: p.Source,
			Target: p.Target,
			From:   geom.ClosestPoint(dst, c),
			To:     c,
		})
	}
	return out
}
