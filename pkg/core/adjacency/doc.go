// Package adjacency decides which source geometries are adjacent to which
// target geometries by partitioning the plane around their vertices.
//
// # Overview
//
// Every vertex of every input geometry becomes a site of a Voronoi diagram.
// A source and a target are adjacent when a region vertex of the diagram is
// shared by a cell of each, meaning nothing else lies between them at that
// point. Obstacle geometries add sites too: an obstacle placed between a
// source and a target claims the space between them and breaks the
// adjacency, but obstacles never appear in the result.
//
// # Pipeline
//
// [Engine.Analyze] runs four stages in order:
//
//  1. Normalize: clip to the bounding box, optionally densify boundaries
//  2. Index: number every vertex with its owning role and geometry
//  3. Partition: compute per-site Voronoi cell vertex sets
//  4. Resolve: intersect per-geometry vertex sets, apply the distance cutoff
//
// Each stage lives in its own package under pkg/core and can be used alone.
//
// # Modes
//
// When targets are supplied, every source is tested against every target.
// When the target list is empty, sources are tested against each other and
// every relation is recorded in both directions.
//
// # Usage
//
//	eng, err := adjacency.New(adjacency.Config{DensifyFeatures: true})
//	if err != nil {
//	    return err
//	}
//	res, err := eng.Analyze(adjacency.Input{Sources: parcels, Targets: roads})
//	if err != nil {
//	    return err
//	}
//	for src, targets := range res.Mapping() {
//	    fmt.Println(src, targets)
//	}
//
// # Configuration
//
// [Config] is validated by [New]: a bounding box must have positive width
// and height, max_segment_length must be positive and requires
// densify_features, and max_distance must not be negative. A geometry set
// too small or too regular for a partition is not an error and yields an
// empty mapping.
package adjacency
