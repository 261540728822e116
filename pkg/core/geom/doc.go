// Package geom holds the role-tagged geometry model shared by every stage of
// the adjacency pipeline.
//
// # Geometries and Roles
//
// Input geometries are plain [orb.Geometry] values. Each belongs to exactly
// one [Role]: [Source], [Target] or [Obstacle]. A [Layer] groups the
// geometries of one role in input order. The position of a geometry inside
// its layer is its identity and never changes: stages that drop a geometry
// (for example clipping) leave a nil slot instead of compacting the slice.
//
// # Vertices
//
// [Vertices] flattens any supported geometry into the ordered vertex list the
// proximity partition is built from:
//
//	geom.Vertices(orb.Point{30, 10})                       // [[30 10]]
//	geom.Vertices(orb.LineString{{30, 10}, {10, 30}})      // [[30 10] [10 30]]
//	geom.Vertices(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}) // closing vertex dropped
//
// Rings drop their closing repeat of the first vertex. Every other repeated
// coordinate is kept, since repeated vertices are distinct samples of the
// boundary.
//
// # Distance
//
// [Distance] returns the minimum planar distance between two geometries,
// zero when they touch, cross or one contains the other. It works on the
// segments and areas of the geometries, not only on their vertices.
package geom
