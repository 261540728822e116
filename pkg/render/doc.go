// Package render turns adjacency analyses into visual outputs.
//
// # Overview
//
// The adjacency mapping only holds indices. To draw it, [Links] pairs every
// adjacent source and target with a segment from the point of the target
// nearest to the source centroid, to the centroid itself. Both subpackages
// draw these links:
//
//   - [nodelink]: the mapping as an undirected graph in DOT, rendered to SVG
//     with Graphviz
//   - [plot]: the geometries by role, the partition vertices and the links,
//     rendered to PNG or SVG with gonum/plot
//
// [nodelink]: github.com/matzehuels/geoadjacency/pkg/render/nodelink
// [plot]: github.com/matzehuels/geoadjacency/pkg/render/plot
package render
