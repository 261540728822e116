// Package nodelink renders adjacency mappings as node-link diagrams.
//
// # Overview
//
// Every source and target that is present after clipping becomes a node.
// Sources are labeled "s<i>" and drawn as boxes, targets "t<i>" as ellipses.
// Each adjacent pair becomes an undirected edge. In source-source mode only
// source nodes exist and each related pair is drawn once.
//
// # Usage
//
//	dot := nodelink.ToDOT(analysis, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//
// Set [Options.Detailed] to add vertex counts and centroids to the labels.
package nodelink
