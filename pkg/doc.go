// Package pkg provides the libraries behind geoadjacency.
//
// # Overview
//
// Geoadjacency decides which source geometries border which target
// geometries. Every vertex of every input becomes a site of a Voronoi
// diagram, and two geometries are adjacent when their cells share a region
// vertex. The pkg directory is organized into these areas:
//
//  1. [core] - Domain logic (normalization, indexing, partition, resolution)
//  2. [cache] - Result caching (file, Redis, MongoDB)
//  3. [io] - Geometry import and result export
//  4. [render] - Presentation (DOT graphs, plots, link geometries)
//  5. [pipeline] - Orchestration (analyze → render, with caching)
//
// # Architecture
//
// The typical data flow:
//
//	GeoJSON / WKT files
//	         ↓
//	    [io] package (decode geometries)
//	         ↓
//	    [core/adjacency] package (normalize → index → partition → resolve)
//	         ↓
//	    [render] package (links, DOT, plot)
//	         ↓
//	    JSON/GeoJSON/DOT/SVG/PNG output
//
// # Quick Start
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	res, err := runner.Execute(ctx, adjacency.Input{
//	    Sources: parcels,
//	    Targets: roads,
//	}, pipeline.Options{Formats: []string{pipeline.FormatJSON}})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Mapping)
//
// [core]: https://pkg.go.dev/github.com/matzehuels/geoadjacency/pkg/core
// [cache]: https://pkg.go.dev/github.com/matzehuels/geoadjacency/pkg/cache
// [io]: https://pkg.go.dev/github.com/matzehuels/geoadjacency/pkg/io
// [render]: https://pkg.go.dev/github.com/matzehuels/geoadjacency/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/geoadjacency/pkg/pipeline
// [core/adjacency]: https://pkg.go.dev/github.com/matzehuels/geoadjacency/pkg/core/adjacency
package pkg
