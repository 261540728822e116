// Package io reads geometry collections and writes analysis results.
//
// # Overview
//
// An analysis takes three ordered geometry collections. The position of a
// geometry in its collection is the index reported in the adjacency mapping,
// so every reader here preserves input order and keeps a nil slot for
// entries that carry no geometry.
//
// # Input Formats
//
// GeoJSON is read with [ReadGeoJSON]. The document may be a FeatureCollection,
// a single Feature, or a bare geometry object:
//
//	{
//	  "type": "FeatureCollection",
//	  "features": [
//	    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [0, 0]}},
//	    {"type": "Feature", "geometry": null}
//	  ]
//	}
//
// The second feature above becomes a nil slot at index 1.
//
// WKT is read with [ReadWKT], one geometry per line. Blank lines and lines
// starting with '#' are skipped and do not take an index.
//
// [ImportGeometries] picks the format from the file extension:
//
//   - .geojson, .json: GeoJSON
//   - .wkt, .txt: WKT
//
// # Output
//
// [WriteJSON] writes any result value as indented JSON. [WriteLinks] writes
// adjacency links as a GeoJSON FeatureCollection of LineStrings, each
// feature carrying "source" and "target" index properties.
package io
