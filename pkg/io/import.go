package io

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/matzehuels/geoadjacency/pkg/errors"
)

// Format names a geometry file format.
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatWKT     Format = "wkt"
)

// FormatFromPath returns the geometry format implied by the extension of path.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".wkt", ".txt":
		return FormatWKT, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported geometry file %q (want .geojson, .json, .wkt or .txt)", filepath.Base(path))
}

// ImportGeometries reads the geometry collection stored at path.
func ImportGeometries(path string) ([]orb.Geometry, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	gs, err := ReadGeometries(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return gs, nil
}

// ReadGeometries decodes a geometry collection in the given format.
func ReadGeometries(r io.Reader, format Format) ([]orb.Geometry, error) {
	switch format {
	case FormatGeoJSON:
		return ReadGeoJSON(r)
	case FormatWKT:
		return ReadWKT(r)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown geometry format %q", format)
}

// ReadGeoJSON decodes a FeatureCollection, Feature or geometry object.
// Features without a geometry keep their slot as nil.
func ReadGeoJSON(r io.Reader) ([]orb.Geometry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return DecodeGeoJSON(data)
}

// DecodeGeoJSON is [ReadGeoJSON] for an in-memory document. An empty or
// null document is an empty collection.
func DecodeGeoJSON(data []byte) ([]orb.Geometry, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode geojson")
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode feature collection")
		}
		out := make([]orb.Geometry, len(fc.Features))
		for i, f := range fc.Features {
			if out[i], err = toOrb(f.Geometry); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "feature %d", i)
			}
		}
		return out, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode feature")
		}
		g, err := toOrb(f.Geometry)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "feature")
		}
		return []orb.Geometry{g}, nil
	case "":
		return nil, errors.New(errors.ErrCodeInvalidInput, "geojson object has no type")
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode geometry")
	}
	og, err := toOrb(g)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "geometry")
	}
	return []orb.Geometry{og}, nil
}

// ReadWKT decodes one WKT geometry per line.
func ReadWKT(r io.Reader) ([]orb.Geometry, error) {
	var out []orb.Geometry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		g, err := wkt.Unmarshal(text)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "line %d", line)
		}
		out = append(out, g)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return out, nil
}

// toOrb converts a decoded geometry, rejecting positions with fewer than two
// coordinates.
func toOrb(g *geojson.Geometry) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	switch g.Type {
	case geojson.GeometryPoint:
		return point(g.Point)
	case geojson.GeometryMultiPoint:
		pts, err := points(g.MultiPoint)
		return orb.MultiPoint(pts), err
	case geojson.GeometryLineString:
		pts, err := points(g.LineString)
		return orb.LineString(pts), err
	case geojson.GeometryMultiLineString:
		out := make(orb.MultiLineString, len(g.MultiLineString))
		for i, ls := range g.MultiLineString {
			pts, err := points(ls)
			if err != nil {
				return nil, err
			}
			out[i] = pts
		}
		return out, nil
	case geojson.GeometryPolygon:
		return polygon(g.Polygon)
	case geojson.GeometryMultiPolygon:
		out := make(orb.MultiPolygon, len(g.MultiPolygon))
		for i, p := range g.MultiPolygon {
			poly, err := polygon(p)
			if err != nil {
				return nil, err
			}
			out[i] = poly
		}
		return out, nil
	case geojson.GeometryCollection:
		out := make(orb.Collection, 0, len(g.Geometries))
		for _, c := range g.Geometries {
			og, err := toOrb(c)
			if err != nil {
				return nil, err
			}
			if og != nil {
				out = append(out, og)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
}

func point(c []float64) (orb.Point, error) {
	if len(c) < 2 {
		return orb.Point{}, fmt.Errorf("position needs 2 coordinates, got %d", len(c))
	}
	return orb.Point{c[0], c[1]}, nil
}

func points(cs [][]float64) ([]orb.Point, error) {
	out := make([]orb.Point, len(cs))
	for i, c := range cs {
		p, err := point(c)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func polygon(rings [][][]float64) (orb.Polygon, error) {
	out := make(orb.Polygon, len(rings))
	for i, r := range rings {
		pts, err := points(r)
		if err != nil {
			return nil, err
		}
		out[i] = orb.Ring(pts)
	}
	return out, nil
}
