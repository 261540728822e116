package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	geojson "github.com/paulmach/go.geojson"

	"github.com/matzehuels/geoadjacency/pkg/render"
)

// WriteJSON encodes v as indented JSON and writes it to w.
func WriteJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes v as JSON to a file at path.
func ExportJSON(v any, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(v, f)
}

// MarshalLinks encodes links as a GeoJSON FeatureCollection of LineStrings
// running from the nearest point on the target to the source centroid.
func MarshalLinks(links []render.Link) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, l := range links {
		f := geojson.NewLineStringFeature([][]float64{
			{l.From[0], l.From[1]},
			{l.To[0], l.To[1]},
		})
		f.SetProperty("source", l.Source)
		f.SetProperty("target", l.Target)
		fc.AddFeature(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode links: %w", err)
	}
	return data, nil
}

// WriteLinks writes [MarshalLinks] output to w.
func WriteLinks(links []render.Link, w io.Writer) error {
	data, err := MarshalLinks(links)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
