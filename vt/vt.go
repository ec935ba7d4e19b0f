// Package vt decodes vector tile payloads into per-layer features whose
// geometry is expressed in normalized mercator coordinates.
package vt

import (
	"bytes"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"globe/tile"
)

//DefaultExtent layer extent assumed when a layer omits it
const DefaultExtent = 4096

// Geometry type names used by Mapbox Vector Tile 2.1.
const (
	Unknown    = "Unknown"
	Point      = "Point"
	LineString = "LineString"
	Polygon    = "Polygon"
)

var gzipMagic = []byte{0x1f, 0x8b}

//Feature one decoded feature. Geometry holds one line per MoveTo: a single
//point for points, a path for lines, a ring for polygons.
type Feature struct {
	ID         interface{}
	Type       string
	Properties map[string]interface{}
	Geometry   []orb.LineString
}

//Layer decoded layer
type Layer struct {
	Name     string
	Version  uint32
	Extent   uint32
	Features []Feature
}

//Layers decoded layers by name
type Layers map[string]*Layer

//DecodeError malformed tile payload
type DecodeError struct {
	Tile tile.ID
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode tile %v: %v", e.Tile, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

//Decode parses a (possibly gzipped) vector tile for id. An empty payload is
//a valid tile without layers.
func Decode(id tile.ID, data []byte) (Layers, error) {
	out := make(Layers)
	if len(data) == 0 {
		return out, nil
	}

	var (
		layers mvt.Layers
		err    error
	)
	if bytes.HasPrefix(data, gzipMagic) {
		layers, err = mvt.UnmarshalGzipped(data)
	} else {
		layers, err = mvt.Unmarshal(data)
	}
	if err != nil {
		return nil, &DecodeError{Tile: id, Err: err}
	}

	for _, l := range layers {
		extent := l.Extent
		if extent == 0 {
			extent = DefaultExtent
		}
		toMercator := localToMercator(id, extent)
		layer := &Layer{
			Name:     l.Name,
			Version:  l.Version,
			Extent:   extent,
			Features: make([]Feature, 0, len(l.Features)),
		}
		for _, f := range l.Features {
			layer.Features = append(layer.Features, decodeFeature(f, toMercator))
		}
		out[l.Name] = layer
	}
	return out, nil
}

// localToMercator maps tile-local integer coordinates in [0, extent] to the
// [0,1]² mercator plane.
func localToMercator(id tile.ID, extent uint32) orb.Projection {
	scale := 1 / (float64(extent) * float64(uint64(1)<<id.Zoom()))
	ox := float64(id.X) * float64(extent)
	oy := float64(id.Y) * float64(extent)
	return func(p orb.Point) orb.Point {
		return orb.Point{(p[0] + ox) * scale, (p[1] + oy) * scale}
	}
}

func decodeFeature(f *geojson.Feature, toMercator orb.Projection) Feature {
	out := Feature{ID: f.ID, Type: Unknown, Properties: map[string]interface{}(f.Properties)}
	if f.Geometry == nil {
		return out
	}

	switch g := project.Geometry(f.Geometry, toMercator).(type) {
	case orb.Point:
		out.Type = Point
		out.Geometry = []orb.LineString{{g}}
	case orb.MultiPoint:
		out.Type = Point
		for _, p := range g {
			out.Geometry = append(out.Geometry, orb.LineString{p})
		}
	case orb.LineString:
		out.Type = LineString
		out.Geometry = []orb.LineString{g}
	case orb.MultiLineString:
		out.Type = LineString
		out.Geometry = append(out.Geometry, g...)
	case orb.Polygon:
		out.Type = Polygon
		out.Geometry = rings(nil, g)
	case orb.MultiPolygon:
		out.Type = Polygon
		for _, p := range g {
			out.Geometry = rings(out.Geometry, p)
		}
	}
	return out
}

func rings(dst []orb.LineString, p orb.Polygon) []orb.LineString {
	for _, r := range p {
		dst = append(dst, orb.LineString(r))
	}
	return dst
}
