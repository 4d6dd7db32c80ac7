package transform

import (
	"encoding/json"

	geojson "github.com/paulmach/go.geojson"
)

// GeoJSON encodes the feature with the properties timeline plugins read:
// "time", "popup", and "iconstyle" (points) or "style" (lines).
func (f Feature) GeoJSON() *geojson.Feature {
	var g *geojson.Feature
	switch f.Kind {
	case LineString:
		coords := make([][]float64, len(f.Coords))
		for i, p := range f.Coords {
			coords[i] = []float64{p.Lon(), p.Lat()}
		}
		g = geojson.NewLineStringFeature(coords)
		g.SetProperty("style", map[string]any{
			"color":   f.Line.Color,
			"weight":  f.Line.Weight,
			"opacity": f.Line.Opacity,
		})
	default:
		p := f.Coords[0]
		g = geojson.NewPointFeature([]float64{p.Lon(), p.Lat()})
		style := map[string]any{
			"fillColor":   f.Marker.FillColor,
			"fillOpacity": f.Marker.FillOpacity,
			"stroke":      f.Marker.Stroke,
			"radius":      f.Marker.Radius,
		}
		if f.Marker.Stroke {
			style["color"] = f.Marker.Color
			style["weight"] = f.Marker.Weight
		}
		g.SetProperty("icon", "circle")
		g.SetProperty("iconstyle", style)
	}
	g.SetProperty("time", f.Time)
	g.SetProperty("step", f.Step)
	g.SetProperty("class", f.Class)
	g.SetProperty("popup", f.Popup)
	return g
}

func Collection(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.AddFeature(f.GeoJSON())
	}
	return fc
}

// MarshalCollection is deterministic: property maps encode with sorted keys.
func MarshalCollection(features []Feature) ([]byte, error) {
	return json.Marshal(Collection(features))
}
