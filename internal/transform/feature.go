package transform

type GeometryKind string

const (
	Point      GeometryKind = "Point"
	LineString GeometryKind = "LineString"
)

// Position is a renderer-order coordinate: longitude first.
type Position [2]float64

// LonLat swaps the log's (lat, lon) order into renderer order.
func LonLat(lat, lon float64) Position { return Position{lon, lat} }

func (p Position) Lon() float64 { return p[0] }
func (p Position) Lat() float64 { return p[1] }

// Feature is one renderable object. Kind selects the variant: a Point has one
// coordinate and a Marker style, a LineString has two or more coordinates and
// a Line style.
type Feature struct {
	Kind   GeometryKind
	Coords []Position
	Step   int
	Time   string
	Class  string
	Marker MarkerStyle
	Line   LineStyle
	Popup  string
}
