package transform

// Stamp is the time context a builder needs to place a feature.
type Stamp struct {
	Step int
	Time string
}

// EventBuilder produces the marker for one narrative event.
type EventBuilder func(at Stamp) Feature

// Marker builds a fixed-location event marker.
func Marker(class string, at Position, style MarkerStyle, popup string) EventBuilder {
	return func(s Stamp) Feature {
		return Feature{
			Kind:   Point,
			Coords: []Position{at},
			Step:   s.Step,
			Time:   s.Time,
			Class:  class,
			Marker: style,
			Popup:  popup,
		}
	}
}
