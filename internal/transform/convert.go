package transform

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"meshviz/internal/simlog"
)

// ErrNoSteps is returned for an empty log; an empty animation is never
// produced silently.
var ErrNoSteps = errors.New("transform: no steps to convert")

// Stats counts what a conversion emitted and what it left out.
type Stats struct {
	Steps          int
	Dead           int
	BaseStations   int
	LowBattery     int
	NormalPhones   int
	Packets        int
	PacketsSkipped int
	HopsDropped    int
	Events         int
	EventsIgnored  int
}

func (s Stats) Nodes() int { return s.Dead + s.BaseStations + s.LowBattery + s.NormalPhones }

func (s Stats) Features() int { return s.Nodes() + s.Packets + s.Events }

func (s *Stats) add(o Stats) {
	s.Steps += o.Steps
	s.Dead += o.Dead
	s.BaseStations += o.BaseStations
	s.LowBattery += o.LowBattery
	s.NormalPhones += o.NormalPhones
	s.Packets += o.Packets
	s.PacketsSkipped += o.PacketsSkipped
	s.HopsDropped += o.HopsDropped
	s.Events += o.Events
	s.EventsIgnored += o.EventsIgnored
}

func (s *Stats) countNode(c NodeClass) {
	switch c {
	case ClassDead:
		s.Dead++
	case ClassBaseStation:
		s.BaseStations++
	case ClassLowBattery:
		s.LowBattery++
	case ClassNormalPhone:
		s.NormalPhones++
	}
}

type Result struct {
	Features []Feature
	Stats    Stats
}

// Converter holds read-only conversion settings. Workers > 1 converts steps
// concurrently; the output order and bytes match the sequential path.
type Converter struct {
	Palette Palette
	Workers int
}

func NewConverter(p Palette) *Converter {
	return &Converter{Palette: p, Workers: 1}
}

// Convert converts steps with the neon palette.
func Convert(steps []simlog.Step) ([]Feature, error) {
	res, err := NewConverter(Neon()).Convert(steps)
	if err != nil {
		return nil, err
	}
	return res.Features, nil
}

// Convert validates every step first, so a bad record never yields a partial
// result.
func (c *Converter) Convert(steps []simlog.Step) (Result, error) {
	if len(steps) == 0 {
		return Result{}, ErrNoSteps
	}
	if err := c.Palette.validate(); err != nil {
		return Result{}, err
	}
	prev := -1
	for i, s := range steps {
		if err := s.Validate(i); err != nil {
			return Result{}, err
		}
		if s.Index < prev {
			return Result{}, &simlog.MalformedInputError{Record: i, Step: s.Index, Field: "step",
				Reason: fmt.Sprintf("step index goes backwards (previous %d)", prev)}
		}
		prev = s.Index
	}

	parts := make([]Result, len(steps))
	if c.Workers <= 1 {
		for i := range steps {
			r, err := c.convertStep(i, steps[i])
			if err != nil {
				return Result{}, err
			}
			parts[i] = r
		}
	} else {
		var g errgroup.Group
		g.SetLimit(c.Workers)
		for i := range steps {
			g.Go(func() error {
				r, err := c.convertStep(i, steps[i])
				if err != nil {
					return err
				}
				parts[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}
	}

	var out Result
	n := 0
	for _, p := range parts {
		n += len(p.Features)
	}
	out.Features = make([]Feature, 0, n)
	for _, p := range parts {
		out.Features = append(out.Features, p.Features...)
		out.Stats.add(p.Stats)
	}
	return out, nil
}

// convertStep only looks at s; the position lookup never outlives the step.
func (c *Converter) convertStep(record int, s simlog.Step) (Result, error) {
	at := Stamp{Step: s.Index, Time: StepTime(s.Index)}
	res := Result{
		Features: make([]Feature, 0, len(s.Nodes)+len(s.Packets)+len(s.Events)),
		Stats:    Stats{Steps: 1},
	}

	positions := make(map[simlog.ID]Position, len(s.Nodes))
	for _, n := range s.Nodes {
		positions[n.ID] = LonLat(n.Lat, n.Lon)

		class, ok := c.Palette.Classify(n)
		if !ok {
			return Result{}, &simlog.MalformedInputError{Record: record, Step: s.Index, Entity: "node " + string(n.ID),
				Reason: fmt.Sprintf("no %s palette rule matches", c.Palette.Name)}
		}
		res.Stats.countNode(class)
		res.Features = append(res.Features, Feature{
			Kind:   Point,
			Coords: []Position{LonLat(n.Lat, n.Lon)},
			Step:   at.Step,
			Time:   at.Time,
			Class:  string(class),
			Marker: c.Palette.Nodes[class],
			Popup:  fmt.Sprintf("Node %s<br>Type: %s<br>Bat: %.1f", n.ID, n.Type, n.Battery),
		})
	}

	for _, p := range s.Packets {
		coords := make([]Position, 0, len(p.Path))
		for _, id := range p.Path {
			pos, ok := positions[id]
			if !ok {
				res.Stats.HopsDropped++
				continue
			}
			coords = append(coords, pos)
		}
		if len(coords) < 2 {
			res.Stats.PacketsSkipped++
			continue
		}
		res.Stats.Packets++
		res.Features = append(res.Features, Feature{
			Kind:   LineString,
			Coords: coords,
			Step:   at.Step,
			Time:   at.Time,
			Class:  ClassPacket,
			Line:   c.Palette.Packet,
			Popup:  fmt.Sprintf("Packet %s (Hops: %d)", p.ID, len(coords)-1),
		})
	}

	for _, tag := range s.Events {
		build, ok := c.Palette.Events[tag]
		if !ok {
			res.Stats.EventsIgnored++
			continue
		}
		res.Stats.Events++
		res.Features = append(res.Features, build(at))
	}
	return res, nil
}
