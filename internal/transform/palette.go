package transform

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"meshviz/internal/simlog"
)

// LowBatteryThreshold is the battery level under which an active smartphone
// is drawn as low on power.
const LowBatteryThreshold = 200.0

type NodeClass string

const (
	ClassDead        NodeClass = "dead"
	ClassBaseStation NodeClass = "base_station"
	ClassLowBattery  NodeClass = "low_battery"
	ClassNormalPhone NodeClass = "normal_phone"
)

// ClassPacket is the class carried by packet route features.
const ClassPacket = "packet"

type MarkerStyle struct {
	FillColor   string
	FillOpacity float64
	Stroke      bool
	Color       string
	Weight      float64
	Radius      float64
}

type LineStyle struct {
	Color   string
	Weight  float64
	Opacity float64
}

// NodeRule assigns Class to nodes for which Match holds.
type NodeRule struct {
	Class NodeClass
	Match func(n simlog.Node, lowBattery float64) bool
}

// DefaultRules is the node classification in priority order.
func DefaultRules() []NodeRule {
	return []NodeRule{
		{Class: ClassDead, Match: func(n simlog.Node, _ float64) bool { return !n.Active }},
		{Class: ClassBaseStation, Match: func(n simlog.Node, _ float64) bool {
			return n.Active && n.Type == simlog.BaseStation
		}},
		{Class: ClassLowBattery, Match: func(n simlog.Node, low float64) bool {
			return n.Active && n.Type == simlog.Smartphone && n.Battery < low
		}},
		{Class: ClassNormalPhone, Match: func(n simlog.Node, _ float64) bool {
			return n.Active && n.Type == simlog.Smartphone
		}},
	}
}

// Palette maps entity state to visual encoding. Rules are evaluated in order
// and the first match wins.
type Palette struct {
	Name                string
	LowBatteryThreshold float64
	Rules               []NodeRule
	Nodes               map[NodeClass]MarkerStyle
	Packet              LineStyle
	Events              map[simlog.EventTag]EventBuilder
}

// Classify returns the class of the first matching rule.
func (p Palette) Classify(n simlog.Node) (NodeClass, bool) {
	for _, r := range p.Rules {
		if r.Match(n, p.LowBatteryThreshold) {
			return r.Class, true
		}
	}
	return "", false
}

// Clone returns a copy whose maps and rules can be changed independently.
func (p Palette) Clone() Palette {
	p.Rules = slices.Clone(p.Rules)
	p.Nodes = maps.Clone(p.Nodes)
	p.Events = maps.Clone(p.Events)
	return p
}

func (p Palette) validate() error {
	if len(p.Rules) == 0 {
		return fmt.Errorf("palette %q: no node rules", p.Name)
	}
	for _, r := range p.Rules {
		if _, ok := p.Nodes[r.Class]; !ok {
			return fmt.Errorf("palette %q: no style for node class %q", p.Name, r.Class)
		}
	}
	return nil
}

var presets = map[string]func() Palette{
	"neon":    Neon,
	"classic": Classic,
}

// PaletteNames lists the registered presets.
func PaletteNames() []string {
	return slices.Sorted(maps.Keys(presets))
}

// LookupPalette returns a fresh copy of a named preset.
func LookupPalette(name string) (Palette, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "neon"
	}
	f, ok := presets[name]
	if !ok {
		return Palette{}, fmt.Errorf("unknown palette %q (have %s)", name, strings.Join(PaletteNames(), ", "))
	}
	return f(), nil
}

// Neon is the palette drawn over the dark default basemap.
func Neon() Palette {
	node := func(fill string, opacity, radius float64) MarkerStyle {
		return MarkerStyle{FillColor: fill, FillOpacity: opacity, Stroke: true, Color: "#ffffff", Weight: 1, Radius: radius}
	}
	return Palette{
		Name:                "neon",
		LowBatteryThreshold: LowBatteryThreshold,
		Rules:               DefaultRules(),
		Nodes: map[NodeClass]MarkerStyle{
			ClassDead:        node("#333333", 0.5, 4),
			ClassBaseStation: node("#FFD166", 0.9, 8),
			ClassLowBattery:  node("#EF476F", 0.9, 4),
			ClassNormalPhone: node("#06D6A0", 0.9, 4),
		},
		Packet: LineStyle{Color: "#118AB2", Weight: 3, Opacity: 0.8},
		Events: map[simlog.EventTag]EventBuilder{
			simlog.DisasterStart: Marker(string(simlog.DisasterStart), LonLat(43.705, 7.26),
				MarkerStyle{FillColor: "#D00000", FillOpacity: 0.4, Radius: 60},
				"⚠️ DISASTER EVENT DETECTED ⚠️"),
			simlog.OraclePayout: Marker(string(simlog.OraclePayout), LonLat(43.71, 7.26),
				MarkerStyle{FillColor: "#FFD700", FillOpacity: 0.5, Stroke: true, Color: "#FFFFFF", Weight: 3, Radius: 40},
				"💸 SMART CONTRACT INSURANCE PAYOUT 💸"),
		},
	}
}

// Classic suits light basemaps: darker fills, no white halo on nodes.
func Classic() Palette {
	node := func(fill string, opacity, radius float64) MarkerStyle {
		return MarkerStyle{FillColor: fill, FillOpacity: opacity, Stroke: true, Color: fill, Weight: 1, Radius: radius}
	}
	return Palette{
		Name:                "classic",
		LowBatteryThreshold: LowBatteryThreshold,
		Rules:               DefaultRules(),
		Nodes: map[NodeClass]MarkerStyle{
			ClassDead:        node("#7f7f7f", 0.4, 3),
			ClassBaseStation: node("#1f77b4", 1.0, 8),
			ClassLowBattery:  node("#ff7f0e", 0.9, 5),
			ClassNormalPhone: node("#2ca02c", 0.9, 5),
		},
		Packet: LineStyle{Color: "#d62728", Weight: 2, Opacity: 0.7},
		Events: map[simlog.EventTag]EventBuilder{
			simlog.DisasterStart: Marker(string(simlog.DisasterStart), LonLat(43.705, 7.26),
				MarkerStyle{FillColor: "#8b0000", FillOpacity: 0.3, Stroke: true, Color: "#8b0000", Weight: 2, Radius: 60},
				"Disaster started"),
			simlog.OraclePayout: Marker(string(simlog.OraclePayout), LonLat(43.71, 7.26),
				MarkerStyle{FillColor: "#daa520", FillOpacity: 0.4, Stroke: true, Color: "#8b6914", Weight: 2, Radius: 40},
				"Insurance payout issued"),
		},
	}
}
