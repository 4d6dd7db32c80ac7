package transform

import "meshviz/internal/simlog"

// Report summarizes a converted run. Node figures describe the final step.
type Report struct {
	Steps                int
	FirstStep            int
	LastStep             int
	Features             int
	Points               int
	Lines                int
	HopsDropped          int
	PacketsSkipped       int
	EventsIgnored        int
	ActiveNodes          int
	DeadNodes            int
	BaseStations         int
	Smartphones          int
	AvgSmartphoneBattery float64
}

func Summarize(steps []simlog.Step, stats Stats) Report {
	r := Report{
		Steps:          stats.Steps,
		Features:       stats.Features(),
		Points:         stats.Nodes() + stats.Events,
		Lines:          stats.Packets,
		HopsDropped:    stats.HopsDropped,
		PacketsSkipped: stats.PacketsSkipped,
		EventsIgnored:  stats.EventsIgnored,
	}
	if len(steps) == 0 {
		return r
	}
	r.FirstStep = steps[0].Index
	last := steps[len(steps)-1]
	r.LastStep = last.Index

	var battery float64
	for _, n := range last.Nodes {
		if n.Active {
			r.ActiveNodes++
		} else {
			r.DeadNodes++
		}
		switch n.Type {
		case simlog.BaseStation:
			r.BaseStations++
		case simlog.Smartphone:
			r.Smartphones++
			battery += n.Battery
		}
	}
	if r.Smartphones > 0 {
		r.AvgSmartphoneBattery = battery / float64(r.Smartphones)
	}
	return r
}
