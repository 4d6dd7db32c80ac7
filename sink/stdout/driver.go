// Package stdout prints features and the run summary, for debugging pipelines.
package stdout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"meshviz/internal/transform"
	"meshviz/sink"
)

/* ────────── public YAML config ────────── */
type Config struct {
	PrintFeatures bool      `yaml:"print_features"` // one GeoJSON feature per line
	PrintCounter  bool      `yaml:"print_counter"`  // one "[sink 000001]" line per feature
	Out           io.Writer `yaml:"-"`              // defaults to os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu     sync.Mutex // guards seq + report
	seq    uint64
	report *transform.Report
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(f transform.Feature) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++

	if d.cfg.PrintCounter {
		if _, err := fmt.Fprintf(d.cfg.Out, "[sink %06d] step=%d time=%s %s %s\n",
			d.seq, f.Step, f.Time, f.Kind, f.Class); err != nil {
			return err
		}
	}
	if d.cfg.PrintFeatures {
		line, err := json.Marshal(f.GeoJSON())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(d.cfg.Out, "%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

/* ────────── sink.ReportAware ────────── */
func (d *driver) Report(r transform.Report) {
	d.mu.Lock()
	d.report = &r
	d.mu.Unlock()
}

func (d *driver) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.report == nil {
		return nil
	}
	return writeReport(d.cfg.Out, *d.report)
}

func (d *driver) Close() error { return nil }

/* ────────── internals ────────── */

func writeReport(w io.Writer, r transform.Report) error {
	_, err := fmt.Fprintf(w,
		"steps %d (%d..%d) features %d (points %d, lines %d)\n"+
			"final step: %d active, %d dead, %d base stations, %d smartphones, avg battery %.1f\n"+
			"dropped hops %d, skipped packets %d, ignored events %d\n",
		r.Steps, r.FirstStep, r.LastStep, r.Features, r.Points, r.Lines,
		r.ActiveNodes, r.DeadNodes, r.BaseStations, r.Smartphones, r.AvgSmartphoneBattery,
		r.HopsDropped, r.PacketsSkipped, r.EventsIgnored)
	return err
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
