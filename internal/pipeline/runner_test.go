package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"meshviz/internal/simlog"
	"meshviz/internal/spec"
	"meshviz/internal/telemetry"
	"meshviz/internal/transform"
	"meshviz/source"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	steps  []simlog.Step
	err    error
	closed bool
}

func (f *fakeSource) Configure(any) error { return nil }
func (f *fakeSource) Run(_ context.Context, emit source.EmitFunc) error {
	for _, s := range f.steps {
		if err := emit(s); err != nil {
			return err
		}
	}
	return f.err
}
func (f *fakeSource) Close() error { f.closed = true; return nil }

type captureSink struct {
	pushed   []transform.Feature
	report   *transform.Report
	flushed  bool
	flushErr error
	closed   bool
}

func (c *captureSink) Configure(any) error { return nil }
func (c *captureSink) Push(f transform.Feature) error {
	c.pushed = append(c.pushed, f)
	return nil
}
func (c *captureSink) Report(r transform.Report) { c.report = &r }
func (c *captureSink) Flush() error {
	c.flushed = true
	return c.flushErr
}
func (c *captureSink) Close() error { c.closed = true; return nil }

func sampleSteps() []simlog.Step {
	return []simlog.Step{
		{Index: 0, Nodes: []simlog.Node{
			{ID: "1", Type: simlog.Smartphone, Lat: 1, Lon: 2, Active: true, Battery: 500},
			{ID: "2", Type: simlog.BaseStation, Lat: 3, Lon: 4, Active: true, Battery: 1000},
		}, Packets: []simlog.Packet{{ID: "p1", Path: []simlog.ID{"1", "2"}}}},
		{Index: 1, Nodes: []simlog.Node{
			{ID: "1", Type: simlog.Smartphone, Lat: 1, Lon: 2, Active: false, Battery: 0},
		}, Events: []simlog.EventTag{simlog.DisasterStart}},
	}
}

func newTestRunner(src *fakeSource, sinks ...*captureSink) *Runner {
	r := NewRunner()
	r.SetSource(src)
	for i, s := range sinks {
		r.AddSink(string(rune('a'+i)), s)
	}
	return r
}

func TestRunner_DeliversFeaturesInOrder(t *testing.T) {
	src := &fakeSource{steps: sampleSteps()}
	a, b := &captureSink{}, &captureSink{}
	r := newTestRunner(src, a, b)
	m := telemetry.NewCollector()
	r.SetMetrics(m)

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Features) != 5 {
		t.Fatalf("want 5 features, got %d", len(res.Features))
	}
	for _, s := range []*captureSink{a, b} {
		if !s.flushed || len(s.pushed) != 5 {
			t.Fatalf("sink not fed: flushed=%v pushed=%d", s.flushed, len(s.pushed))
		}
		if s.report == nil || s.report.Steps != 2 || s.report.DeadNodes != 1 {
			t.Fatalf("unexpected report %+v", s.report)
		}
	}
	if a.pushed[2].Kind != transform.LineString || a.pushed[4].Time != "2026-01-21T10:01:00" {
		t.Fatalf("unexpected order %+v", a.pushed)
	}
	if got := testutil.ToFloat64(m.Steps); got != 2 {
		t.Fatalf("steps metric = %v", got)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !src.closed || !a.closed || !b.closed {
		t.Fatal("adapters not closed")
	}
}

func TestRunner_NoSinkOutputOnFailure(t *testing.T) {
	bad := &simlog.MalformedInputError{Record: 2, Field: "nodes", Reason: "missing"}
	cases := map[string]*fakeSource{
		"malformed": {steps: sampleSteps(), err: bad},
		"empty":     {},
		"not found": {err: simlog.ErrInputNotFound},
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			s := &captureSink{}
			m := telemetry.NewCollector()
			r := newTestRunner(src, s)
			r.SetMetrics(m)

			if _, err := r.Run(context.Background()); err == nil {
				t.Fatal("expected error")
			}
			if len(s.pushed) != 0 || s.flushed {
				t.Fatalf("sink touched on failure: pushed=%d flushed=%v", len(s.pushed), s.flushed)
			}
			if got := testutil.ToFloat64(m.Runs.WithLabelValues(telemetry.OutcomeOK)); got != 0 {
				t.Fatalf("ok runs = %v", got)
			}
		})
	}
}

func TestRunner_EmptyLogIsErrNoSteps(t *testing.T) {
	r := newTestRunner(&fakeSource{}, &captureSink{})
	if _, err := r.Run(context.Background()); !errors.Is(err, transform.ErrNoSteps) {
		t.Fatalf("want ErrNoSteps, got %v", err)
	}
}

func TestRunner_FlushErrorNamesSink(t *testing.T) {
	boom := errors.New("disk full")
	r := newTestRunner(&fakeSource{steps: sampleSteps()}, &captureSink{flushErr: boom})
	_, err := r.Run(context.Background())
	if !errors.Is(err, boom) || err.Error() != "sink a: disk full" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRunner_RequiresSource(t *testing.T) {
	if _, err := NewRunner().Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewConverter_Overrides(t *testing.T) {
	low, radius := 300.0, 12.0
	c, err := NewConverter(spec.TransformSpec{
		Palette:             "classic",
		LowBatteryThreshold: &low,
		Workers:             4,
		NodeStyles:          map[string]spec.NodeStyleSpec{"Base_Station": {FillColor: "#123456", Radius: &radius}},
		PacketColor:         "#abcdef",
	})
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	p := c.Palette
	if p.Name != "classic" || p.LowBatteryThreshold != 300 || c.Workers != 4 {
		t.Fatalf("unexpected converter %+v", c)
	}
	bs := p.Nodes[transform.ClassBaseStation]
	if bs.FillColor != "#123456" || bs.Radius != 12 {
		t.Fatalf("style override not applied: %+v", bs)
	}
	if p.Packet.Color != "#abcdef" {
		t.Fatalf("packet color = %s", p.Packet.Color)
	}
	if transform.Classic().Nodes[transform.ClassBaseStation].FillColor == "#123456" {
		t.Fatal("override leaked into preset")
	}

	if _, err := NewConverter(spec.TransformSpec{NodeStyles: map[string]spec.NodeStyleSpec{"drone": {}}}); err == nil {
		t.Fatal("expected error for unknown class")
	}
	if _, err := NewConverter(spec.TransformSpec{Palette: "sepia"}); err == nil {
		t.Fatal("expected error for unknown palette")
	}
}

func TestCompile_FileToGeoJSONAndSQLite(t *testing.T) {
	dir := t.TempDir()
	logBody := `[
	  {"step": 0, "nodes": [
	    {"id": 1, "node_type": "Smartphone", "lat": 1, "lon": 2, "is_active": true, "battery": 150},
	    {"id": 2, "node_type": "BaseStation", "lat": 3, "lon": 4, "is_active": true, "battery": 1000}
	  ], "packets": [{"id": "p1", "path": [1, 2, 9]}]},
	  {"step": 1, "nodes": [], "events": ["ORACLE_PAYOUT"]}
	]`
	if err := os.WriteFile(filepath.Join(dir, "simulation_log.json"), []byte(logBody), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	pipeline := `schema_version: v1
source:
  kind: file
  path: simulation_log.json
sinks: [geojson, sqlite]
sink_configs:
  geojson:
    path: out/animation.geojson
  sqlite:
    path: out/animation.db
`
	ppath := filepath.Join(dir, "pipeline.yml")
	if err := os.WriteFile(ppath, []byte(pipeline), 0o644); err != nil {
		t.Fatalf("write pipeline: %v", err)
	}

	r, err := Compile(ppath)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer r.Close()
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Report.HopsDropped != 1 || res.Report.Lines != 1 || res.Report.Features != 4 {
		t.Fatalf("unexpected report %+v", res.Report)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "out", "animation.geojson"))
	if err != nil {
		t.Fatalf("read geojson: %v", err)
	}
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(raw, &fc); err != nil || len(fc.Features) != 4 {
		t.Fatalf("unexpected collection (%v): %s", err, raw)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "animation.db")); err != nil {
		t.Fatalf("sqlite artifact missing: %v", err)
	}
}

func TestCompile_MissingLogWritesNothing(t *testing.T) {
	dir := t.TempDir()
	pipeline := "source:\n  path: nope.json\nsinks: [geojson]\nsink_configs:\n  geojson:\n    path: animation.geojson\n"
	ppath := filepath.Join(dir, "pipeline.yml")
	if err := os.WriteFile(ppath, []byte(pipeline), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r, err := Compile(ppath)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer r.Close()
	if _, err := r.Run(context.Background()); !errors.Is(err, simlog.ErrInputNotFound) {
		t.Fatalf("want ErrInputNotFound, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "animation.geojson")); !os.IsNotExist(err) {
		t.Fatalf("artifact written on failure")
	}
}

func TestBuild_RejectsUnknownAdapters(t *testing.T) {
	var cfg spec.File
	cfg.Source.Kind = "ftp"
	cfg.Sinks = []string{"stdout"}
	if _, err := Build(cfg); err == nil {
		t.Fatal("expected unknown source error")
	}

	cfg.Source.Kind = "file"
	cfg.Source.Path = "x.json"
	cfg.Sinks = []string{"carrier-pigeon"}
	if _, err := Build(cfg); err == nil {
		t.Fatal("expected unknown sink error")
	}
}

func TestBuild_ErrorsAreReturnedNotPanics(t *testing.T) {
	base := func() spec.File {
		var cfg spec.File
		cfg.Source.Kind = "file"
		cfg.Source.Path = "simulation_log.json"
		cfg.Sinks = []string{"stdout"}
		return cfg
	}
	cases := map[string]func(*spec.File){
		"unknown palette":      func(c *spec.File) { c.Transform.Palette = "sepia" },
		"geojson without path": func(c *spec.File) { c.Sinks = []string{"stdout", "geojson"} },
		"bad render config": func(c *spec.File) {
			c.Sinks = []string{"html"}
			c.SinkConfigs.HTML.Path = "map.html"
			c.Render.Config = filepath.Join(t.TempDir(), "render.yml")
			if err := os.WriteFile(c.Render.Config, []byte("timeline:\n  max_speed: 0\n"), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			r, err := Build(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if r != nil {
				t.Fatalf("want nil runner on error, got %+v", r)
			}
		})
	}
}

func TestRunner_CloseOnNil(t *testing.T) {
	var r *Runner
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRunner_FlushErrorListsFlushedSinks(t *testing.T) {
	boom := errors.New("disk full")
	first, second := &captureSink{}, &captureSink{flushErr: boom}
	r := newTestRunner(&fakeSource{steps: sampleSteps()}, first, second)

	_, err := r.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped flush error, got %v", err)
	}
	if !first.flushed {
		t.Fatal("first sink was not flushed")
	}
	if err.Error() != "sink b: disk full (already flushed: a)" {
		t.Fatalf("error does not name flushed sinks: %v", err)
	}
}
