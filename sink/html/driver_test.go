package html

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"meshviz/internal/render"
	"meshviz/internal/transform"
)

func TestHTMLSink_WritesPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.html")
	cfg := render.Defaults()
	cfg.Title = "Mesh run"

	d := &driver{}
	if err := d.Configure(Config{Path: path, Render: cfg}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	err := d.Push(transform.Feature{
		Kind:   transform.Point,
		Coords: []transform.Position{transform.LonLat(43.7, 7.26)},
		Time:   transform.StepTime(0),
		Class:  "dead",
		Popup:  "Node 1",
	})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	page := string(raw)
	for _, want := range []string{"Mesh run", "FeatureCollection", "2026-01-21T10:00:00", `"period":"PT1M"`} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestHTMLSink_RejectsInvalidRenderConfig(t *testing.T) {
	cfg := render.Defaults()
	cfg.Timeline.MaxSpeed = 0
	if err := (&driver{}).Configure(Config{Path: "map.html", Render: cfg}); err == nil {
		t.Fatal("expected error")
	}
}
