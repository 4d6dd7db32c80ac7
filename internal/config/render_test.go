package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"meshviz/internal/render"
)

func TestLoadRenderConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadRenderConfig(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("LoadRenderConfig: %v", err)
	}
	if cfg != render.Defaults() {
		t.Fatalf("want defaults, got %+v", cfg)
	}
}

func TestLoadRenderConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "render.yml")
	body := []byte(`schema_version: v1
title: Nice blackout
timeline:
  period: 30s
  loop: false
  max_speed: 4
map:
  tiles: cartodbpositron
  zoom: 12
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MESHVIZ_RENDER__TIMELINE__DATE_FORMAT", "HH:mm:ss")
	t.Setenv("MESHVIZ_RENDER__MAP__ZOOM", "15")

	cfg, err := LoadRenderConfig(path)
	if err != nil {
		t.Fatalf("LoadRenderConfig: %v", err)
	}
	if cfg.Title != "Nice blackout" {
		t.Fatalf("title: %q", cfg.Title)
	}
	if cfg.Timeline.Period != 30*time.Second || cfg.Timeline.Loop || cfg.Timeline.MaxSpeed != 4 {
		t.Fatalf("timeline: %+v", cfg.Timeline)
	}
	if !cfg.Timeline.AutoPlay || !cfg.Timeline.DragUpdates {
		t.Fatalf("unset keys must keep defaults: %+v", cfg.Timeline)
	}
	if cfg.Timeline.DateFormat != "HH:mm:ss" {
		t.Fatalf("env override not applied: %q", cfg.Timeline.DateFormat)
	}
	if cfg.Map.Zoom != 15 || cfg.Map.Tiles != "cartodbpositron" || cfg.Map.CenterLat != 43.71 {
		t.Fatalf("map: %+v", cfg.Map)
	}
}

func TestLoadRenderConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "render.yml")
	if err := os.WriteFile(path, []byte("timeline:\n  max_speed: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadRenderConfig(path); err == nil {
		t.Fatal("expected validation error")
	}
}
