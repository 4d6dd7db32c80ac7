package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"meshviz/internal/spec"
)

const SupportedSchema = "v1"

// LoadPipelineSpec parses a pipeline YAML, validates schema_version, and
// resolves every relative path in it against the pipeline file's directory.
func LoadPipelineSpec(path string) (spec.File, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("pipeline %s: %w", path, err)
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, fmt.Errorf("pipeline schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = "file"
	}
	if len(cfg.Sinks) == 0 {
		return cfg, fmt.Errorf("pipeline %s: no sinks configured", path)
	}

	dir := filepath.Dir(path)
	for _, p := range []*string{
		&cfg.Source.Path,
		&cfg.Source.Config,
		&cfg.Render.Config,
		&cfg.SinkConfigs.GeoJSON.Path,
		&cfg.SinkConfigs.HTML.Path,
		&cfg.SinkConfigs.SQLite.Path,
		&cfg.Telemetry.MetricsTextfile,
		&cfg.Telemetry.TraceFile,
	} {
		*p = resolve(dir, *p)
	}
	return cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
