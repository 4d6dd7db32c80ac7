package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"meshviz/internal/render"
)

const renderEnvPrefix = "MESHVIZ_RENDER__"

// LoadRenderConfig merges YAML (if present) with env-vars over render.Defaults
// (prefix `MESHVIZ_RENDER__`, delimiter `__`, e.g. MESHVIZ_RENDER__TIMELINE__LOOP=false).
func LoadRenderConfig(path string) (render.Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return render.Config{}, fmt.Errorf("render config %s: %w", path, err)
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return render.Config{}, fmt.Errorf("render schema_version %q not supported (want %s)", sv, SupportedSchema)
	}

	if err := k.Load(env.Provider(renderEnvPrefix, "__", envKey(renderEnvPrefix)), nil); err != nil {
		return render.Config{}, err
	}

	cfg := render.Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envKey(prefix string) func(string) string {
	return func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, prefix))
	}
}
