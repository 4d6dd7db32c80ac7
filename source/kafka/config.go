package kafka

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MESHVIZ_KAFKA__"

// Config describes one partition holding a simulation log, one step per message.
type Config struct {
	Brokers   []string      `koanf:"brokers"`
	Topic     string        `koanf:"topic"`
	Partition int32         `koanf:"partition"`
	ClientID  string        `koanf:"client_id"`
	Version   string        `koanf:"version"`
	TLSEn     bool          `koanf:"tls_enabled"`
	SASLUser  string        `koanf:"sasl_user"`
	SASLPass  string        `koanf:"sasl_pass"`
	IdleWait  time.Duration `koanf:"idle_wait"` // max gap between messages before giving up
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// LoadConfig merges YAML (if present) with env-vars
// (prefix `MESHVIZ_KAFKA__`, delimiter `__`).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	// schema version check (only when YAML is present)
	sv := k.String("schema_version")
	if sv != "" && sv != "v1" {
		return Config{}, fmt.Errorf("kafka schema_version %q not supported (want v1)", sv)
	}

	_ = k.Load(env.Provider(envPrefix, "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, cfg.validate()
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(c *Config) {
	if c.Version == "" {
		c.Version = "3.6.0"
	}
	if c.ClientID == "" {
		c.ClientID = "meshviz"
	}
	if c.IdleWait == 0 {
		c.IdleWait = 10 * time.Second
	}
}

func (c Config) validate() error {
	switch {
	case len(c.Brokers) == 0:
		return errors.New("kafka: brokers are required")
	case c.Topic == "":
		return errors.New("kafka: topic is required")
	case c.Partition < 0:
		return fmt.Errorf("kafka: partition %d must be >= 0", c.Partition)
	}
	return nil
}
