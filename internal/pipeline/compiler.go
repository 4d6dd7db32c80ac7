package pipeline

import (
	"fmt"
	"strings"

	"meshviz/internal/config"
	"meshviz/internal/spec"
	"meshviz/internal/transform"
	"meshviz/sink"
	geojsonsink "meshviz/sink/geojson"
	htmlsink "meshviz/sink/html"
	kafkasink "meshviz/sink/kafka"
	sqlitesink "meshviz/sink/sqlite"
	"meshviz/sink/stdout"
	"meshviz/source"
	"meshviz/source/file"
	_ "meshviz/source/kafka"
)

func Compile(path string) (*Runner, error) {
	cfg, err := config.LoadPipelineSpec(path)
	if err != nil {
		return nil, err
	}
	return Build(cfg)
}

// Build wires source, converter and sinks from an already loaded pipeline.
// On error every adapter configured so far is closed.
func Build(cfg spec.File) (*Runner, error) {
	r := NewRunner()
	if err := wire(r, cfg); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func wire(r *Runner, cfg spec.File) error {
	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	r.SetSource(src)
	r.sourceKind = cfg.Source.Kind

	conv, err := NewConverter(cfg.Transform)
	if err != nil {
		return err
	}
	r.SetConverter(conv)

	for _, name := range cfg.Sinks {
		s, err := buildSink(name, cfg)
		if err != nil {
			return fmt.Errorf("sink %s: %w", name, err)
		}
		r.AddSink(name, s)
	}
	return nil
}

func buildSource(cfg spec.File) (source.Adapter, error) {
	var settings any
	switch cfg.Source.Kind {
	case "file":
		settings = file.Config{Path: cfg.Source.Path}
	case "kafka":
		if d := cfg.Source.Driver; d != "" && d != "sarama" {
			return nil, fmt.Errorf("unsupported kafka driver %q", d)
		}
		kc, err := config.LoadKafkaConfig(cfg.Source.Config)
		if err != nil {
			return nil, err
		}
		settings = kc
	default:
		return nil, fmt.Errorf("unsupported source %q (have %v)", cfg.Source.Kind, source.Kinds())
	}

	src, err := source.NewAdapter(cfg.Source.Kind)
	if err != nil {
		return nil, err
	}
	if err := src.Configure(settings); err != nil {
		return nil, err
	}
	return src, nil
}

// NewConverter resolves the palette preset and applies per-pipeline overrides.
func NewConverter(t spec.TransformSpec) (*transform.Converter, error) {
	p, err := transform.LookupPalette(t.Palette)
	if err != nil {
		return nil, err
	}
	p = p.Clone()
	if t.LowBatteryThreshold != nil {
		p.LowBatteryThreshold = *t.LowBatteryThreshold
	}
	for name, o := range t.NodeStyles {
		class := transform.NodeClass(strings.ToLower(name))
		st, ok := p.Nodes[class]
		if !ok {
			return nil, fmt.Errorf("node_styles: unknown node class %q", name)
		}
		if o.FillColor != "" {
			st.FillColor = o.FillColor
		}
		if o.FillOpacity != nil {
			st.FillOpacity = *o.FillOpacity
		}
		if o.Color != "" {
			st.Color = o.Color
		}
		if o.Radius != nil {
			st.Radius = *o.Radius
		}
		p.Nodes[class] = st
	}
	if t.PacketColor != "" {
		p.Packet.Color = t.PacketColor
	}

	c := transform.NewConverter(p)
	if t.Workers > 1 {
		c.Workers = t.Workers
	}
	return c, nil
}

func buildSink(name string, cfg spec.File) (sink.Adapter, error) {
	s, err := sink.NewAdapter(name)
	if err != nil {
		return nil, err
	}
	sc := cfg.SinkConfigs

	var settings any
	switch name {
	case "geojson":
		settings = geojsonsink.Config{Path: sc.GeoJSON.Path, Indent: sc.GeoJSON.Indent}
	case "html":
		rc, err := config.LoadRenderConfig(cfg.Render.Config)
		if err != nil {
			return nil, err
		}
		settings = htmlsink.Config{Path: sc.HTML.Path, Render: rc}
	case "stdout":
		settings = stdout.Config{PrintFeatures: sc.Stdout.PrintFeatures, PrintCounter: sc.Stdout.PrintCounter}
	case "kafka":
		settings = kafkasink.Config{Brokers: sc.Kafka.Brokers, Topic: sc.Kafka.Topic, Acks: sc.Kafka.RequiredAcks}
	case "sqlite":
		settings = sqlitesink.Config{Path: sc.SQLite.Path, Table: sc.SQLite.Table, Replace: sc.SQLite.Replace}
	default:
		return nil, fmt.Errorf("no config block for sink %q", name)
	}
	if err := s.Configure(settings); err != nil {
		return nil, err
	}
	return s, nil
}
