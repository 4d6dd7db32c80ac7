package spec

type sinkConfigs struct {
	GeoJSON struct {
		Path   string `yaml:"path"`
		Indent bool   `yaml:"indent"`
	} `yaml:"geojson"`
	HTML struct {
		Path string `yaml:"path"`
	} `yaml:"html"`
	Stdout struct {
		PrintFeatures bool `yaml:"print_features"`
		PrintCounter  bool `yaml:"print_counter"`
	} `yaml:"stdout"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int16    `yaml:"required_acks"` // 0,1,-1
	} `yaml:"kafka"`
	SQLite struct {
		Path    string `yaml:"path"`
		Table   string `yaml:"table"`
		Replace bool   `yaml:"replace"`
	} `yaml:"sqlite"`
}

type NodeStyleSpec struct {
	FillColor   string   `yaml:"fill_color"`
	FillOpacity *float64 `yaml:"fill_opacity"`
	Color       string   `yaml:"color"`
	Radius      *float64 `yaml:"radius"`
}

type TransformSpec struct {
	Palette             string                   `yaml:"palette"` // neon | classic
	LowBatteryThreshold *float64                 `yaml:"low_battery_threshold"`
	Workers             int                      `yaml:"workers"`
	NodeStyles          map[string]NodeStyleSpec `yaml:"node_styles"` // keyed by node class
	PacketColor         string                   `yaml:"packet_color"`
}

type TelemetrySpec struct {
	MetricsTextfile string  `yaml:"metrics_textfile"`
	Tracing         bool    `yaml:"tracing"`
	TraceFile       string  `yaml:"trace_file"`
	SampleRatio     float64 `yaml:"sample_ratio"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Source struct {
		Kind   string `yaml:"kind"`   // file | kafka
		Driver string `yaml:"driver"` // kafka only: sarama
		Path   string `yaml:"path"`   // file only
		Config string `yaml:"config"` // kafka only
	} `yaml:"source"`

	Transform TransformSpec `yaml:"transform"`

	Render struct {
		Config string `yaml:"config"`
	} `yaml:"render"`

	Sinks       []string      `yaml:"sinks"`
	SinkConfigs sinkConfigs   `yaml:"sink_configs"`
	Telemetry   TelemetrySpec `yaml:"telemetry"`
}
