package engine

import (
	"context"
	"fmt"

	"meshviz/internal/logging"
	"meshviz/internal/pipeline"
	"meshviz/internal/spec"
	"meshviz/internal/telemetry"
	"meshviz/internal/transport"
)

// Config drives serve mode: a long-running conversion service.
type Config struct {
	GRPCPort    int
	MetricsPort int // 0 disables the /metrics endpoint
	Transform   spec.TransformSpec
}

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	metrics := telemetry.NewCollector()

	// 1. converter
	conv, err := pipeline.NewConverter(cfg.Transform)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}

	// 2. transport server
	srv, err := transport.StartServer(cfg.GRPCPort, conv, metrics)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	// 3. metrics
	e := &Engine{transport: srv}
	if cfg.MetricsPort > 0 {
		e.metrics = telemetry.Expose(cfg.MetricsPort, metrics)
	}

	logging.L().Info("serve mode ready", "grpc", srv.Addr().String(), "metrics_port", cfg.MetricsPort,
		"palette", conv.Palette.Name, "workers", conv.Workers)
	return e, nil
}
