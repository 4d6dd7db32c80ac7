package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"meshviz/internal/logging"
)

const tracerName = "meshviz"

// TracingConfig selects whether spans are exported and where. An empty File
// writes spans to stderr so they never mix with stdout sink output.
type TracingConfig struct {
	Enabled     bool
	File        string
	SampleRatio float64
	Writer      io.Writer // overrides File, for tests
}

// InitTracing installs the global tracer provider and returns a shutdown
// func that flushes pending spans.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	w := cfg.Writer
	var closer io.Closer
	if w == nil {
		if cfg.File == "" {
			w = os.Stderr
		} else {
			f, err := os.Create(cfg.File)
			if err != nil {
				return nil, fmt.Errorf("trace file: %w", err)
			}
			w, closer = f, f
		}
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", tracerName)))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	logging.L().Debug("tracing enabled", "file", cfg.File, "sample_ratio", ratio)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if closer != nil {
			_ = closer.Close()
		}
		return err
	}, nil
}

// Tracer returns the process tracer; a no-op until InitTracing enables it.
func Tracer() trace.Tracer { return otel.Tracer(tracerName) }

// ShutdownWithTimeout flushes spans with a bounded wait, logging failures.
func ShutdownWithTimeout(shutdown func(context.Context) error) {
	if shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logging.L().Warn("tracing shutdown failed", "err", err)
	}
}
