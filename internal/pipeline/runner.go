package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"meshviz/internal/logging"
	"meshviz/internal/simlog"
	"meshviz/internal/telemetry"
	"meshviz/internal/transform"
	"meshviz/sink"
	"meshviz/source"
)

type namedSink struct {
	name string
	sink.Adapter
}

// Runner reads the whole log, converts it, then hands features to sinks.
// Sinks see nothing unless conversion succeeded.
type Runner struct {
	source     source.Adapter
	sourceKind string
	converter  *transform.Converter
	sinks      []namedSink
	metrics    *telemetry.Collector
}

// Result is what one run produced.
type Result struct {
	Features []transform.Feature
	Report   transform.Report
}

func NewRunner() *Runner {
	return &Runner{converter: transform.NewConverter(transform.Neon())}
}

func (r *Runner) AddSink(name string, s sink.Adapter) {
	r.sinks = append(r.sinks, namedSink{name: name, Adapter: s})
}
func (r *Runner) SetSource(s source.Adapter)          { r.source = s }
func (r *Runner) SetConverter(c *transform.Converter) { r.converter = c }
func (r *Runner) SetMetrics(c *telemetry.Collector)   { r.metrics = c }

func (r *Runner) logger() *slog.Logger {
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.name
	}
	return logging.ForRun(logging.Run{Source: r.sourceKind, Sinks: names, Palette: r.converter.Palette.Name})
}

func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.source == nil {
		return Result{}, errors.New("runner: no source configured")
	}
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.run")
	defer span.End()

	res, err := r.run(ctx, span)
	if err != nil {
		r.metrics.ObserveFailure(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, telemetry.Outcome(err))
		return Result{}, err
	}
	return res, nil
}

func (r *Runner) run(ctx context.Context, span trace.Span) (Result, error) {
	steps, err := r.collect(ctx)
	if err != nil {
		return Result{}, err
	}

	_, cspan := telemetry.Tracer().Start(ctx, "transform.convert",
		trace.WithAttributes(attribute.Int("steps", len(steps)), attribute.String("palette", r.converter.Palette.Name)))
	start := time.Now()
	conv, err := r.converter.Convert(steps)
	took := time.Since(start)
	cspan.End()
	if err != nil {
		return Result{}, err
	}

	report := transform.Summarize(steps, conv.Stats)
	if err := r.deliver(ctx, conv.Features, report); err != nil {
		return Result{}, err
	}

	r.metrics.ObserveConversion(conv.Stats, took)
	span.SetAttributes(attribute.Int("features", report.Features))
	r.logger().Info("run complete",
		"steps", report.Steps, "first_step", report.FirstStep, "last_step", report.LastStep,
		"features", report.Features, "points", report.Points, "lines", report.Lines,
		"hops_dropped", report.HopsDropped, "packets_skipped", report.PacketsSkipped,
		"events_ignored", report.EventsIgnored, "took", took)
	return Result{Features: conv.Features, Report: report}, nil
}

func (r *Runner) collect(ctx context.Context) ([]simlog.Step, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "source.read")
	defer span.End()

	var steps []simlog.Step
	err := r.source.Run(ctx, func(s simlog.Step) error {
		steps = append(steps, s)
		return nil
	})
	span.SetAttributes(attribute.Int("steps", len(steps)))
	if err != nil {
		return nil, err
	}
	r.logger().Debug("log read", "steps", len(steps))
	return steps, nil
}

/*──────── feature routing ───────*/
func (r *Runner) deliver(ctx context.Context, features []transform.Feature, report transform.Report) error {
	_, span := telemetry.Tracer().Start(ctx, "sink.flush",
		trace.WithAttributes(attribute.Int("sinks", len(r.sinks))))
	defer span.End()

	for _, s := range r.sinks {
		for _, f := range features {
			if err := s.Push(f); err != nil {
				return fmt.Errorf("sink %s: %w", s.name, err)
			}
		}
		if ra, ok := s.Adapter.(sink.ReportAware); ok {
			ra.Report(report)
		}
	}
	var flushed []string
	for _, s := range r.sinks {
		if err := s.Flush(); err != nil {
			if len(flushed) == 0 {
				return fmt.Errorf("sink %s: %w", s.name, err)
			}
			r.logger().Error("sink flush failed; earlier sinks already wrote their artifacts",
				"sink", s.name, "flushed", flushed, "err", err)
			return fmt.Errorf("sink %s: %w (already flushed: %s)", s.name, err, strings.Join(flushed, ", "))
		}
		flushed = append(flushed, s.name)
		r.logger().Debug("sink flushed", "sink", s.name, "features", len(features))
	}
	return nil
}

// Close releases the source and every sink.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.source != nil {
		errs = append(errs, r.source.Close())
	}
	for _, s := range r.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
