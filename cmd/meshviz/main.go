// Command meshviz turns a mesh-network simulation log into a timeline
// animation (GeoJSON, HTML map, SQLite, Kafka) or serves the conversion over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"meshviz/internal/config"
	"meshviz/internal/engine"
	"meshviz/internal/logging"
	"meshviz/internal/pipeline"
	"meshviz/internal/simlog"
	"meshviz/internal/spec"
	"meshviz/internal/telemetry"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitNotFound = 2
	exitUsage    = 64
)

const usage = `usage:
  meshviz render -pipeline pipeline.yml [-metrics-textfile file] [-metrics-port n]
  meshviz serve  [-grpc-port 7070] [-metrics-port 9100] [-palette neon] [-workers n]
`

func main() {
	_ = godotenv.Load() // ignore missing file
	logging.InitFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	switch args[0] {
	case "render":
		return render(ctx, args[1:], stdout, stderr)
	case "serve":
		return serve(ctx, args[1:], stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "meshviz: unknown command %q\n%s", args[0], usage)
		return exitUsage
	}
}

func render(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pipelinePath := fs.String("pipeline", "pipeline.yml", "pipeline definition")
	textfile := fs.String("metrics-textfile", "", "write Prometheus metrics here after the run")
	metricsPort := fs.Int("metrics-port", 0, "serve /metrics while running (0 = off)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.LoadPipelineSpec(*pipelinePath)
	if err != nil {
		return report(stderr, err)
	}
	if *textfile != "" {
		cfg.Telemetry.MetricsTextfile = *textfile
	}

	shutdown, err := telemetry.InitTracing(ctx, tracingConfig(cfg.Telemetry))
	if err != nil {
		return report(stderr, err)
	}
	defer telemetry.ShutdownWithTimeout(shutdown)

	metrics := telemetry.NewCollector()
	if *metricsPort > 0 {
		srv := telemetry.Expose(*metricsPort, metrics)
		defer srv.Close()
	}

	r, err := pipeline.Build(cfg)
	if err != nil {
		return report(stderr, err)
	}
	defer r.Close()
	r.SetMetrics(metrics)

	res, runErr := r.Run(ctx)
	if cfg.Telemetry.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.Telemetry.MetricsTextfile); err != nil {
			logging.L().Warn("metrics textfile not written", "err", err)
		}
	}
	if runErr != nil {
		return report(stderr, runErr)
	}
	fmt.Fprintf(stdout, "meshviz: %d steps, %d features written to %v\n",
		res.Report.Steps, res.Report.Features, cfg.Sinks)
	return exitOK
}

func serve(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	grpcPort := fs.Int("grpc-port", 7070, "gRPC listen port")
	metricsPort := fs.Int("metrics-port", 9100, "Prometheus /metrics port (0 = off)")
	palette := fs.String("palette", "neon", "palette preset")
	workers := fs.Int("workers", 1, "steps converted in parallel per request")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	e, err := engine.Bootstrap(ctx, engine.Config{
		GRPCPort:    *grpcPort,
		MetricsPort: *metricsPort,
		Transform:   spec.TransformSpec{Palette: *palette, Workers: *workers},
	})
	if err != nil {
		return report(stderr, err)
	}
	if err := e.Run(ctx); err != nil {
		return report(stderr, err)
	}
	return exitOK
}

func tracingConfig(t spec.TelemetrySpec) telemetry.TracingConfig {
	return telemetry.TracingConfig{Enabled: t.Tracing, File: t.TraceFile, SampleRatio: t.SampleRatio}
}

// report prints err once and maps it to an exit code.
func report(stderr io.Writer, err error) int {
	switch {
	case errors.Is(err, simlog.ErrInputNotFound):
		fmt.Fprintf(stderr, "meshviz: %v\nhint: run the simulation first to produce the log\n", err)
		return exitNotFound
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(stderr, "meshviz: interrupted")
		return exitFailure
	default:
		fmt.Fprintf(stderr, "meshviz: %v\n", err)
		return exitFailure
	}
}
