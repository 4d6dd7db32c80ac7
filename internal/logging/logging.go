// Package logging holds the process-wide slog logger. Every record carries
// app=meshviz; render runs add a run group naming source, sinks and palette.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

const defaultApp = "meshviz"

type Options struct {
	Level string
	JSON  bool
	// Output defaults to stderr so stdout stays free for sinks.
	Output io.Writer
	// App overrides the app attribute.
	App string
}

var def atomic.Value

func init() {
	Configure(Options{})
}

func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	app := opts.App
	if app == "" {
		app = defaultApp
	}
	cfg := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(out, cfg)
	} else {
		h = slog.NewTextHandler(out, cfg)
	}
	def.Store(slog.New(h).With("app", app))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func L() *slog.Logger {
	l, _ := def.Load().(*slog.Logger)
	return l
}

// Run describes one render invocation.
type Run struct {
	Source  string
	Sinks   []string
	Palette string
}

// ForRun tags the default logger with a run group so records from the
// source, converter and each sink can be tied back to the pipeline.
func ForRun(run Run) *slog.Logger {
	return L().With(slog.Group("run",
		slog.String("source", run.Source),
		slog.String("sinks", strings.Join(run.Sinks, ",")),
		slog.String("palette", run.Palette),
	))
}

// InitFromEnv reads MESHVIZ_LOG_LEVEL and MESHVIZ_LOG_JSON.
func InitFromEnv() {
	json := false
	if b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("MESHVIZ_LOG_JSON"))); err == nil {
		json = b
	}
	Configure(Options{Level: os.Getenv("MESHVIZ_LOG_LEVEL"), JSON: json})
}
