package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"meshviz/internal/logging"
	"meshviz/internal/simlog"
	"meshviz/internal/transform"
)

// Run outcomes used as the "outcome" label of meshviz_runs_total.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeMalformed = "malformed"
	OutcomeEmpty     = "empty"
	OutcomeError     = "error"
)

// Collector owns a private registry so several collectors can coexist in one
// process (tests, serve mode next to render).
type Collector struct {
	reg *prometheus.Registry

	Runs            *prometheus.CounterVec
	Steps           prometheus.Counter
	Features        *prometheus.CounterVec
	PacketsSkipped  prometheus.Counter
	HopsDropped     prometheus.Counter
	EventsIgnored   prometheus.Counter
	ConvertDuration prometheus.Histogram
	RPCRequests     *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		reg: reg,
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meshviz_runs_total",
			Help: "Conversions attempted, labeled by outcome.",
		}, []string{"outcome"}),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshviz_steps_total",
			Help: "Simulation steps converted.",
		}),
		Features: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meshviz_features_total",
			Help: "Features emitted, labeled by class.",
		}, []string{"class"}),
		PacketsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshviz_packets_skipped_total",
			Help: "Packets left out because fewer than two hops resolved.",
		}),
		HopsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshviz_hops_dropped_total",
			Help: "Packet hops naming a node absent from their step.",
		}),
		EventsIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshviz_events_ignored_total",
			Help: "Event tags with no visual mapping.",
		}),
		ConvertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "meshviz_convert_duration_seconds",
			Help:    "Wall time of one log conversion.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meshviz_rpc_requests_total",
			Help: "Handled RPCs, labeled by method and gRPC status code.",
		}, []string{"method", "code"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.Runs, c.Steps, c.Features, c.PacketsSkipped, c.HopsDropped,
		c.EventsIgnored, c.ConvertDuration, c.RPCRequests,
	)
	return c
}

// ObserveConversion records a successful conversion.
func (c *Collector) ObserveConversion(s transform.Stats, took time.Duration) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(OutcomeOK).Inc()
	c.Steps.Add(float64(s.Steps))
	c.Features.WithLabelValues(string(transform.ClassDead)).Add(float64(s.Dead))
	c.Features.WithLabelValues(string(transform.ClassBaseStation)).Add(float64(s.BaseStations))
	c.Features.WithLabelValues(string(transform.ClassLowBattery)).Add(float64(s.LowBattery))
	c.Features.WithLabelValues(string(transform.ClassNormalPhone)).Add(float64(s.NormalPhones))
	c.Features.WithLabelValues(transform.ClassPacket).Add(float64(s.Packets))
	c.Features.WithLabelValues("event").Add(float64(s.Events))
	c.PacketsSkipped.Add(float64(s.PacketsSkipped))
	c.HopsDropped.Add(float64(s.HopsDropped))
	c.EventsIgnored.Add(float64(s.EventsIgnored))
	c.ConvertDuration.Observe(took.Seconds())
}

// ObserveFailure counts a run that produced no animation.
func (c *Collector) ObserveFailure(err error) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(Outcome(err)).Inc()
}

// Outcome maps a run error to its metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, simlog.ErrInputNotFound):
		return OutcomeNotFound
	case simlog.IsMalformed(err):
		return OutcomeMalformed
	case errors.Is(err, transform.ErrNoSteps):
		return OutcomeEmpty
	default:
		return OutcomeError
	}
}

// UnaryServerInterceptor counts unary RPCs by method and status code.
func (c *Collector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if c == nil {
			return resp, err
		}
		method := "unknown"
		if info != nil {
			if i := strings.LastIndex(info.FullMethod, "/"); i >= 0 && i+1 < len(info.FullMethod) {
				method = info.FullMethod[i+1:]
			}
		}
		c.RPCRequests.WithLabelValues(method, status.Code(err).String()).Inc()
		return resp, err
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry in text format for node_exporter's
// textfile collector; one-shot render runs have no scrape window.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.reg); err != nil {
		return fmt.Errorf("metrics textfile %s: %w", path, err)
	}
	return nil
}

// Expose serves /metrics on port in the background; stop it with Shutdown.
func Expose(port int, c *Collector) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L().Error("metrics endpoint stopped", "port", port, "err", err)
		}
	}()
	return srv
}
