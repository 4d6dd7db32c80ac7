package telemetry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"meshviz/internal/simlog"
	"meshviz/internal/transform"
)

func TestCollector_ObserveConversion(t *testing.T) {
	c := NewCollector()
	c.ObserveConversion(transform.Stats{Steps: 3, NormalPhones: 4, Packets: 2, HopsDropped: 1}, 20*time.Millisecond)

	if got := testutil.ToFloat64(c.Steps); got != 3 {
		t.Fatalf("steps = %v", got)
	}
	if got := testutil.ToFloat64(c.Features.WithLabelValues("normal_phone")); got != 4 {
		t.Fatalf("normal_phone features = %v", got)
	}
	if got := testutil.ToFloat64(c.Features.WithLabelValues("packet")); got != 2 {
		t.Fatalf("packet features = %v", got)
	}
	if got := testutil.ToFloat64(c.Runs.WithLabelValues(OutcomeOK)); got != 1 {
		t.Fatalf("ok runs = %v", got)
	}
	if n := testutil.CollectAndCount(c.ConvertDuration); n != 1 {
		t.Fatalf("histogram series = %d", n)
	}
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		OutcomeOK:        nil,
		OutcomeNotFound:  fmt.Errorf("%w: x.json", simlog.ErrInputNotFound),
		OutcomeMalformed: &simlog.MalformedInputError{Record: 0, Field: "nodes", Reason: "missing"},
		OutcomeEmpty:     transform.ErrNoSteps,
		OutcomeError:     errors.New("disk full"),
	}
	for want, err := range cases {
		if got := Outcome(err); got != want {
			t.Fatalf("Outcome(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestCollector_TextfileAndHandler(t *testing.T) {
	c := NewCollector()
	c.ObserveFailure(transform.ErrNoSteps)

	path := filepath.Join(t.TempDir(), "meshviz.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), `meshviz_runs_total{outcome="empty"} 1`) {
		t.Fatalf("textfile missing run counter:\n%s", raw)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "meshviz_runs_total") {
		t.Fatalf("handler output missing run counter")
	}
}

func TestCollector_UnaryInterceptor(t *testing.T) {
	c := NewCollector()
	ic := c.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/meshviz.v1.RenderService/Convert"}

	_, _ = ic(context.Background(), nil, info, func(context.Context, any) (any, error) { return "ok", nil })
	_, _ = ic(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.InvalidArgument, "bad")
	})

	if got := testutil.ToFloat64(c.RPCRequests.WithLabelValues("Convert", "OK")); got != 1 {
		t.Fatalf("OK = %v", got)
	}
	if got := testutil.ToFloat64(c.RPCRequests.WithLabelValues("Convert", "InvalidArgument")); got != 1 {
		t.Fatalf("InvalidArgument = %v", got)
	}
}

func TestInitTracing_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Writer: &buf})
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := Tracer().Start(context.Background(), "convert")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), `"Name": "convert"`) {
		t.Fatalf("span not exported:\n%s", buf.String())
	}

	off, err := InitTracing(context.Background(), TracingConfig{})
	if err != nil {
		t.Fatalf("InitTracing disabled: %v", err)
	}
	_ = off(context.Background())
}
