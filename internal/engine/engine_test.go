package engine

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"meshviz/internal/spec"
	"meshviz/internal/transport"
)

func TestEngine_ServesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := Bootstrap(ctx, Config{GRPCPort: 0, Transform: spec.TransformSpec{Palette: "classic"}})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	port := e.transport.Addr().(*net.TCPAddr).Port
	cli, err := transport.Dial(fmt.Sprintf("localhost:%d", port))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer cli.Close()

	cctx, ccancel := context.WithTimeout(ctx, 5*time.Second)
	defer ccancel()
	out, err := cli.Convert(cctx, []byte(`[{"step":0,"nodes":[],"events":["ORACLE_PAYOUT"]}]`))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty response")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestBootstrap_RejectsUnknownPalette(t *testing.T) {
	if _, err := Bootstrap(context.Background(), Config{Transform: spec.TransformSpec{Palette: "sepia"}}); err == nil {
		t.Fatal("expected error")
	}
}
