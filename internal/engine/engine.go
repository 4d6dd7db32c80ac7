package engine

import (
	"context"
	"net/http"
	"time"

	"meshviz/internal/transport"
)

type Engine struct {
	transport *transport.Server
	metrics   *http.Server
}

// Run serves until ctx is cancelled, then drains in-flight RPCs.
func (e *Engine) Run(ctx context.Context) error {

	go func() {
		<-ctx.Done()
		e.transport.Stop()
		if e.metrics != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = e.metrics.Shutdown(sctx)
		}
	}()

	return e.transport.Serve()
}
