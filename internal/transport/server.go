package transport

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"meshviz/internal/telemetry"
	"meshviz/internal/transform"
)

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
}

// NewServer registers the render and health services. metrics may be nil.
func NewServer(conv *transform.Converter, metrics *telemetry.Collector) *Server {
	var opts []grpc.ServerOption
	if metrics != nil {
		opts = append(opts, grpc.ChainUnaryInterceptor(metrics.UnaryServerInterceptor()))
	}
	s := &Server{
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
	}
	s.grpc.RegisterService(&RenderServiceDesc, &renderService{converter: conv, metrics: metrics})
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func StartServer(port int, conv *transform.Converter, metrics *telemetry.Collector) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	s := NewServer(conv, metrics)
	s.lis = lis
	return s, nil
}

func (s *Server) Serve() error {
	if s.lis == nil {
		return fmt.Errorf("transport: no listener; use StartServer or ServeListener")
	}
	return s.grpc.Serve(s.lis)
}

func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

func (s *Server) Addr() net.Addr {
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
