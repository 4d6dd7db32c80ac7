package transport

import (
	"bytes"
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"meshviz/internal/logging"
	"meshviz/internal/simlog"
	"meshviz/internal/telemetry"
	"meshviz/internal/transform"
)

const (
	ServiceName   = "meshviz.v1.RenderService"
	ConvertMethod = "/" + ServiceName + "/Convert"
)

// RenderServer converts a simulation log, sent as a JSON array of steps, into
// a GeoJSON FeatureCollection.
type RenderServer interface {
	Convert(context.Context, *structpb.ListValue) (*structpb.Struct, error)
}

// RenderServiceDesc uses the well-known Struct/ListValue messages so the
// service needs no generated code.
var RenderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RenderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Convert", Handler: convertHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "meshviz/v1/render.proto",
}

func convertHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.ListValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RenderServer).Convert(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ConvertMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RenderServer).Convert(ctx, req.(*structpb.ListValue))
	}
	return interceptor(ctx, in, info, handler)
}

type renderService struct {
	converter *transform.Converter
	metrics   *telemetry.Collector
}

func (s *renderService) Convert(ctx context.Context, in *structpb.ListValue) (*structpb.Struct, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "rpc.convert")
	defer span.End()

	res, err := s.convert(ctx, in)
	if err != nil {
		s.metrics.ObserveFailure(err)
		logging.L().Warn("convert rejected", "err", err)
		return nil, toStatus(err)
	}
	return res, nil
}

func (s *renderService) convert(ctx context.Context, in *structpb.ListValue) (*structpb.Struct, error) {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return nil, err
	}
	steps, err := simlog.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	conv, err := s.converter.Convert(steps)
	if err != nil {
		return nil, err
	}
	body, err := transform.MarshalCollection(conv.Features)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(body, out); err != nil {
		return nil, err
	}
	s.metrics.ObserveConversion(conv.Stats, time.Since(start))
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, simlog.ErrInputNotFound):
		return status.Error(codes.NotFound, err.Error())
	case simlog.IsMalformed(err), errors.Is(err, transform.ErrNoSteps):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
