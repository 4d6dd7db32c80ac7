package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type Client struct {
	cc *grpc.ClientConn
}

// Dial connects without TLS; extra options are appended (e.g. a context dialer).
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc}, nil
}

// Convert sends a JSON array of steps and returns the encoded FeatureCollection.
func (c *Client) Convert(ctx context.Context, steps []byte) ([]byte, error) {
	in := new(structpb.ListValue)
	if err := protojson.Unmarshal(steps, in); err != nil {
		return nil, fmt.Errorf("steps must be a JSON array: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ConvertMethod, in, out); err != nil {
		return nil, err
	}
	return protojson.Marshal(out)
}

func (c *Client) Healthy(ctx context.Context) (bool, error) {
	resp, err := healthpb.NewHealthClient(c.cc).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

func (c *Client) Close() error { return c.cc.Close() }
