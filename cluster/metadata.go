package cluster

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const runKey = "ltlmc-run"

// runInterceptor tags every outgoing request with the run id.
func runInterceptor(runID string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, runKey, runID)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func runOf(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(runKey); len(v) > 0 {
		return v[0]
	}
	return ""
}
