package ratelimit

import (
	"context"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"santua/pkg/metrics"
)

// UnaryInterceptor applies the same per-client buckets to gRPC calls. Only
// the listed full method names are limited; an empty list limits nothing.
// HTTP and gRPC share buckets, so a client cannot double its quota by
// switching transport.
func (l *Limiter) UnaryInterceptor(methods ...string) grpc.UnaryServerInterceptor {
	limited := make(map[string]bool, len(methods))
	for _, m := range methods {
		limited[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !limited[info.FullMethod] {
			return handler(ctx, req)
		}
		client := peerIP(ctx)
		if !l.Allow(client) {
			metrics.GrpcRateLimitRejectionsTotal.WithLabelValues(info.FullMethod).Inc()
			l.log.Info("submission rate limited",
				zap.String("client", client),
				zap.String("method", info.FullMethod),
			)
			return nil, status.Error(codes.ResourceExhausted, "too many submissions, try again in a few minutes")
		}
		return handler(ctx, req)
	}
}

// peerIP returns the caller's IP, or the whole address when it has no port.
func peerIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
