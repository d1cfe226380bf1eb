package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service key reported alongside the overall "" status.
const ServiceName = "mockdesk.dashboard"

// Health wraps the standard gRPC health server for the dashboard process.
type Health struct {
	srv *health.Server
}

// NewServer builds a gRPC server exposing grpc.health.v1.Health, logging every
// unary call through log.
func NewServer(log *zap.Logger) (*grpc.Server, *Health) {
	if log == nil {
		log = zap.NewNop()
	}
	server := grpc.NewServer(grpc.UnaryInterceptor(NewLoggingUnaryInterceptor(log)))
	h := &Health{srv: health.NewServer()}
	healthpb.RegisterHealthServer(server, h.srv)
	h.SetServing(false)
	return server, h
}

func (h *Health) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.srv.SetServingStatus("", st)
	h.srv.SetServingStatus(ServiceName, st)
}

// Shutdown marks every service NOT_SERVING so health checks fail while connections drain.
func (h *Health) Shutdown() {
	h.srv.Shutdown()
}

func NewLoggingUnaryInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("grpc call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
