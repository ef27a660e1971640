package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside "".
const ServiceName = "healer"

// GRPCServer serves the standard gRPC health protocol from monitor reports.
type GRPCServer struct {
	monitor  *Monitor
	port     int
	interval time.Duration
	health   *health.Server
	server   *grpc.Server
}

// NewGRPCServer creates a gRPC health server refreshed every interval.
func NewGRPCServer(monitor *Monitor, port int, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &GRPCServer{
		monitor:  monitor,
		port:     port,
		interval: interval,
		health:   hs,
		server:   srv,
	}
}

// Refresh updates the serving status from a fresh report.
func (g *GRPCServer) Refresh(ctx context.Context) {
	report := g.monitor.CheckHealth(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if report.SystemStatus == StatusCritical {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
}

// Serve refreshes status periodically and serves on lis until Stop.
func (g *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	g.Refresh(ctx)

	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.Refresh(ctx)
			}
		}
	}()

	return g.server.Serve(lis)
}

// Start listens on the configured port and serves.
func (g *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", g.port))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port %d: %w", g.port, err)
	}
	slog.Info("gRPC health server listening", "port", g.port)
	return g.Serve(ctx, lis)
}

// Stop marks the service as not serving and stops gracefully.
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
