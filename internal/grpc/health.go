package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/mtr002/notify-dispatcher/internal/logger"
)

// ServiceName is the health service key reported for the dispatcher
const ServiceName = "notify.Dispatcher"

// StateSource reports whether the dispatcher can accept batches
type StateSource interface {
	Running() bool
}

// HealthServer exposes the standard gRPC health protocol for the dispatch pool
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	source StateSource
	done   chan struct{}
}

func NewHealthServer(source StateSource) *HealthServer {
	s := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	reflection.Register(s)

	return &HealthServer{
		server: s,
		health: h,
		source: source,
		done:   make(chan struct{}),
	}
}

// Refresh copies the pool state into the health status
func (h *HealthServer) Refresh() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if h.source.Running() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(ServiceName, status)
	h.health.SetServingStatus("", status)
}

// Serve blocks serving lis and refreshes the status every interval
func (h *HealthServer) Serve(lis net.Listener, interval time.Duration) error {
	h.Refresh()
	go h.watch(interval)

	logger.Logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
	if err := h.server.Serve(lis); err != nil {
		return fmt.Errorf("gRPC server failed: %w", err)
	}
	return nil
}

func (h *HealthServer) watch(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.Refresh()
		}
	}
}

// Stop marks every service NOT_SERVING and stops the server gracefully
func (h *HealthServer) Stop(ctx context.Context) {
	close(h.done)
	h.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		h.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		h.server.Stop()
	}
}
