// Package catalog exposes the catalog's gRPC surface: the standard health
// service driven by the metadata store probe, plus server reflection.
package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is reported alongside the server-wide ("") status.
const ServiceName = "storefront.catalog.v1.Catalog"

const (
	DefaultProbeInterval = 10 * time.Second
	probeTimeout         = 3 * time.Second
)

// ProbeFunc reports whether the backing stores can serve requests.
type ProbeFunc func(ctx context.Context) error

// HealthReporter keeps the gRPC health status in step with a probe.
type HealthReporter struct {
	srv      *health.Server
	probe    ProbeFunc
	interval time.Duration
	log      *zap.Logger
}

// NewHealthReporter creates a reporter. Every service starts NOT_SERVING
// until the first probe succeeds.
func NewHealthReporter(probe ProbeFunc, interval time.Duration, log *zap.Logger) *HealthReporter {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{srv: srv, probe: probe, interval: interval, log: log.Named("grpc_health")}
}

// Register installs the health service and reflection on s.
func (h *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
	reflection.Register(s)
}

// Check runs the probe once and publishes the result.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.probe(ctx); err != nil {
		h.log.Warn("readiness probe failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(ServiceName, status)
	return status
}

// Run probes on every tick until ctx is done, then marks every service
// NOT_SERVING so watchers see the shutdown.
func (h *HealthReporter) Run(ctx context.Context) {
	h.Check(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
