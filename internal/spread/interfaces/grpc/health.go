// Package grpc 价差服务的 gRPC 健康检查
package grpc

import (
	"context"
	"time"

	"github.com/wyfcoding/spreadhub/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName 健康检查中登记的服务名
const ServiceName = "spread"

// Pinger 存储连通性检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer 按存储连通性周期性更新健康状态
type HealthServer struct {
	srv      *health.Server
	pinger   Pinger
	interval time.Duration
}

func NewHealthServer(pinger Pinger, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	srv := health.NewServer()
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{srv: srv, pinger: pinger, interval: interval}
}

// Register 注册到 gRPC 服务
func (h *HealthServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Check 执行一次探测并更新状态
func (h *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.Ping(ctx); err != nil {
		logger.Warn(ctx, "storage ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus(ServiceName, status)
	h.srv.SetServingStatus("", status)
	return status
}

// Run 周期探测直到 ctx 结束，结束时标记为 NOT_SERVING
func (h *HealthServer) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return nil
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
