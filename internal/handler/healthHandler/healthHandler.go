package healthHandler

import (
	"context"
	"net/http"
	"time"

	"cloud-storage/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const checkTimeout = 2 * time.Second

// Check pings one dependency.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	checks []Check
	grpc   *health.Server
}

func New(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks, grpc: health.NewServer()}
}

// GRPCServer is the grpc.health.v1 service kept in step with the checks.
func (h *HealthHandler) GRPCServer() *health.Server {
	return h.grpc
}

func (h *HealthHandler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	failed := h.run(c.Request.Context())
	status := http.StatusOK
	if len(failed) > 0 {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err, ok := failed[check.Name]; ok {
			checks[check.Name] = err.Error()
		} else {
			checks[check.Name] = "ok"
		}
	}
	c.JSON(status, gin.H{"status": statusText(len(failed) == 0), "checks": checks})
}

// Watch re-runs the checks every interval and updates the gRPC serving
// status until ctx is done, when it reports NOT_SERVING.
func (h *HealthHandler) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.update(ctx)
	for {
		select {
		case <-ctx.Done():
			h.grpc.Shutdown()
			return
		case <-ticker.C:
			h.update(ctx)
		}
	}
}

func (h *HealthHandler) update(ctx context.Context) {
	failed := h.run(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if len(failed) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		for name, err := range failed {
			logger.GetLogger(ctx).Warn("health check failed", zap.String("check", name), zap.Error(err))
		}
	}
	h.grpc.SetServingStatus("", status)
}

func (h *HealthHandler) run(ctx context.Context) map[string]error {
	failed := make(map[string]error)
	for _, check := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		if err := check.Ping(checkCtx); err != nil {
			failed[check.Name] = err
		}
		cancel()
	}
	return failed
}

func statusText(ok bool) string {
	if ok {
		return "ok"
	}
	return "unavailable"
}
