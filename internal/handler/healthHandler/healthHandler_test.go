package healthHandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud-storage/internal/handler/healthHandler"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func ok(context.Context) error { return nil }

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("all checks pass", func(t *testing.T) {
		h := healthHandler.New(healthHandler.Check{Name: "database", Ping: ok})
		router := gin.New()
		h.Register(router)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, w.Body.String())
	})

	t.Run("failing check", func(t *testing.T) {
		h := healthHandler.New(
			healthHandler.Check{Name: "database", Ping: ok},
			healthHandler.Check{Name: "storage", Ping: func(context.Context) error { return errors.New("disk gone") }},
		)
		router := gin.New()
		h.Register(router)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "unavailable", body.Status)
		assert.Equal(t, "disk gone", body.Checks["storage"])
		assert.Equal(t, "ok", body.Checks["database"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	healthHandler.New().Register(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestWatch_UpdatesGRPCStatus(t *testing.T) {
	h := healthHandler.New(healthHandler.Check{Name: "database", Ping: ok})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Watch(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := h.GRPCServer().Check(context.Background(), &healthpb.HealthCheckRequest{})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	resp, err := h.GRPCServer().Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
