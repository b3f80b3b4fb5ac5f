// Package handler assembles the HTTP surface of the service.
package handler

import (
	"net/http"

	"cloud-storage/internal/handler/authHandler"
	"cloud-storage/internal/handler/fileHandler"
	"cloud-storage/internal/handler/healthHandler"
	"cloud-storage/internal/handler/respond"
	"cloud-storage/pkg/logger"
	"cloud-storage/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Logger        *logger.Logger
	Authenticator middleware.Authenticator
	Auth          *authHandler.AuthHandler
	Files         *fileHandler.FileHandler
	Health        *healthHandler.HealthHandler
	Counter       middleware.Counter
	UserRate      middleware.Rate
	AnonRate      middleware.Rate
	CORS          middleware.CORSConfig
}

// NewRouter wires middleware and routes. Every request is logged and
// measured; authenticated routes are throttled per user and the public
// credential and short-link routes per client IP.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestLogger(d.Logger),
		middleware.Metrics(),
		middleware.CORS(d.CORS),
	)
	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "NOT_FOUND", "Not found.")
	})

	throttle := middleware.Throttle(d.Counter, d.UserRate, d.AnonRate)
	private := []gin.HandlerFunc{middleware.RequireAuth(d.Authenticator), throttle}
	public := []gin.HandlerFunc{middleware.OptionalAuth(d.Authenticator), throttle}

	d.Health.Register(r)
	d.Auth.Register(r, private, public)
	d.Files.Register(r, private, public)
	return r
}
