package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud-storage/internal/access"
	"cloud-storage/internal/app"
	"cloud-storage/internal/blobstore"
	"cloud-storage/internal/config"
	"cloud-storage/internal/handler"
	"cloud-storage/internal/handler/authHandler"
	"cloud-storage/internal/handler/fileHandler"
	"cloud-storage/internal/handler/healthHandler"
	"cloud-storage/internal/repository/BlackListRepo"
	"cloud-storage/internal/repository/refreshToken"
	"cloud-storage/internal/repository/throttleRepo"
	"cloud-storage/internal/service/authService"
	"cloud-storage/internal/service/fileService"
	"cloud-storage/pkg/database/redis"
	"cloud-storage/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthInterval = 15 * time.Second

func main() {
	ctx, err := logger.New(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.GetLogger(ctx)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	repos, err := app.OpenRepositories(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err), zap.String("driver", cfg.DatabaseDriver))
	}
	defer repos.Close()

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("cannot connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	store, err := blobstore.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("Failed to open blob store", zap.Error(err), zap.String("backend", cfg.Storage.Backend))
	}

	userRate, anonRate, err := cfg.Throttle.Rates()
	if err != nil {
		log.Fatal("Invalid throttle rates", zap.Error(err))
	}

	authSvc := authService.New(repos.Users, cfg.Auth, refreshToken.New(redisClient), BlackListRepo.NewBlackListRepo(redisClient))
	fileSvc := fileService.New(repos.Files, store, access.New(cfg.Access))

	health := healthHandler.New(
		healthHandler.Check{Name: "database", Ping: repos.Ping},
		healthHandler.Check{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		healthHandler.Check{Name: "storage", Ping: store.Ping},
	)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.Deps{
		Logger:        log,
		Authenticator: authSvc,
		Auth:          authHandler.New(authSvc),
		Files:         fileHandler.NewFileHandler(fileSvc),
		Health:        health,
		Counter:       throttleRepo.New(redisClient),
		UserRate:      userRate,
		AnonRate:      anonRate,
		CORS:          cfg.CORS,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http server started", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.Error(err), zap.String("port", cfg.GRPCPort))
	}
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, health.GRPCServer())
	go health.Watch(ctx, healthInterval)
	go func() {
		log.Info("grpc health server started", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	log.Info("server stopped")
}
