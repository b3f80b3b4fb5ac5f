// Command sweep deletes blobs that no file record references.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud-storage/internal/app"
	"cloud-storage/internal/blobstore"
	"cloud-storage/internal/config"
	"cloud-storage/internal/service/sweepService"
	"cloud-storage/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	var (
		grace   = flag.Duration("grace", time.Hour, "leave blobs younger than this alone")
		dryRun  = flag.Bool("dry-run", false, "report orphans without deleting them")
		envFile = flag.String("config", ".env", "config file")
	)
	flag.Parse()

	ctx, err := logger.New(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.GetLogger(ctx)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}
	repos, err := app.OpenRepositories(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer repos.Close()

	store, err := blobstore.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("Failed to open blob store", zap.Error(err))
	}

	report, err := sweepService.New(repos.Files, store).Sweep(ctx, *grace, *dryRun)
	if err != nil {
		log.Error("sweep aborted", zap.Error(err))
	}
	if report != nil {
		fmt.Printf("scanned=%d orphaned=%d deleted=%d failed=%d bytes=%d\n",
			report.Scanned, report.Orphaned, report.Deleted, report.Failed, report.Bytes)
	}
	if err != nil {
		os.Exit(1)
	}
}
