package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/avanserv/deurapi/internal/auth"
	"github.com/avanserv/deurapi/internal/config"
	"github.com/avanserv/deurapi/internal/db"
	"github.com/avanserv/deurapi/internal/deur/doorhw"
	"github.com/avanserv/deurapi/internal/deur/service"
	sqlitestore "github.com/avanserv/deurapi/internal/deur/store/sqlite"
	"github.com/avanserv/deurapi/internal/httpapi"
	"github.com/avanserv/deurapi/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	logger := log.New(os.Stdout, "deurapi ", log.LstdFlags|log.LUTC)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			logger.Fatalf("seed dev data: %v", err)
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	directory := sqlitestore.NewDirectoryStore(conn, writer)
	attempts := sqlitestore.NewAttemptStore(conn, writer)

	// Scan source for enrollment: the local attempt log, or the door
	// controller's own failure log.
	var scans service.DeniedScanSource = attempts
	if cfg.ScanSource == "door" {
		client, err := doorhw.NewClient(cfg.DoorFailuresURL, time.Duration(cfg.AuthTimeoutSeconds)*time.Second)
		if err != nil {
			logger.Fatalf("door client: %v", err)
		}
		scans = client
	}

	// Services
	validator := service.NewScanValidator(scans)
	accessSvc := service.NewAccessService(directory, attempts, logger)
	enrollment := service.NewEnrollmentService(validator, directory)
	presence, err := service.NewPresenceService(directory, attempts)
	if err != nil {
		logger.Fatalf("presence service: %v", err)
	}

	tokens := auth.NewTokenValidator(auth.Config{
		AuthServerURL:  cfg.AuthServerURL,
		BoardResource:  cfg.BoardResource,
		DeviceResource: cfg.DeviceResource,
		Timeout:        time.Duration(cfg.AuthTimeoutSeconds) * time.Second,
	})

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		logger.Fatalf("register metrics: %v", err)
	}

	// Retention
	pruner := service.NewAttemptPruner(attempts, service.PrunerConfig{
		RetentionDays: cfg.AttemptRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:      logger,
		Addr:        cfg.HTTPAddr,
		DocsBaseURL: cfg.DocsBaseURL,
		Tokens:      tokens,
		Directory:   directory,
		Access:      accessSvc,
		Enrollment:  enrollment,
		Checker:     validator,
		Presence:    presence,
		Metrics:     m,
		Registry:    registry,
		Health:      conn.PingContext,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
