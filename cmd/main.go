package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/servebeer/pinning/internal/api"
	"github.com/servebeer/pinning/internal/config"
	"github.com/servebeer/pinning/internal/logger"
	"github.com/servebeer/pinning/internal/model"
	"github.com/servebeer/pinning/internal/repository/postgres"
	"github.com/servebeer/pinning/internal/service"
	"github.com/servebeer/pinning/internal/storage/ipfs"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	mode, err := model.ParseAdmissionMode(cfg.Admission.Mode)
	if err != nil {
		logger.Fatal("invalid admission mode", "error", err)
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	pinRepo := postgres.NewPinRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	backend := ipfs.NewClient(cfg.IPFS.APIURL, cfg.IPFS.Timeout)

	recorder := service.NewRecorder(auditRepo, logger)
	account := service.NewAccount(userRepo, service.TierLimits{
		Free: cfg.Admission.FreeTierLimit,
		Paid: cfg.Admission.PaidTierLimit,
	}, recorder, logger)
	status := service.NewStatus(userRepo, pinRepo, auditRepo, backend, db, mode, logger)

	ops := api.NewOps(status, account, logger)
	server := &http.Server{
		Addr:              cfg.Ops.Addr,
		Handler:           ops.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting ops server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", "error", err)
		}
	}()

	logAppVersion()
	logger.Info("admission pipeline ready", "mode", mode)

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
