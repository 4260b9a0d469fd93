package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/expense-ledger/internal/config"
	"github.com/Dan9191/expense-ledger/internal/handler"
	"github.com/Dan9191/expense-ledger/internal/ledger"
	"github.com/Dan9191/expense-ledger/internal/repository"
	"github.com/Dan9191/expense-ledger/internal/scheduler"
	"github.com/Dan9191/expense-ledger/internal/service"
	"github.com/Dan9191/expense-ledger/internal/utils/email"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("Failed to load time zone: %v", err)
	}

	// Initialize database
	ctx := context.Background()
	db, err := repository.Open(ctx, cfg.DBDriver, cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo, err := repository.NewRepository(db, cfg.DBDriver)
	if err != nil {
		logger.Fatalf("Failed to initialize repository: %v", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize layers
	mailer := email.NewSender(cfg, logger)
	engine := ledger.NewEngine(repo, logger,
		ledger.WithDefaultCurrency(cfg.DefaultCurrency),
		ledger.WithWarningHook(mailer.NotifyIntegrityWarning),
	)
	sched := scheduler.NewScheduler(engine, repo, logger,
		scheduler.WithNotifier(mailer),
		scheduler.WithLocation(loc),
		scheduler.WithSpec(cfg.SchedulerSpec),
	)
	svc := service.NewService(repo, engine, logger, cfg)
	h := handler.NewHandler(svc, sched, logger)

	if err := sched.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, cfg, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s (%s)", addr, cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("Scheduler job still running at shutdown")
	}
	if err := mailer.Wait(shutdownCtx); err != nil {
		logger.Warn("Integrity warning emails still sending at shutdown")
	}
}
