package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cronrunner "growthops/internal/cron"
	"growthops/internal/observability"
	"growthops/internal/paas"
	"growthops/internal/server"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background jobs",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "auto-migrate the schema on start")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, serveMigrate)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	shutdownTracing := observability.InitTracing(ctx, logger, cfg.Tracing, cfg.App)
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	engine := server.NewRouter(server.Deps{
		Config:   cfg,
		DB:       a.db.Gorm,
		Repo:     a.store,
		Runner:   a.runner,
		Settings: a.settings,
		Hub:      a.hub,
		PaaS:     a.paas,
		Metrics:  a.metrics,
		Logger:   logger,
	})
	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	baseCtx := ctx
	if a.paas != nil {
		baseCtx = paas.WithClient(ctx, a.paas)
	}
	cron := cronrunner.New(logger, baseCtx)
	reaper := a.reaper()
	if _, err := cron.Add("execution_reaper", cfg.Reaper.Schedule, func(ctx context.Context) error {
		n, err := reaper.Run(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			paas.LogBestEffortCtx(ctx, "growthops_execution_reaper", "warn", map[string]any{"reaped": n})
		}
		return nil
	}); err != nil {
		logger.Warn("cron execution reaper not scheduled", zap.String("schedule", cfg.Reaper.Schedule), zap.Error(err))
	}
	cron.Start()
	defer cron.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case serveErr = <-errCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	return serveErr
}
