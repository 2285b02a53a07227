package main

import (
	"context"

	"go.uber.org/zap"

	"growthops/internal/config"
	"growthops/internal/db"
	"growthops/internal/events"
	"growthops/internal/lock"
	"growthops/internal/logger"
	"growthops/internal/observability"
	"growthops/internal/paas"
	gormrepository "growthops/internal/repository/gorm"
	"growthops/internal/runner"
	"growthops/internal/service"
)

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	db       *db.DB
	store    *gormrepository.Store
	settings *service.SystemSettingsService
	hub      *events.Hub
	paas     *paas.Client
	metrics  *observability.Metrics
	runner   *runner.Runner
}

func newApp(ctx context.Context, cfg config.Config, migrate bool) (*app, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(cfg.DB)
	if err != nil {
		log.Error("db open failed", zap.Error(err))
		return nil, err
	}
	if err := db.SetTimezone(conn, cfg.DB.Timezone); err != nil {
		log.Warn("failed to set timezone", zap.Error(err))
	}
	if migrate {
		if err := db.AutoMigrate(conn); err != nil {
			_ = db.Close(conn)
			log.Error("auto-migrate failed", zap.Error(err))
			return nil, err
		}
	}

	store := gormrepository.New(conn.Gorm)
	settings := &service.SystemSettingsService{Repo: store}
	if err := settings.EnsureDefaultSwitches(ctx); err != nil {
		log.Warn("init default system switches failed", zap.Error(err))
	}

	a := &app{
		cfg:      cfg,
		logger:   log,
		db:       conn,
		store:    store,
		settings: settings,
		hub:      events.NewHub(),
		paas:     paas.NewFromConfig(cfg.PaaS),
	}
	if cfg.Metrics.Enabled {
		a.metrics = observability.NewMetrics()
	}
	if a.paas != nil {
		log.Info("paas log forwarding configured", zap.String("base_url", cfg.PaaS.BaseURL))
	}

	r := runner.New(store, log, cfg.Runner)
	r.Locker = lock.New(cfg.Lock, cfg.Redis)
	r.Hub = a.hub
	r.PaaS = a.paas
	r.Switches = settings
	r.Metrics = a.metrics
	a.runner = r
	return a, nil
}

// close drains background forwarding before releasing the database.
func (a *app) close() {
	if a == nil {
		return
	}
	a.runner.Wait()
	_ = db.Close(a.db)
	_ = a.logger.Sync()
}

func (a *app) reaper() *service.ExecutionReaper {
	return &service.ExecutionReaper{
		Repo:       a.store,
		Settings:   a.settings,
		Metrics:    a.metrics,
		Logger:     a.logger.Named("reaper"),
		StaleAfter: a.cfg.Reaper.StaleAfter,
		BatchSize:  a.cfg.Reaper.BatchSize,
	}
}
