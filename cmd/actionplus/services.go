package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/EwwwzhI/ActionPlus/internal/clock"
	"github.com/EwwwzhI/ActionPlus/internal/config"
	"github.com/EwwwzhI/ActionPlus/internal/logging"
	"github.com/EwwwzhI/ActionPlus/internal/reminders"
	"github.com/EwwwzhI/ActionPlus/internal/scheduler"
	"github.com/EwwwzhI/ActionPlus/internal/storage"
)

func defaultConfigHint() string {
	return config.DefaultPath()
}

// services is everything a subcommand needs, opened from the config.
type services struct {
	cfg      config.Config
	logger   *slog.Logger
	clock    clock.Clock
	repo     *storage.SQLiteRepository
	store    *storage.StateStore
	delivery *scheduler.LocalDelivery
	syncers  []*reminders.Syncer
	metrics  *reminders.Metrics

	closers []func() error
}

type runtimeOptions struct {
	// logToFile sends logs to the TUI log file instead of stderr.
	logToFile bool
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	path := flags.configPath
	if strings.TrimSpace(path) == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	cfg = config.FromEnv(cfg)
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
		cfg.Backend = config.BackendSQLite
	}
	if flags.logLevel != "" {
		cfg.LogLevel = strings.ToLower(flags.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg.Resolve(), nil
}

func openRuntime(flags *globalFlags, opts runtimeOptions) (*services, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON, Service: "actionplus"}
	if opts.logToFile {
		logCfg.File = cfg.TUILogFile()
	} else if cfg.LogFile != "" {
		logCfg.File = cfg.LogFile
	}
	logger, closeLog, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	rt := &services{
		cfg:     cfg,
		logger:  logger,
		clock:   clock.System{},
		closers: []func() error{closeLog},
	}

	for _, dir := range []string{cfg.DataDir, filepath.Dir(cfg.DBPath), filepath.Dir(cfg.StateFile)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	var backend storage.Backend
	var ledger scheduler.Ledger
	switch cfg.Backend {
	case config.BackendFile:
		backend = storage.NewFileBackend(cfg.StateFile)
	default:
		repo, err := storage.OpenSQLite(cfg.DBPath)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		rt.repo = repo
		rt.closers = append(rt.closers, repo.Close)
		backend = storage.NewRepositoryBackend(repo, rt.clock)
		ledger = repo
	}
	rt.store = storage.NewStateStore(backend, rt.clock, logger)

	notificationsOn := cfg.Notifications
	rt.delivery = scheduler.NewLocalDelivery(scheduler.DeliveryOptions{
		Ledger:   ledger,
		Location: time.Local,
		Permission: func(context.Context) (reminders.PermissionStatus, error) {
			if notificationsOn {
				return reminders.PermissionGranted, nil
			}
			return reminders.PermissionDenied, nil
		},
		Clock:      rt.clock,
		Logger:     logger.With("component", "delivery"),
		BufferSize: cfg.SchedulerBuffer,
	})

	rt.metrics = reminders.NewMetrics(prometheus.NewRegistry())
	syncOpts := reminders.Options{
		Clock:            rt.clock,
		Logger:           logger.With("component", "reminders"),
		Metrics:          rt.metrics,
		ShortHorizonDays: cfg.ShortHorizonDays,
		LongHorizonDays:  cfg.LongHorizonDays,
		RepeatingDaily:   cfg.RepeatingDaily,
	}
	rt.syncers = []*reminders.Syncer{
		reminders.NewPeriodicSyncer(rt.delivery, syncOpts),
		reminders.NewLongtermSyncer(rt.delivery, syncOpts),
	}

	logger.Debug("runtime opened", "backend", cfg.Backend, "db", cfg.DBPath, "data_dir", cfg.DataDir)
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (r *services) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
