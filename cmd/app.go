package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mmdesignweb/crm-notifier/internal/build"
	"github.com/mmdesignweb/crm-notifier/internal/config"
	"github.com/mmdesignweb/crm-notifier/internal/expiration"
	"github.com/mmdesignweb/crm-notifier/internal/logger"
	"github.com/mmdesignweb/crm-notifier/internal/metrics"
	"github.com/mmdesignweb/crm-notifier/internal/notification"
	"github.com/mmdesignweb/crm-notifier/internal/service"
	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

// app bundles the long-lived components shared by the subcommands.
type app struct {
	cfg        *config.AppConfig
	logger     *slog.Logger
	store      storage.Store
	provider   notification.Provider
	metrics    *metrics.Metrics
	dispatcher *expiration.Dispatcher
	svc        service.NotificationService

	closers []io.Closer
}

// newSystemLogger builds the process logger according to LOG_FORMAT.
func newSystemLogger(cfg *config.AppConfig) (*slog.Logger, io.Closer, error) {
	if cfg.LogFormat == "stdout" {
		return logger.NewStreamLogger(os.Stdout, cfg.SlogLevel()), closerFunc(func() error { return nil }), nil
	}
	return logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel())
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// logFile is the path printed to the user when logs go to disk.
func logFile(cfg *config.AppConfig) string {
	if cfg.LogFormat == "stdout" {
		return "stdout"
	}
	return filepath.Join(cfg.LogDir(), "system.log")
}

// newApp validates cfg and wires store, notifier, dispatcher and service.
func newApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	expCfg, err := cfg.ExpirationConfig()
	if err != nil {
		return nil, err
	}

	sysLogger, logCloser, err := newSystemLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	a := &app{cfg: cfg, logger: sysLogger, closers: []io.Closer{logCloser}}

	sysLogger.Info("crm-notifier starting",
		slog.String("db_driver", cfg.DBDriver),
		slog.String("notifier", cfg.Notifier),
		slog.String("timezone", expCfg.Location.String()),
		slog.String("version", build.Version),
		slog.String("commit", build.Commit()),
		slog.String("build_date", build.BuildDate),
	)

	store, err := storage.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, store)

	a.provider = newProvider(cfg, sysLogger)
	a.metrics = metrics.New()

	a.dispatcher, err = expiration.NewDispatcher(expCfg, store, store, a.provider,
		expiration.WithLogger(sysLogger),
		expiration.WithRecorder(a.metrics),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.svc = service.NewNotificationService(a.dispatcher, store, a.provider, cfg.TestEmailTo, cfg.RunTimeout, sysLogger)
	return a, nil
}

func newProvider(cfg *config.AppConfig, logger *slog.Logger) notification.Provider {
	var p notification.Provider
	switch cfg.Notifier {
	case "log":
		p = notification.NewLogProvider(logger)
	default:
		p = notification.NewSMTPProvider(cfg.SMTPConfig())
	}
	return notification.NewRateLimitedProvider(p, cfg.NotifyRatePerSecond, cfg.NotifyBurst)
}

// Close releases the store and flushes the log file, newest first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
