package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmdesignweb/crm-notifier/internal/api"
	"github.com/mmdesignweb/crm-notifier/internal/build"
	"github.com/mmdesignweb/crm-notifier/internal/config"
	"github.com/mmdesignweb/crm-notifier/internal/scheduler"
	"github.com/mmdesignweb/crm-notifier/internal/server"
	"github.com/mmdesignweb/crm-notifier/internal/telemetry"
)

// NewServeCmd returns the "serve" subcommand that starts the HTTP server and,
// when a schedule is configured, the in-process scheduler.
func NewServeCmd(cfg *config.AppConfig) *cobra.Command {
	var port int
	var schedule string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP trigger endpoint",
		Long: `Start the HTTP server exposing /api/cron/check-expirations for an external
scheduler, plus /health and /metrics. With --schedule (or SCHEDULE_CRON) the
check also runs on that cron expression in BUSINESS_TIMEZONE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("schedule") {
				cfg.ScheduleCron = schedule
			}

			serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
			printBanner(build.Version, serverURL, cfg.ScheduleCron, logFile(cfg))

			if err := runServe(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "An error occurred: %v\nPlease check the logs at: %s\n", err, logFile(cfg))
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides PORT env var)")
	cmd.Flags().StringVar(&schedule, "schedule", cfg.ScheduleCron, "Cron expression for in-process runs (overrides SCHEDULE_CRON)")

	return cmd
}

func runServe(cfg *config.AppConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if cfg.CronSecret == "" {
		a.logger.Warn("CRON_SECRET is empty; every HTTP request will be rejected")
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: "crm-notifier",
		Version:     build.Version,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			a.logger.Warn("flushing traces", "error", err)
		}
	}()

	if cfg.ScheduleCron != "" {
		sched, err := scheduler.New(scheduler.Config{
			Schedule: cfg.ScheduleCron,
			Location: a.dispatcher.Config().Location,
			Timeout:  cfg.RunTimeout,
			Logger:   a.logger,
			Run: func(ctx context.Context) error {
				summary, err := a.svc.CheckExpirations(ctx)
				if err != nil {
					return err
				}
				a.logger.Info("scheduled run summary",
					slog.Int("found", summary.Found),
					slog.Int("sent", summary.Sent),
					slog.Int("skipped", summary.Skipped),
					slog.Int("failed", summary.Failed),
				)
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("creating scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				a.logger.Warn("stopping scheduler", "error", err)
			}
		}()
	}

	apiSrv := api.New(a.svc, cfg.CronSecret, a.logger)
	srv := server.New(apiSrv, server.Options{
		Port:           cfg.Port,
		Metrics:        a.metrics.Handler(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         a.logger,
	})

	a.logger.Info("server ready", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// printBanner writes the startup banner to stdout. Structured logs go to the
// log file unless LOG_FORMAT=stdout.
func printBanner(version, serverURL, schedule, logFile string) {
	fmt.Print(`
  ___ ___ __  __            _   _ ___ _
 / __| _ \  \/  |  ___ ___ | |_(_) __(_)___ _ _
| (__|   / |\/| | |___|   \/ _ \ |  _| / -_) '_|
 \___|_|_\_|  |_|     |_||_\___/_|_| |_\___|_|

`)
	fmt.Printf("crm-notifier %s running.\n", version)
	fmt.Printf("Trigger: POST %s/api/cron/check-expirations\n", serverURL)
	if schedule != "" {
		fmt.Printf("Schedule: %s\n", schedule)
	}
	fmt.Printf("Logs: %s\n\n", logFile)
}
