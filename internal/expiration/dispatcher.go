package expiration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmdesignweb/crm-notifier/internal/notification"
	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

const tracerName = "github.com/mmdesignweb/crm-notifier/internal/expiration"

// Dispatcher runs the scan, suppress, send and log pipeline.
type Dispatcher struct {
	cfg        Config
	scanner    *Scanner
	suppressor *Suppressor
	log        storage.NotificationStore
	notifier   notification.Provider
	logger     *slog.Logger
	recorder   Recorder
	tracer     trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithRecorder sets the run recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// NewDispatcher validates cfg and wires the pipeline.
func NewDispatcher(cfg Config, services storage.ServiceStore, log storage.NotificationStore,
	notifier notification.Provider, opts ...Option) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Dispatcher{
		cfg:        cfg,
		scanner:    NewScanner(services, cfg.location(), cfg.StoreTimeout),
		suppressor: NewSuppressor(log, cfg.StoreTimeout),
		log:        log,
		notifier:   notifier,
		logger:     slog.New(slog.DiscardHandler),
		recorder:   nopRecorder{},
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the validated configuration.
func (d *Dispatcher) Config() Config { return d.cfg }

// RunExpirationCheck performs one run at instant now. It fails only when the
// initial scan fails; every per-candidate problem is reported in the summary.
func (d *Dispatcher) RunExpirationCheck(ctx context.Context, now time.Time) (*RunSummary, error) {
	return d.run(ctx, now, false)
}

// DryRun evaluates candidates and suppression like RunExpirationCheck but
// neither sends nor logs. Sent counts the reminders that would go out.
func (d *Dispatcher) DryRun(ctx context.Context, now time.Time) (*RunSummary, error) {
	return d.run(ctx, now, true)
}

// UpcomingRenewals lists the candidates renewing within days of now.
func (d *Dispatcher) UpcomingRenewals(ctx context.Context, now time.Time, days int) ([]storage.Candidate, error) {
	return d.scanner.FindCandidates(ctx, now, days)
}

func (d *Dispatcher) run(ctx context.Context, now time.Time, dry bool) (*RunSummary, error) {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "expiration.run", trace.WithAttributes(
		attribute.Bool("dry_run", dry),
		attribute.Int("lookahead_days", d.cfg.LookaheadDays),
	))
	defer span.End()

	candidates, err := d.scanner.FindCandidates(ctx, now, d.cfg.LookaheadDays)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		d.logger.ErrorContext(ctx, "expiration scan failed", "error", err)
		d.recorder.ObserveRun(nil, err, time.Since(start))
		return nil, err
	}

	summary := &RunSummary{StartedAt: now, DryRun: dry, Found: len(candidates)}
	if len(candidates) == 0 {
		d.logger.InfoContext(ctx, "no expiring services found")
		d.recorder.ObserveRun(summary, nil, time.Since(start))
		return summary, nil
	}
	d.logger.InfoContext(ctx, "expiring services found", "count", len(candidates), "dry_run", dry)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, d.cfg.Concurrency)
	)
	for _, c := range candidates {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			o := d.process(ctx, c, now, dry)
			mu.Lock()
			summary.add(o)
			mu.Unlock()
		}()
	}
	wg.Wait()
	summary.sortItems()

	span.SetAttributes(
		attribute.Int("found", summary.Found),
		attribute.Int("sent", summary.Sent),
		attribute.Int("skipped", summary.Skipped),
		attribute.Int("failed", summary.Failed),
	)
	d.logger.InfoContext(ctx, "expiration run completed",
		"found", summary.Found,
		"sent", summary.Sent,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"errors", len(summary.Errors),
		"dry_run", dry,
		"duration", time.Since(start),
	)
	d.recorder.ObserveRun(summary, nil, time.Since(start))
	return summary, nil
}

// process handles one candidate. It never panics the run and never returns
// an error; failures become outcomes.
func (d *Dispatcher) process(ctx context.Context, c storage.Candidate, now time.Time, dry bool) (o outcome) {
	id := c.Service.ID
	o.serviceID = id

	ctx, span := d.tracer.Start(ctx, "expiration.candidate",
		trace.WithAttributes(attribute.String("service.id", id)))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			o = outcome{serviceID: id, kind: outcomeFailed, err: fmt.Errorf("unexpected panic: %v", r)}
		}
		if o.err != nil {
			span.RecordError(o.err)
			span.SetStatus(codes.Error, o.err.Error())
		}
	}()

	if c.Client == nil {
		d.logger.WarnContext(ctx, "service has no linked client", "service_id", id)
		return outcome{serviceID: id, kind: outcomeSkipped, reason: SkipNoClient}
	}
	email := strings.TrimSpace(c.Client.Email)
	if email == "" {
		d.logger.WarnContext(ctx, "client has no contact email", "service_id", id, "client_id", c.Client.ID)
		return outcome{serviceID: id, kind: outcomeSkipped, reason: SkipNoEmail}
	}

	recent, err := d.suppressor.HasRecentNotification(ctx, id, d.cfg.Kind, now, d.cfg.SuppressionWindowDays)
	if err != nil {
		d.logger.ErrorContext(ctx, "suppression check failed", "service_id", id, "error", err)
		return outcome{serviceID: id, kind: outcomeFailed, err: err}
	}
	if recent {
		d.logger.InfoContext(ctx, "notification already sent", "service_id", id)
		return outcome{serviceID: id, kind: outcomeSkipped, reason: SkipAlreadyNotified}
	}

	msg, err := notification.NewReminderMessage(email, notification.Reminder{
		ClientName:  c.Client.Name,
		ServiceName: notification.ServiceDisplayName(c.Service.Description, c.Service.Type),
		RenewalDate: c.Service.RenewalDate,
	}, now)
	if err != nil {
		return outcome{serviceID: id, kind: outcomeFailed, err: err}
	}
	if dry {
		d.logger.InfoContext(ctx, "dry run: reminder would be sent", "service_id", id, "to", email)
		return outcome{serviceID: id, kind: outcomeSent}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	err = d.notifier.Send(sendCtx, msg)
	cancel()
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to send reminder", "service_id", id, "provider", d.notifier.Name(), "error", err)
		return outcome{serviceID: id, kind: outcomeFailed, err: err}
	}

	// The mail is out. Record it even if the caller has gone away, otherwise
	// the next run sends it again.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.StoreTimeout)
	err = d.log.LogNotification(logCtx, storage.NotificationLogEntry{
		ServiceID: id,
		Kind:      d.cfg.Kind,
		Recipient: email,
		Status:    storage.NotificationStatusSent,
		CreatedAt: now,
	})
	cancel()
	switch {
	case errors.Is(err, storage.ErrDuplicateNotification):
		d.logger.WarnContext(ctx, "reminder logged concurrently by another run", "service_id", id)
		return outcome{serviceID: id, kind: outcomeSkipped, reason: SkipAlreadyNotified}
	case err != nil:
		d.logger.ErrorContext(ctx, "reminder sent but not logged", "service_id", id, "error", err)
		return outcome{serviceID: id, kind: outcomeSent, err: fmt.Errorf("reminder sent but not logged: %w", err)}
	}

	d.logger.InfoContext(ctx, "reminder sent", "service_id", id, "to", email)
	return outcome{serviceID: id, kind: outcomeSent}
}
