// Package agent implements the page-side background agent: the periodic
// expiry evaluation loop, the update and install affordances, and the REST
// API the UI talks to.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mohamedirsath07/ExpireGuard/internal/bus"
	"github.com/mohamedirsath07/ExpireGuard/internal/classify"
	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
	"github.com/mohamedirsath07/ExpireGuard/internal/install"
	"github.com/mohamedirsath07/ExpireGuard/internal/inventory"
	"github.com/mohamedirsath07/ExpireGuard/internal/notify"
	"github.com/mohamedirsath07/ExpireGuard/internal/update"
	"github.com/mohamedirsath07/ExpireGuard/pkg/clock"
	"github.com/mohamedirsath07/ExpireGuard/pkg/telemetry"
)

// DefaultSchedule runs an evaluation once an hour.
const DefaultSchedule = "@hourly"

// Agent wires the inventory, classifier, and dispatcher into the periodic
// evaluation loop and keeps the latest records for the in-app panel.
type Agent struct {
	provider   inventory.Provider
	dispatcher *notify.Dispatcher
	notifier   *update.Notifier
	installer  *install.Controller
	sub        bus.Subscriber
	schedule   cron.Schedule
	clock      clock.Clock
	logger     *slog.Logger

	mu       sync.RWMutex
	records  []domain.NotificationRecord
	lastEval time.Time
}

// Option configures an Agent.
type Option func(*Agent)

func WithClock(c clock.Clock) Option { return func(a *Agent) { a.clock = c } }
func WithLogger(l *slog.Logger) Option { return func(a *Agent) { a.logger = l } }

// New constructs an Agent. scheduleExpr is a standard cron expression or a
// descriptor like "@hourly".
func New(
	provider inventory.Provider,
	dispatcher *notify.Dispatcher,
	notifier *update.Notifier,
	installer *install.Controller,
	sub bus.Subscriber,
	scheduleExpr string,
	opts ...Option,
) (*Agent, error) {
	if scheduleExpr == "" {
		scheduleExpr = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(scheduleExpr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", scheduleExpr, err)
	}

	a := &Agent{
		provider:   provider,
		dispatcher: dispatcher,
		notifier:   notifier,
		installer:  installer,
		sub:        sub,
		schedule:   schedule,
		clock:      clock.System(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run mounts the update notifier, starts the broadcast listener, and drives
// the evaluation schedule. Blocks until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.notifier.Mount(ctx)

	if a.sub != nil {
		go func() {
			if err := a.sub.Subscribe(ctx, bus.ChannelPage, a.notifier.OnMessage); err != nil {
				a.logger.Error("page broadcast listener stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// Evaluate once on startup, then on schedule.
	if _, err := a.Evaluate(ctx, false); err != nil {
		a.logger.Error("startup evaluation failed", slog.String("error", err.Error()))
	}

	for {
		next := a.schedule.Next(a.clock.Now())
		timer := time.NewTimer(next.Sub(a.clock.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			if _, err := a.Evaluate(ctx, false); err != nil {
				a.logger.Error("scheduled evaluation failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Evaluate fetches the inventory snapshot, classifies it, and hands the
// records to the dispatcher. force bypasses the dispatch rate limit. On a
// fetch failure the previous records are kept.
func (a *Agent) Evaluate(ctx context.Context, force bool) ([]domain.NotificationRecord, error) {
	ctx, span := otel.Tracer("agent").Start(ctx, "agent.evaluate")
	defer span.End()
	span.SetAttributes(attribute.Bool("force", force))

	items, err := a.provider.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inventory fetch failed")
		return nil, fmt.Errorf("fetch inventory: %w", err)
	}
	span.SetAttributes(attribute.Int("items", len(items)))

	now := a.clock.Now()
	records := classify.Classify(items, now)
	records = a.dispatcher.Dispatch(ctx, records, force)

	a.mu.Lock()
	a.records = records
	a.lastEval = now
	a.mu.Unlock()

	telemetry.AgentEvaluationsTotal.Inc()
	publishRecordGauges(records)

	a.logger.Info("evaluation complete",
		slog.Int("items", len(items)),
		slog.Int("records", len(records)),
	)
	return records, nil
}

// Records returns the latest classification output and when it was produced.
func (a *Agent) Records() ([]domain.NotificationRecord, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.NotificationRecord, len(a.records))
	copy(out, a.records)
	return out, a.lastEval
}

// Notifier exposes the update affordance to the API layer.
func (a *Agent) Notifier() *update.Notifier { return a.notifier }

// Installer exposes the install affordance to the API layer.
func (a *Agent) Installer() *install.Controller { return a.installer }

func publishRecordGauges(records []domain.NotificationRecord) {
	counts := map[domain.NotificationType]int{
		domain.TypeExpired: 0,
		domain.TypeToday:   0,
		domain.TypeUrgent:  0,
		domain.TypeWarning: 0,
	}
	for _, rec := range records {
		counts[rec.Type]++
	}
	for typ, n := range counts {
		telemetry.AgentRecords.WithLabelValues(string(typ)).Set(float64(n))
	}
}
