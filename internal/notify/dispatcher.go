// Package notify turns classified expiry records into at most one platform
// notification per dispatch cycle.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
	redisstore "github.com/mohamedirsath07/ExpireGuard/internal/redis"
	"github.com/mohamedirsath07/ExpireGuard/internal/surface"
	"github.com/mohamedirsath07/ExpireGuard/pkg/clock"
	"github.com/mohamedirsath07/ExpireGuard/pkg/telemetry"
)

// DefaultRateLimitWindow is the minimum gap between platform notifications.
const DefaultRateLimitWindow = 4 * time.Hour

// Dispatcher rate-limits and deduplicates classifier output into a single
// platform notification per cycle. Surfaces are tried in order; the first
// success wins.
type Dispatcher struct {
	store    redisstore.StateStore
	surfaces []surface.Surface
	window   time.Duration
	clock    clock.Clock
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithWindow(d time.Duration) Option { return func(dp *Dispatcher) { dp.window = d } }
func WithClock(c clock.Clock) Option { return func(dp *Dispatcher) { dp.clock = c } }
func WithLogger(l *slog.Logger) Option { return func(dp *Dispatcher) { dp.logger = l } }

// NewDispatcher constructs a Dispatcher. Surfaces are attempted in the
// order given — put the worker registration first and the page-level
// fallback last.
func NewDispatcher(store redisstore.StateStore, surfaces []surface.Surface, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		surfaces: surfaces,
		window:   DefaultRateLimitWindow,
		clock:    clock.System(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch filters records to high urgency and attempts at most one
// platform delivery, gated by the rate-limit window unless force is set.
// The full input is always returned so the in-app panel reflects true
// state even when the push was suppressed.
func (d *Dispatcher) Dispatch(ctx context.Context, records []domain.NotificationRecord, force bool) []domain.NotificationRecord {
	ctx, span := otel.Tracer("notify").Start(ctx, "notify.dispatch")
	defer span.End()
	span.SetAttributes(attribute.Int("records.total", len(records)))

	var high []domain.NotificationRecord
	for _, rec := range records {
		if rec.Urgency == domain.UrgencyHigh {
			high = append(high, rec)
		}
	}
	span.SetAttributes(attribute.Int("records.high", len(high)))
	if len(high) == 0 {
		return records
	}

	now := d.clock.Now()
	if !force && !d.gateOpen(ctx, now) {
		d.logger.Debug("dispatch suppressed by rate limit",
			slog.Int("high_urgency", len(high)),
			slog.Duration("window", d.window),
		)
		telemetry.AgentDispatchSuppressedTotal.Inc()
		return records
	}

	n := compose(high)
	delivered := false
	for _, s := range d.surfaces {
		err := s.Show(ctx, n)
		if err == nil {
			delivered = true
			telemetry.AgentDispatchesTotal.WithLabelValues(s.Name()).Inc()
			d.logger.Info("notification delivered",
				slog.String("surface", s.Name()),
				slog.Int("count", len(high)),
			)
			break
		}

		var denied *domain.PermissionDeniedError
		if errors.As(err, &denied) {
			// Permission refusals are platform-wide; a fallback surface
			// would be refused too. Skip silently.
			d.logger.Debug("notification permission denied, skipping dispatch",
				slog.String("surface", s.Name()))
			telemetry.AgentPermissionDeniedTotal.Inc()
			return records
		}

		d.logger.Warn("notification surface failed, trying next",
			slog.String("surface", s.Name()),
			slog.String("error", err.Error()),
		)
	}

	if delivered {
		if err := d.store.SetLastDispatch(ctx, now); err != nil {
			d.logger.Error("failed to persist dispatch timestamp", slog.String("error", err.Error()))
		}
	}
	return records
}

// gateOpen reports whether enough time has passed since the last dispatch.
// Store errors fail open so a broken Redis never mutes alerts entirely.
func (d *Dispatcher) gateOpen(ctx context.Context, now time.Time) bool {
	last, err := d.store.LastDispatch(ctx)
	if err != nil {
		d.logger.Error("rate limit state read failed, allowing dispatch", slog.String("error", err.Error()))
		return true
	}
	return last.IsZero() || now.Sub(last) >= d.window
}

// compose collapses high-urgency records into one notification. A single
// record keeps its item-specific text; multiple records aggregate counts so
// one cycle never floods the tray.
func compose(high []domain.NotificationRecord) *domain.Notification {
	if len(high) == 1 {
		return domain.NewAlert(high[0].Title, high[0].Body, 1)
	}

	expired := 0
	for _, rec := range high {
		if rec.Type == domain.TypeExpired {
			expired++
		}
	}
	expiring := len(high) - expired

	var body string
	switch {
	case expired > 0 && expiring > 0:
		body = fmt.Sprintf("%d expired, %d expiring soon!", expired, expiring)
	case expired > 0:
		body = fmt.Sprintf("%s expired!", products(expired))
	default:
		body = fmt.Sprintf("%s expiring soon!", products(expiring))
	}

	return domain.NewAlert("ExpireGuard Alert", body, len(high))
}

func products(n int) string {
	if n == 1 {
		return "1 product"
	}
	return fmt.Sprintf("%d products", n)
}
