// Package install tracks platform installability and the install
// affordance.
package install

import (
	"context"
	"log/slog"
	"sync"
	"time"

	redisstore "github.com/mohamedirsath07/ExpireGuard/internal/redis"
	"github.com/mohamedirsath07/ExpireGuard/pkg/clock"
)

// State is the install affordance state.
type State string

const (
	StateUnavailable State = "unavailable"
	StateAvailable   State = "available"
	StateAccepted    State = "accepted"
	StateDismissed   State = "dismissed"
)

// DefaultSuppressWindow is how long re-prompting stays suppressed after an
// explicit dismissal.
const DefaultSuppressWindow = 7 * 24 * time.Hour

// Prompt is the deferred platform install action, captured once per page
// load. Trigger shows the native prompt and reports the user's choice.
type Prompt struct {
	Trigger func(ctx context.Context) (accepted bool, err error)
}

// Controller holds the single captured prompt and the dismissal-suppression
// policy.
type Controller struct {
	store  redisstore.StateStore
	window time.Duration
	clock  clock.Clock
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	prompt    *Prompt
	installed bool
}

// Option configures a Controller.
type Option func(*Controller)

func WithSuppressWindow(d time.Duration) Option { return func(c *Controller) { c.window = d } }
func WithClock(cl clock.Clock) Option { return func(c *Controller) { c.clock = cl } }
func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.logger = l } }

// NewController constructs a Controller in the unavailable state.
func NewController(store redisstore.StateStore, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		window: DefaultSuppressWindow,
		clock:  clock.System(),
		logger: slog.Default(),
		state:  StateUnavailable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capture records the platform's deferred install prompt. Only the first
// capture per page load takes effect, and a capture within the
// post-dismissal suppression window is ignored.
func (c *Controller) Capture(ctx context.Context, p *Prompt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.installed || c.prompt != nil || c.state == StateAccepted {
		return
	}

	dismissedAt, err := c.store.InstallDismissedAt(ctx)
	if err != nil {
		c.logger.Error("dismissal timestamp read failed", slog.String("error", err.Error()))
	} else if !dismissedAt.IsZero() && c.clock.Now().Sub(dismissedAt) < c.window {
		c.logger.Debug("install prompt suppressed after recent dismissal")
		return
	}

	c.prompt = p
	c.state = StateAvailable
}

// CanInstall reports whether an install affordance is currently available.
func (c *Controller) CanInstall() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateAvailable && c.prompt != nil
}

// IsInstalled reports whether the app has been installed.
func (c *Controller) IsInstalled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installed
}

// State returns the current affordance state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Install triggers the captured prompt and returns whether the user
// accepted. The prompt is consumed either way — the platform only allows
// it to be shown once.
func (c *Controller) Install(ctx context.Context) (bool, error) {
	c.mu.Lock()
	p := c.prompt
	c.prompt = nil
	c.mu.Unlock()

	if p == nil {
		return false, nil
	}

	accepted, err := p.Trigger(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateUnavailable
		c.mu.Unlock()
		return false, err
	}

	c.mu.Lock()
	if accepted {
		c.state = StateAccepted
		c.installed = true
	} else {
		c.state = StateDismissed
	}
	c.mu.Unlock()
	return accepted, nil
}

// Dismiss hides the affordance and suppresses re-prompting for the
// configured window.
func (c *Controller) Dismiss(ctx context.Context) {
	c.mu.Lock()
	c.state = StateDismissed
	c.prompt = nil
	c.mu.Unlock()

	if err := c.store.SetInstallDismissedAt(ctx, c.clock.Now()); err != nil {
		c.logger.Error("failed to persist install dismissal", slog.String("error", err.Error()))
	}
}

// MarkInstalled records an installation observed out of band (the platform
// "app installed" signal).
func (c *Controller) MarkInstalled() {
	c.mu.Lock()
	c.installed = true
	c.state = StateAccepted
	c.prompt = nil
	c.mu.Unlock()
}
