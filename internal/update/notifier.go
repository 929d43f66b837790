// Package update tracks whether an installed generation is waiting for
// activation and drives the "Update Now" affordance.
package update

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mohamedirsath07/ExpireGuard/internal/bus"
	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
	redisstore "github.com/mohamedirsath07/ExpireGuard/internal/redis"
)

// Notifier mirrors the worker's waiting slot for UI purposes. It is fed by
// two signals — install broadcasts and a poll of the persisted waiting slot
// on mount — because broadcast delivery is best-effort and the page may not
// have been listening when a generation finished installing.
type Notifier struct {
	store  redisstore.StateStore
	pub    bus.Publisher
	reload func()
	logger *slog.Logger

	mu         sync.Mutex
	waiting    int
	hasWaiting bool
	dismissed  bool
}

// New constructs a Notifier. reload is invoked after a successful
// activation request (the page reloads to come under the new generation's
// control); pass nil to skip.
func New(store redisstore.StateStore, pub bus.Publisher, reload func(), logger *slog.Logger) *Notifier {
	return &Notifier{store: store, pub: pub, reload: reload, logger: logger}
}

// Mount polls the persisted waiting slot. Call once when the page context
// starts; it compensates for broadcasts missed before subscription.
func (n *Notifier) Mount(ctx context.Context) {
	v, ok, err := n.store.WaitingVersion(ctx)
	if err != nil {
		n.logger.Error("waiting slot poll failed", slog.String("error", err.Error()))
		return
	}
	if !ok {
		return
	}
	n.mu.Lock()
	n.waiting = v
	n.hasWaiting = true
	n.mu.Unlock()
	n.logger.Info("waiting generation found on mount", slog.Int("version", v))
}

// OnMessage is the bus handler for page broadcasts. Racing updates resolve
// last-write-wins: only the most recently observed waiting version is kept.
func (n *Notifier) OnMessage(_ context.Context, msg bus.Message) {
	switch msg.Type {
	case bus.TypeInstalled:
		n.mu.Lock()
		n.waiting = msg.Version
		n.hasWaiting = true
		n.mu.Unlock()
		n.logger.Info("new generation waiting", slog.Int("version", msg.Version))
	case bus.TypeUpdated:
		n.mu.Lock()
		if n.hasWaiting && n.waiting == msg.Version {
			n.hasWaiting = false
		}
		n.mu.Unlock()
		n.logger.Info("generation activated", slog.Int("version", msg.Version))
	}
}

// HasUpdate reports whether the update banner should be shown.
func (n *Notifier) HasUpdate() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hasWaiting && !n.dismissed
}

// WaitingVersion returns the most recently observed waiting version.
func (n *Notifier) WaitingVersion() (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.waiting, n.hasWaiting
}

// Activate asks the worker to skip waiting and reloads the page. Always
// jumps to the latest observed waiting generation.
func (n *Notifier) Activate(ctx context.Context) error {
	n.mu.Lock()
	version := n.waiting
	hasWaiting := n.hasWaiting
	n.mu.Unlock()

	if !hasWaiting {
		return &domain.NoWaitingGenerationError{}
	}

	if err := n.pub.Publish(ctx, bus.ChannelWorker, bus.Message{
		Type:    bus.TypeSkipWaiting,
		Version: version,
	}); err != nil {
		return fmt.Errorf("request activation of generation %d: %w", version, err)
	}

	n.logger.Info("activation requested, reloading", slog.Int("version", version))
	if n.reload != nil {
		n.reload()
	}
	return nil
}

// Dismiss hides the banner for the current page lifetime only. The waiting
// generation stays installed and the banner returns on the next load.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	n.dismissed = true
	n.mu.Unlock()
}
