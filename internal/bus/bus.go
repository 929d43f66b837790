// Package bus defines the message contract between the page and worker
// contexts. Delivery is at-most-once, best-effort: a context that is not
// subscribed when a message is published never sees it, and nothing is
// retried. The update notifier compensates by also polling the persisted
// waiting slot on mount.
package bus

import (
	"context"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
)

// Channels. The worker subscribes to ChannelWorker for control messages;
// every page subscribes to ChannelPage for broadcasts.
const (
	ChannelWorker = "expireguard.worker"
	ChannelPage   = "expireguard.page"
)

// Message kinds.
const (
	// TypeSkipWaiting asks the worker to activate its waiting generation.
	TypeSkipWaiting = "SKIP_WAITING"
	// TypeInstalled is broadcast by a newly installed generation that is
	// waiting for activation.
	TypeInstalled = "SW_INSTALLED"
	// TypeUpdated is broadcast to all pages after activation completes,
	// carrying the version now active.
	TypeUpdated = "SW_UPDATED"
	// TypeShowNotification asks the worker to render a platform
	// notification while the page is backgrounded.
	TypeShowNotification = "SHOW_NOTIFICATION"
)

// Message is the single envelope exchanged between contexts.
type Message struct {
	Type         string               `json:"type"`
	Version      int                  `json:"version,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
}

// HandlerFunc processes one received message.
type HandlerFunc func(ctx context.Context, msg Message)

// Publisher sends a message to every current subscriber of a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, msg Message) error
}

// Subscriber delivers channel messages to a handler until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler HandlerFunc) error
}
