package surface

import (
	"context"
	"fmt"

	"github.com/mohamedirsath07/ExpireGuard/internal/bus"
	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
	redisstore "github.com/mohamedirsath07/ExpireGuard/internal/redis"
)

// Registration delivers through the worker's active registration, which
// keeps notifications working while the page context is backgrounded. When
// no controller is active the dispatcher falls back to the page surface.
type Registration struct {
	pub   bus.Publisher
	state redisstore.StateStore
}

// NewRegistration creates a Registration surface.
func NewRegistration(pub bus.Publisher, state redisstore.StateStore) *Registration {
	return &Registration{pub: pub, state: state}
}

func (s *Registration) Name() string { return "registration" }

func (s *Registration) Show(ctx context.Context, n *domain.Notification) error {
	if _, ok, err := s.state.ActiveVersion(ctx); err != nil {
		return fmt.Errorf("check active registration: %w", err)
	} else if !ok {
		return fmt.Errorf("no active registration")
	}

	return s.pub.Publish(ctx, bus.ChannelWorker, bus.Message{
		Type:         bus.TypeShowNotification,
		Notification: n,
	})
}
