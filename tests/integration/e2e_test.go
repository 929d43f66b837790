//go:build integration

package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedirsath07/ExpireGuard/internal/bus"
	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
	"github.com/mohamedirsath07/ExpireGuard/internal/notify"
	redisstore "github.com/mohamedirsath07/ExpireGuard/internal/redis"
	"github.com/mohamedirsath07/ExpireGuard/internal/surface"
	"github.com/mohamedirsath07/ExpireGuard/internal/update"
	"github.com/mohamedirsath07/ExpireGuard/services/worker"
)

type staticFetcher struct{}

func (staticFetcher) Fetch(_ context.Context, path string) (*redisstore.CachedResponse, error) {
	return &redisstore.CachedResponse{Status: http.StatusOK, Body: []byte("asset " + path)}, nil
}

type recordingSurface struct {
	mu    sync.Mutex
	shown []*domain.Notification
}

func (s *recordingSurface) Show(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, n)
	return nil
}

func (s *recordingSurface) Name() string { return "recording" }

func (s *recordingSurface) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shown)
}

// TestE2E_UpdateFlow walks the whole generation handoff over real Redis:
// v1 installs and activates, v2 installs and waits, the page-side notifier
// sees the broadcast, requests activation, and v2 takes over.
func TestE2E_UpdateFlow(t *testing.T) {
	client := newRedisClient(t)
	caches := redisstore.NewCacheStore(client)
	state := redisstore.NewStateStore(client)
	msgBus := redisstore.NewBus(client, discardLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	assets := []string{"/", "/index.html"}

	// v1: first install claims immediately.
	v1, err := worker.NewController(1, assets, "http://upstream.invalid", caches, state, msgBus, msgBus,
		worker.WithFetcher(staticFetcher{}), worker.WithLogger(discardLogger))
	require.NoError(t, err)
	require.NoError(t, v1.Install(ctx))
	require.Equal(t, domain.StateActive, v1.State())

	// Page-side notifier listening for broadcasts.
	notifier := update.New(state, msgBus, nil, discardLogger)
	go func() {
		_ = msgBus.Subscribe(ctx, bus.ChannelPage, notifier.OnMessage)
	}()

	// v2 worker listening for control messages.
	v2, err := worker.NewController(2, assets, "http://upstream.invalid", caches, state, msgBus, msgBus,
		worker.WithFetcher(staticFetcher{}), worker.WithLogger(discardLogger))
	require.NoError(t, err)
	go func() {
		_ = v2.Run(ctx)
	}()
	time.Sleep(200 * time.Millisecond) // let both subscriptions land

	require.NoError(t, v2.Install(ctx))
	require.Equal(t, domain.StateInstalled, v2.State(), "v2 waits behind the active v1")

	// The install broadcast reaches the notifier.
	require.Eventually(t, notifier.HasUpdate, 5*time.Second, 50*time.Millisecond)
	v, ok := notifier.WaitingVersion()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	// User clicks "Update Now".
	require.NoError(t, notifier.Activate(ctx))

	require.Eventually(t, func() bool {
		return v2.State() == domain.StateActive
	}, 5*time.Second, 50*time.Millisecond)

	// v1's cache is gone, v2 owns the active slot.
	versions, err := caches.Versions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, versions)

	active, okActive, err := state.ActiveVersion(ctx)
	require.NoError(t, err)
	require.True(t, okActive)
	assert.Equal(t, 2, active)
}

// TestE2E_NotificationThroughRegistration pushes a classified alert through
// the registration surface: the dispatcher publishes to the worker channel
// and the worker renders it.
func TestE2E_NotificationThroughRegistration(t *testing.T) {
	client := newRedisClient(t)
	caches := redisstore.NewCacheStore(client)
	state := redisstore.NewStateStore(client)
	msgBus := redisstore.NewBus(client, discardLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	renderer := &recordingSurface{}
	w, err := worker.NewController(1, []string{"/"}, "http://upstream.invalid", caches, state, msgBus, msgBus,
		worker.WithFetcher(staticFetcher{}),
		worker.WithNotificationSurface(renderer),
		worker.WithLogger(discardLogger))
	require.NoError(t, err)
	require.NoError(t, w.Install(ctx))

	go func() {
		_ = w.Run(ctx)
	}()
	time.Sleep(200 * time.Millisecond)

	dispatcher := notify.NewDispatcher(state,
		[]surface.Surface{surface.NewRegistration(msgBus, state)},
		notify.WithLogger(discardLogger),
	)
	records := []domain.NotificationRecord{{
		Type:     domain.TypeUrgent,
		ItemName: "Milk",
		DaysLeft: 2,
		Urgency:  domain.UrgencyHigh,
		Title:    "Expiring Soon!",
		Body:     "Milk expires in 2 days",
	}}
	dispatcher.Dispatch(ctx, records, false)

	require.Eventually(t, func() bool { return renderer.count() == 1 }, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "Expiring Soon!", renderer.shown[0].Title)

	// The dispatch timestamp is persisted for the rate-limit gate.
	last, err := state.LastDispatch(ctx)
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}
