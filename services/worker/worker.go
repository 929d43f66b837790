// Package worker implements the offline worker context: the cache
// lifecycle controller and the fetch gateway that serves the app shell
// from a generation cache when the network is down.
package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mohamedirsath07/ExpireGuard/internal/bus"
	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
	redisstore "github.com/mohamedirsath07/ExpireGuard/internal/redis"
	"github.com/mohamedirsath07/ExpireGuard/internal/surface"
	"github.com/mohamedirsath07/ExpireGuard/pkg/retry"
	"github.com/mohamedirsath07/ExpireGuard/pkg/telemetry"
)

// Fetcher retrieves one upstream response for precaching or network-first
// serving.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*redisstore.CachedResponse, error)
}

// HTTPFetcher fetches assets from the upstream origin over HTTP.
type HTTPFetcher struct {
	base   string
	client *http.Client
}

// NewHTTPFetcher creates a Fetcher rooted at the upstream origin.
func NewHTTPFetcher(base string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, path string) (*redisstore.CachedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request for %s: %w", path, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &redisstore.CachedResponse{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

// Controller owns one cache generation and walks it through the worker
// lifecycle: install (precache), wait, activate (evict stale generations,
// claim the fetch path), serve.
type Controller struct {
	version int
	assets  []string
	caches  redisstore.CacheStore
	state   redisstore.StateStore
	pub     bus.Publisher
	sub     bus.Subscriber
	fetcher Fetcher
	notify  surface.Surface
	proxy   *httputil.ReverseProxy

	apiPrefixes []string
	retryCfg    retry.Config
	logger      *slog.Logger

	mu        sync.Mutex
	lifecycle domain.WorkerState
	serving   atomic.Bool
}

// Option configures a Controller.
type Option func(*Controller)

func WithAPIPrefixes(prefixes []string) Option { return func(c *Controller) { c.apiPrefixes = prefixes } }
func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.logger = l } }
func WithFetcher(f Fetcher) Option { return func(c *Controller) { c.fetcher = f } }
func WithNotificationSurface(s surface.Surface) Option { return func(c *Controller) { c.notify = s } }
func WithRetries(n int) Option { return func(c *Controller) { c.retryCfg.MaxAttempts = n } }
func WithBaseDelay(d time.Duration) Option { return func(c *Controller) { c.retryCfg.BaseDelay = d } }

// NewController constructs a Controller for one generation version. upstream
// is the origin the gateway fronts; assets is the precache manifest.
func NewController(
	version int,
	assets []string,
	upstream string,
	caches redisstore.CacheStore,
	state redisstore.StateStore,
	pub bus.Publisher,
	sub bus.Subscriber,
	opts ...Option,
) (*Controller, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url %q: %w", upstream, err)
	}

	c := &Controller{
		version:     version,
		assets:      assets,
		caches:      caches,
		state:       state,
		pub:         pub,
		sub:         sub,
		fetcher:     NewHTTPFetcher(upstream, 30*time.Second),
		apiPrefixes: []string{"/api/"},
		logger:      slog.Default(),
	}
	c.retryCfg = retry.Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.proxy = httputil.NewSingleHostReverseProxy(target)
	c.proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		c.logger.Error("upstream proxy failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "upstream unreachable", http.StatusBadGateway)
	}
	return c, nil
}

// State returns the generation's current lifecycle state.
func (c *Controller) State() domain.WorkerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle
}

// Install precaches the full asset manifest into this generation's cache.
// All assets are fetched before anything is written, so a failed install
// leaves no partial cache behind. On success the generation either activates
// immediately (no predecessor) or parks in the waiting slot and announces
// itself to the pages.
func (c *Controller) Install(ctx context.Context) error {
	ctx, span := otel.Tracer("worker").Start(ctx, "worker.install")
	defer span.End()
	span.SetAttributes(attribute.Int("generation.version", c.version))

	c.mu.Lock()
	if c.lifecycle != "" {
		state := c.lifecycle
		c.mu.Unlock()
		return &domain.GenerationStateError{State: state, Op: "install"}
	}
	c.lifecycle = domain.StateInstalling
	c.mu.Unlock()

	log := c.logger.With(slog.Int("version", c.version))
	log.Info("installing generation", slog.Int("assets", len(c.assets)))

	precache := make(map[string]*redisstore.CachedResponse, len(c.assets))
	for _, asset := range c.assets {
		var res *redisstore.CachedResponse
		err := retry.Do(ctx, c.retryCfg, func() error {
			var fetchErr error
			res, fetchErr = c.fetcher.Fetch(ctx, asset)
			if fetchErr != nil {
				return fetchErr
			}
			if res.Status != http.StatusOK {
				return fmt.Errorf("asset %s returned status %d", asset, res.Status)
			}
			return nil
		})
		if err != nil {
			telemetry.WorkerInstallFailuresTotal.Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "precache failed")
			log.Error("install aborted", slog.String("asset", asset), slog.String("error", err.Error()))
			return fmt.Errorf("precache %s: %w", asset, err)
		}
		precache[asset] = res
	}

	if err := c.caches.PutAll(ctx, c.version, precache); err != nil {
		telemetry.WorkerInstallFailuresTotal.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache write failed")
		return err
	}

	c.mu.Lock()
	c.lifecycle = domain.StateInstalled
	c.mu.Unlock()
	telemetry.WorkerInstallsTotal.Inc()
	log.Info("generation installed")

	active, hasActive, err := c.state.ActiveVersion(ctx)
	if err != nil {
		return fmt.Errorf("read active version: %w", err)
	}
	if !hasActive || active == c.version {
		// First install, or a restart of the already-active version:
		// nothing to wait behind.
		return c.Activate(ctx)
	}

	if err := c.state.SetWaitingVersion(ctx, c.version); err != nil {
		return fmt.Errorf("park waiting generation: %w", err)
	}
	if err := c.pub.Publish(ctx, bus.ChannelPage, bus.Message{
		Type:    bus.TypeInstalled,
		Version: c.version,
	}); err != nil {
		// Best-effort: pages also poll the waiting slot on mount.
		log.Warn("install broadcast failed", slog.String("error", err.Error()))
	}
	log.Info("generation waiting behind active", slog.Int("active", active))
	return nil
}

// Activate makes this generation the active one: stale generation caches
// are evicted, the active slot is updated, pages are told to reload, and
// the fetch gateway starts serving cache fallbacks.
func (c *Controller) Activate(ctx context.Context) error {
	ctx, span := otel.Tracer("worker").Start(ctx, "worker.activate")
	defer span.End()
	span.SetAttributes(attribute.Int("generation.version", c.version))

	c.mu.Lock()
	if c.lifecycle != domain.StateInstalled {
		state := c.lifecycle
		c.mu.Unlock()
		return &domain.GenerationStateError{State: state, Op: "activate"}
	}
	c.lifecycle = domain.StateActivating
	c.mu.Unlock()

	log := c.logger.With(slog.Int("version", c.version))

	// Evict every generation but ours. Eviction failures are logged, not
	// fatal: a stale cache wastes space but cannot be served once the
	// active slot moves on.
	versions, err := c.caches.Versions(ctx)
	if err != nil {
		log.Warn("listing generations failed", slog.String("error", err.Error()))
	}
	for _, v := range versions {
		if v == c.version {
			continue
		}
		if err := c.caches.Delete(ctx, v); err != nil {
			log.Warn("stale generation eviction failed",
				slog.Int("stale", v), slog.String("error", err.Error()))
			continue
		}
		log.Info("evicted stale generation", slog.Int("stale", v))
	}

	if err := c.state.SetActiveVersion(ctx, c.version); err != nil {
		c.mu.Lock()
		c.lifecycle = domain.StateInstalled
		c.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "active slot write failed")
		return fmt.Errorf("set active version: %w", err)
	}

	if waiting, ok, err := c.state.WaitingVersion(ctx); err == nil && ok && waiting == c.version {
		if err := c.state.ClearWaitingVersion(ctx); err != nil {
			log.Warn("clearing waiting slot failed", slog.String("error", err.Error()))
		}
	}

	if err := c.pub.Publish(ctx, bus.ChannelPage, bus.Message{
		Type:    bus.TypeUpdated,
		Version: c.version,
	}); err != nil {
		log.Warn("activation broadcast failed", slog.String("error", err.Error()))
	}

	c.serving.Store(true)
	c.mu.Lock()
	c.lifecycle = domain.StateActive
	c.mu.Unlock()
	telemetry.WorkerActivationsTotal.Inc()
	log.Info("generation active")
	return nil
}

// Run listens for control messages until ctx is cancelled. SKIP_WAITING
// activates the waiting generation; SHOW_NOTIFICATION renders a platform
// notification on the pages' behalf.
func (c *Controller) Run(ctx context.Context) error {
	return c.sub.Subscribe(ctx, bus.ChannelWorker, c.onMessage)
}

func (c *Controller) onMessage(ctx context.Context, msg bus.Message) {
	switch msg.Type {
	case bus.TypeSkipWaiting:
		if msg.Version != 0 && msg.Version != c.version {
			c.logger.Info("skip-waiting for another generation, ignoring",
				slog.Int("requested", msg.Version), slog.Int("version", c.version))
			return
		}
		if err := c.Activate(ctx); err != nil {
			c.logger.Error("skip-waiting activation failed", slog.String("error", err.Error()))
		}
	case bus.TypeShowNotification:
		if msg.Notification == nil || c.notify == nil {
			return
		}
		if err := c.notify.Show(ctx, msg.Notification); err != nil {
			c.logger.Error("notification render failed", slog.String("error", err.Error()))
			return
		}
		telemetry.WorkerNotificationsShown.Inc()
	}
}

// ServeHTTP is the fetch gateway. API traffic always passes through to the
// upstream. App-shell traffic is network-first with a cache fallback once
// this generation is active; before that the gateway is a plain passthrough.
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if c.isAPI(r.URL.Path) || r.Method != http.MethodGet {
		telemetry.WorkerFetchTotal.WithLabelValues("api").Inc()
		c.proxy.ServeHTTP(w, r)
		return
	}

	res, err := c.fetcher.Fetch(r.Context(), r.URL.Path)
	if err == nil {
		telemetry.WorkerFetchTotal.WithLabelValues("network").Inc()
		writeCached(w, res)
		return
	}

	if !c.serving.Load() {
		// Not yet claimed: no cache fallback before activation.
		telemetry.WorkerFetchTotal.WithLabelValues("passthrough").Inc()
		http.Error(w, "upstream unreachable", http.StatusBadGateway)
		return
	}

	cached, cacheErr := c.caches.Get(r.Context(), c.version, r.URL.Path)
	if cacheErr == nil {
		telemetry.WorkerFetchTotal.WithLabelValues("cache").Inc()
		writeCached(w, cached)
		return
	}

	// Navigations fall back to the cached app shell so client-side routes
	// still load offline.
	if isNavigation(r) {
		if shell, shellErr := c.caches.Get(r.Context(), c.version, "/index.html"); shellErr == nil {
			telemetry.WorkerFetchTotal.WithLabelValues("shell").Inc()
			writeCached(w, shell)
			return
		}
	}

	telemetry.WorkerFetchTotal.WithLabelValues("offline").Inc()
	c.logger.Warn("offline with no cached response",
		slog.String("path", r.URL.Path),
		slog.String("network_error", err.Error()),
	)
	http.Error(w, "offline", http.StatusServiceUnavailable)
}

func (c *Controller) isAPI(path string) bool {
	for _, prefix := range c.apiPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isNavigation(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeCached(w http.ResponseWriter, res *redisstore.CachedResponse) {
	for k, vals := range res.Header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(res.Status)
	w.Write(res.Body)
}
