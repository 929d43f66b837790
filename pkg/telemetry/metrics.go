package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── Worker ──────────────────────────────────────────────────────────────────

	WorkerInstallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "expireguard",
		Subsystem: "worker",
		Name:      "installs_total",
		Help:      "Total successful generation installs.",
	})

	WorkerInstallFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "expireguard",
		Subsystem: "worker",
		Name:      "install_failures_total",
		Help:      "Total aborted installs (asset precache failure).",
	})

	WorkerActivationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "expireguard",
		Subsystem: "worker",
		Name:      "activations_total",
		Help:      "Total generation activations.",
	})

	WorkerFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "expireguard",
		Subsystem: "worker",
		Name:      "fetch_total",
		Help:      "Intercepted fetches, labelled by routing outcome.",
	}, []string{"route"})

	WorkerNotificationsShown = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "expireguard",
		Subsystem: "worker",
		Name:      "notifications_shown_total",
		Help:      "Notifications rendered through the worker registration.",
	})

	// ─── Agent ───────────────────────────────────────────────────────────────────

	AgentEvaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "expireguard",
		Subsystem: "agent",
		Name:      "evaluations_total",
		Help:      "Total classification passes over the inventory.",
	})

	AgentRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "expireguard",
		Subsystem: "agent",
		Name:      "records",
		Help:      "Records produced by the latest classification pass, by type.",
	}, []string{"type"})

	AgentDispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "expireguard",
		Subsystem: "agent",
		Name:      "dispatches_total",
		Help:      "Platform notifications delivered, labelled by surface.",
	}, []string{"surface"})

	AgentDispatchSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "expireguard",
		Subsystem: "agent",
		Name:      "dispatch_suppressed_total",
		Help:      "Dispatch cycles suppressed by the rate-limit gate.",
	})

	AgentPermissionDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "expireguard",
		Subsystem: "agent",
		Name:      "permission_denied_total",
		Help:      "Dispatch cycles skipped because notification permission was denied.",
	})
)
