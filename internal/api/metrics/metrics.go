// Package metrics defines and registers all custom Prometheus metrics for the
// Brewline console. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on import via
// promauto; the /metrics endpoint exposes them alongside echoprometheus'
// request metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "console"

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginAttemptsTotal counts credential exchanges.
// Label:
//   - result: "success", or the failure kind (e.g. "unauthorized", "backend unreachable")
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts tenant registration attempts.
// Label:
//   - result: "success", or the failure kind (e.g. "conflict")
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of tenant registration attempts, by result.",
	},
	[]string{"result"},
)

// LogoutsTotal counts session teardowns.
var LogoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logouts_total",
		Help:      "Total number of logouts.",
	},
)

// ── Access control metrics ────────────────────────────────────────────────────

// RouteGuardRedirectsTotal counts perimeter redirects.
// Label:
//   - target: "/login" or "/dashboard"
var RouteGuardRedirectsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_guard_redirects_total",
		Help:      "Total number of navigations redirected by the route guard.",
	},
	[]string{"target"},
)

// RoleGateDecisionsTotal counts role gate verdicts.
// Labels:
//   - section: the gated area (e.g. "admin", "accounting")
//   - decision: "render", "redirect_login", "redirect_home" or "pending"
var RoleGateDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_gate_decisions_total",
		Help:      "Total number of role gate decisions, by section and verdict.",
	},
	[]string{"section", "decision"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of session events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of session events pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEventsDroppedTotal counts session events discarded because a worker queue was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of session events dropped on a full audit queue.",
	},
)
