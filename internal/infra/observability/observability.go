// Package observability defines the Prometheus metrics exported by the
// quartermaster daemon: fulfillment outcomes, ledger compensation, and the
// remote session lifecycle. Metrics are self-registered via promauto and
// served by the API's /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Fulfillment Metrics ────────────────────────────────────────────────────

// Purchases tracks purchase attempts by outcome
// (success, unknown_item, not_linked, insufficient_funds, delivery_failed, storage_error).
var Purchases = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quartermaster",
	Subsystem: "fulfillment",
	Name:      "purchases_total",
	Help:      "Total purchase attempts by outcome.",
}, []string{"outcome"})

// Claims tracks grant claims by kind (daily, welcome_pack) and outcome.
var Claims = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quartermaster",
	Subsystem: "fulfillment",
	Name:      "claims_total",
	Help:      "Total grant claim attempts by kind and outcome.",
}, []string{"kind", "outcome"})

// Refunds tracks compensating credits issued after failed deliveries.
var Refunds = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quartermaster",
	Subsystem: "fulfillment",
	Name:      "refunds_total",
	Help:      "Total compensating refunds after failed remote deliveries.",
})

// PackItemFailures tracks welcome pack items that failed to deliver and
// were skipped. The paired log line carries the item name for reconciliation.
var PackItemFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quartermaster",
	Subsystem: "fulfillment",
	Name:      "pack_item_failures_total",
	Help:      "Total welcome pack items skipped due to delivery failure.",
})

// ─── Remote Session Metrics ─────────────────────────────────────────────────

// SessionState tracks the current remote session state
// (0=disabled, 1=disconnected, 2=connecting, 3=authenticated, 4=reconnect_pending).
var SessionState = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "quartermaster",
	Subsystem: "rcon",
	Name:      "session_state",
	Help:      "Current remote session state (0=disabled, 1=disconnected, 2=connecting, 3=authenticated, 4=reconnect_pending).",
})

// SessionReconnects tracks connect attempts after the initial one.
var SessionReconnects = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quartermaster",
	Subsystem: "rcon",
	Name:      "reconnects_total",
	Help:      "Total reconnect attempts to the game server.",
})

// Sends tracks command sends by outcome (ok, not_authenticated, transport_error).
var Sends = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quartermaster",
	Subsystem: "rcon",
	Name:      "sends_total",
	Help:      "Total remote command sends by outcome.",
}, []string{"outcome"})
