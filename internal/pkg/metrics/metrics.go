// Package metrics defines and registers all custom Prometheus metrics for the
// identity sync service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Collectors are registered with the default Prometheus registry on package
// init through promauto; HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity_sync"

// ── Sync metrics ──────────────────────────────────────────────────────────────

// SyncRequestsTotal counts sync calls by how they ended.
// Label:
//   - outcome: "created", "existing", "recovered_duplicate", "missing_credential",
//     "unauthorized", "incomplete_identity", "store_error"
var SyncRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_requests_total",
		Help:      "Total number of identity sync requests, by outcome.",
	},
	[]string{"outcome"},
)

// VerificationDuration measures calls to the identity authority.
// Labels:
//   - verifier: "firebase" or "hmac"
//   - result: "ok" or "rejected"
var VerificationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "token_verification_duration_seconds",
		Help:      "Duration of bearer credential verification against the identity authority.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"verifier", "result"},
)

// ── User metrics ──────────────────────────────────────────────────────────────

// UsersCreatedTotal counts newly persisted user records.
// Label:
//   - source: "sync" (federated first login) or "register" (local registration)
var UsersCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Total number of user records created, by source.",
	},
	[]string{"source"},
)

// UserCacheLookupsTotal counts email lookups served through the Redis cache.
// Label:
//   - result: "hit", "miss" or "error"
var UserCacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_cache_lookups_total",
		Help:      "Total number of user cache lookups, labelled by result (hit/miss/error).",
	},
	[]string{"result"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts sync events handled by the audit dispatcher.
// Label:
//   - result: "recorded", "failed" or "dropped"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of sync audit events, by result.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of events pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)
