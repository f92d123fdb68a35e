package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics exposed on the ops server.
var (
	// InteractionsTotal counts handled commands and buttons by outcome.
	InteractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veyravet_interactions_total",
		Help: "Slash command and button interactions handled, by name and outcome",
	}, []string{"interaction", "outcome"})

	// VeyraRequests counts calls against the Veyra verification API.
	VeyraRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veyravet_veyra_requests_total",
		Help: "Veyra API calls, by operation and outcome",
	}, []string{"operation", "outcome"})

	// CleanupRemovals counts records reclaimed by the retention sweeps.
	CleanupRemovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veyravet_cleanup_removals_total",
		Help: "Records removed by cleanup sweeps, by collection",
	}, []string{"collection"})

	// DeferredDeletions counts scheduled channel deletions by result.
	DeferredDeletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veyravet_deferred_deletions_total",
		Help: "Deferred channel deletions, by result",
	}, []string{"result"})
)
