package brain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DecisionsTotal counts decisions.
// Labels: module, tier (execute, notify, ask)
var DecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nyx",
		Subsystem: "brain",
		Name:      "decisions_total",
		Help:      "Total number of routed decisions by module and tier",
	},
	[]string{"module", "tier"},
)
