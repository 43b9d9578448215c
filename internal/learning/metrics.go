package learning

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedbackTotal counts resolved feedback responses.
	// Labels: action (confirm, reject, correct, ignored)
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nyx",
			Subsystem: "learning",
			Name:      "feedback_total",
			Help:      "Total number of feedback responses by action",
		},
		[]string{"action"},
	)

	// RewardUpdates counts reward table updates.
	RewardUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nyx",
			Subsystem: "learning",
			Name:      "reward_updates_total",
			Help:      "Total number of reward table updates",
		},
	)

	// PersistFailures counts failed reward table writes.
	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nyx",
			Subsystem: "learning",
			Name:      "persist_failures_total",
			Help:      "Total number of failed reward table writes",
		},
	)

	// PendingRequests tracks outstanding feedback requests.
	PendingRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nyx",
			Subsystem: "learning",
			Name:      "pending_feedback",
			Help:      "Number of feedback requests awaiting a response",
		},
	)

	// KnownEntries tracks the size of the reward table.
	KnownEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nyx",
			Subsystem: "learning",
			Name:      "known_entries",
			Help:      "Number of (message, intent) pairs in the reward table",
		},
	)
)
