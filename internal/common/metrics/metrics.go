package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_completed_total",
			Help: "Total number of successful application state transitions",
		},
		[]string{"target_state"},
	)

	TransitionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_failed_total",
			Help: "Total number of rejected transition requests",
		},
		[]string{"target_state", "error_code"},
	)

	DocumentActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_document_actions_total",
			Help: "Total number of document verify/reject actions",
		},
		[]string{"action"},
	)

	SaveConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workflow_save_conflicts_total",
			Help: "Total number of optimistic-concurrency write conflicts",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_notifications_sent_total",
			Help: "Total number of notifications handed to the gateway",
		},
		[]string{"channel", "status"},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "workflow_transition_duration_seconds",
			Help: "Duration of transition processing in seconds",
		},
		[]string{"target_state"},
	)
)
