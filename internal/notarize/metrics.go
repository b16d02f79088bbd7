package notarize

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowsStarted tracks claimed workflow runs per record kind.
	WorkflowsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "absworker_workflows_started_total",
			Help: "Total number of workflow runs that claimed a record",
		},
		[]string{"kind"},
	)

	// WorkflowsCompleted tracks terminal outcomes per record kind.
	WorkflowsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "absworker_workflows_completed_total",
			Help: "Total number of workflow runs reaching a terminal state",
		},
		[]string{"kind", "outcome"},
	)

	// RetriesTotal tracks retry sleeps per wrapped operation.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "absworker_retries_total",
			Help: "Total number of retries for transient failures",
		},
		[]string{"operation"},
	)

	// ReceiptPolls tracks confirmation poll iterations.
	ReceiptPolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "absworker_receipt_polls_total",
			Help: "Total number of ledger receipt polls",
		},
	)

	// WorkflowDuration tracks end-to-end workflow latency.
	WorkflowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "absworker_workflow_duration_seconds",
			Help:    "Workflow duration from claim to terminal commit",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"kind"},
	)
)
