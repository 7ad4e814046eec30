package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Raft / partition metrics
	RaftLeader = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowmesh_raft_is_leader",
			Help: "Whether this node is the Raft leader for a partition (1 = leader, 0 = follower)",
		},
		[]string{"partition_id"},
	)

	RaftPeers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowmesh_raft_peers_total",
			Help: "Total number of Raft peers in a partition's cluster",
		},
		[]string{"partition_id"},
	)

	RaftLogIndex = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowmesh_raft_log_index",
			Help: "Current Raft log index for a partition",
		},
		[]string{"partition_id"},
	)

	RaftAppliedIndex = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowmesh_raft_applied_index",
			Help: "Last applied Raft log index for a partition",
		},
		[]string{"partition_id"},
	)

	RaftApplyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowmesh_raft_apply_duration_seconds",
			Help:    "Time taken to apply a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"partition_id"},
	)

	RaftCommitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowmesh_raft_commit_duration_seconds",
			Help:    "Time taken to commit a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"partition_id"},
	)

	// Management API metrics
	ManagementRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowmesh_management_requests_total",
			Help: "Total number of management RPCs by method and status",
		},
		[]string{"method", "status"},
	)

	ManagementRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowmesh_management_request_duration_seconds",
			Help:    "Management RPC duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Subscription command router metrics
	SubscriptionCommandsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowmesh_subscription_commands_sent_total",
			Help: "Total number of subscription commands dispatched by type",
		},
		[]string{"command_type"},
	)

	SubscriptionCommandsRetried = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowmesh_subscription_commands_retried_total",
			Help: "Total number of subscription commands the transport refused (outgoing queue full or connection failed)",
		},
		[]string{"command_type"},
	)

	SubscriptionCommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowmesh_subscription_command_duration_seconds",
			Help:    "Time taken to hand a subscription command to the transport in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command_type"},
	)

	PartitionLeaderUnknownTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowmesh_partition_leader_unknown_total",
			Help: "Total number of subscription commands deferred because the target partition's leader was not yet known",
		},
		[]string{"partition_id"},
	)

	// BPMN event subscription behavior metrics
	EventTriggersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowmesh_event_triggers_created_total",
			Help: "Total number of event triggers written by element type",
		},
		[]string{"element_type"},
	)

	EventTriggersConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowmesh_event_triggers_consumed_total",
			Help: "Total number of event triggers consumed by element type",
		},
		[]string{"element_type"},
	)

	EventTriggerLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowmesh_event_trigger_latency_seconds",
			Help:    "Time between an event trigger being written and consumed",
			Buckets: prometheus.DefBuckets,
		},
	)

	DeferredRecordsBacklog = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowmesh_deferred_records_backlog",
			Help: "Number of deferred records awaiting their owning scope to resolve, by purpose",
		},
		[]string{"purpose"},
	)

	BoundaryEventsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowmesh_boundary_events_triggered_total",
			Help: "Total number of boundary events triggered by interrupting status",
		},
		[]string{"interrupting"},
	)

	EventBasedGatewaysTriggered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flowmesh_event_based_gateways_triggered_total",
			Help: "Total number of event-based gateways resolved to an outgoing path",
		},
	)

	ProcessingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowmesh_processing_errors_total",
			Help: "Total number of BPMN processing failures by kind",
		},
		[]string{"kind"},
	)

	// Reconciler (deferred record garbage collection) metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowmesh_reconciliation_duration_seconds",
			Help:    "Time taken for a deferred record garbage collection cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flowmesh_reconciliation_cycles_total",
			Help: "Total number of garbage collection cycles completed",
		},
	)

	DeferredRecordsDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flowmesh_deferred_records_discarded_total",
			Help: "Total number of deferred records discarded for terminated scopes",
		},
	)
)

func init() {
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(RaftLogIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(RaftApplyDuration)
	prometheus.MustRegister(RaftCommitDuration)

	prometheus.MustRegister(ManagementRequestsTotal)
	prometheus.MustRegister(ManagementRequestDuration)

	prometheus.MustRegister(SubscriptionCommandsSent)
	prometheus.MustRegister(SubscriptionCommandsRetried)
	prometheus.MustRegister(SubscriptionCommandDuration)
	prometheus.MustRegister(PartitionLeaderUnknownTotal)

	prometheus.MustRegister(EventTriggersCreated)
	prometheus.MustRegister(EventTriggersConsumed)
	prometheus.MustRegister(EventTriggerLatency)
	prometheus.MustRegister(DeferredRecordsBacklog)
	prometheus.MustRegister(BoundaryEventsTriggered)
	prometheus.MustRegister(EventBasedGatewaysTriggered)
	prometheus.MustRegister(ProcessingErrorsTotal)

	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(DeferredRecordsDiscarded)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
