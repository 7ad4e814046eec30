/*
Package metrics provides Prometheus metrics collection and exposition for flowmesh.

The metrics package defines and registers all flowmesh metrics using the
Prometheus client library, providing observability into partition Raft
health, subscription command routing, BPMN event-subscription behavior,
and deferred-record reconciliation. Metrics are exposed via an HTTP
endpoint for scraping by Prometheus servers.

# Architecture

flowmesh's metrics system follows Prometheus best practices with
instrumentation across the subscription routing and event-subscription
path:

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  │  - Automatic Go runtime metrics             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │                                              │          │
	│  │  Gauge: Instant values (Raft leader)        │          │
	│  │  Counter: Monotonic increases (commands)    │          │
	│  │  Histogram: Distributions (latency)         │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Raft: Leader status, log index, peers      │          │
	│  │  Management: RPC count, duration            │          │
	│  │  Router: Subscription commands, retries     │          │
	│  │  BPMN: Event triggers, boundary events       │          │
	│  │  Reconciler: Cycle duration, discards       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Prometheus Server                   │          │
	│  │  - Scrapes /metrics every 15s               │          │
	│  │  - Stores time series data                  │          │
	│  │  - Provides PromQL query interface          │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered at package init
  - Thread-safe for concurrent updates

Gauge Metrics:
  - Instant value that can go up or down
  - Examples: Raft leader status, deferred record backlog
  - Operations: Set, Inc, Dec, Add, Sub

Counter Metrics:
  - Monotonically increasing value
  - Examples: subscription commands sent, event triggers created
  - Operations: Inc, Add (cannot decrease)

Histogram Metrics:
  - Distribution of observed values
  - Buckets for latency percentiles (p50, p95, p99)
  - Examples: subscription command duration, reconciliation duration
  - Includes: sum, count, buckets

Timer Helper:
  - Convenience wrapper for timing operations
  - Start timer, observe duration to histogram
  - Supports label values for histogram vectors

Collector:
  - Periodically samples Raft state from every locally hosted partition
    (via the PartitionSource interface) and republishes it as gauges
  - Decoupled from pkg/partition so it can be tested without a live
    Raft cluster

# Metrics Catalog

Raft / Partition Metrics:

flowmesh_raft_is_leader{partition_id}:
  - Type: Gauge
  - Description: Whether this node is the Raft leader for a partition
    (1 = leader, 0 = follower)
  - Example: flowmesh_raft_is_leader{partition_id="1"} 1

flowmesh_raft_peers_total{partition_id}:
  - Type: Gauge
  - Description: Total number of Raft peers in a partition's cluster

flowmesh_raft_log_index{partition_id}:
  - Type: Gauge
  - Description: Current Raft log index for a partition

flowmesh_raft_applied_index{partition_id}:
  - Type: Gauge
  - Description: Last applied Raft log index for a partition

flowmesh_raft_apply_duration_seconds{partition_id}:
  - Type: Histogram
  - Description: Time taken to apply a Raft log entry

flowmesh_raft_commit_duration_seconds{partition_id}:
  - Type: Histogram
  - Description: Time taken to commit a Raft log entry

Management API Metrics:

flowmesh_management_requests_total{method, status}:
  - Type: Counter
  - Description: Total management RPCs by method and status

flowmesh_management_request_duration_seconds{method}:
  - Type: Histogram
  - Description: Management RPC duration

Subscription Command Router Metrics:

flowmesh_subscription_commands_sent_total{command_type}:
  - Type: Counter
  - Description: Total subscription commands dispatched by type
  - Example: flowmesh_subscription_commands_sent_total{command_type="OPEN_MESSAGE_SUBSCRIPTION"} 1200

flowmesh_subscription_commands_retried_total{command_type}:
  - Type: Counter
  - Description: Total subscription commands the transport refused
    (outgoing queue full or connection failed)

flowmesh_subscription_command_duration_seconds{command_type}:
  - Type: Histogram
  - Description: Time taken to hand a subscription command to the
    transport (no response is awaited)

flowmesh_partition_leader_unknown_total{partition_id}:
  - Type: Counter
  - Description: Total subscription commands deferred because the
    target partition's leader was not yet known

BPMN Event Subscription Behavior Metrics:

flowmesh_event_triggers_created_total{element_type}:
  - Type: Counter
  - Description: Total event triggers written, by element type

flowmesh_event_triggers_consumed_total{element_type}:
  - Type: Counter
  - Description: Total event triggers consumed, by element type

flowmesh_event_trigger_latency_seconds:
  - Type: Histogram
  - Description: Time between an event trigger being written and
    consumed

flowmesh_deferred_records_backlog{purpose}:
  - Type: Gauge
  - Description: Number of deferred records awaiting their owning
    scope to resolve, by purpose

flowmesh_boundary_events_triggered_total{interrupting}:
  - Type: Counter
  - Description: Total boundary events triggered, by interrupting
    status

flowmesh_event_based_gateways_triggered_total:
  - Type: Counter
  - Description: Total event-based gateways resolved to an outgoing
    path

flowmesh_processing_errors_total{kind}:
  - Type: Counter
  - Description: Total BPMN processing failures, by kind

Reconciler Metrics:

flowmesh_reconciliation_duration_seconds:
  - Type: Histogram
  - Description: Time taken for a deferred record garbage collection
    cycle

flowmesh_reconciliation_cycles_total:
  - Type: Counter
  - Description: Total garbage collection cycles completed

flowmesh_deferred_records_discarded_total:
  - Type: Counter
  - Description: Total deferred records discarded for terminated
    scopes

# Usage

Updating Gauge Metrics:

	import "github.com/cuemby/flowmesh/pkg/metrics"

	metrics.RaftLeader.WithLabelValues("1").Set(1)
	metrics.DeferredRecordsBacklog.WithLabelValues("boundary-timer").Set(3)

Updating Counter Metrics:

	metrics.SubscriptionCommandsSent.WithLabelValues("OPEN_MESSAGE_SUBSCRIPTION").Inc()
	metrics.EventTriggersCreated.WithLabelValues("INTERMEDIATE_CATCH_EVENT").Inc()

Recording Histogram Observations:

	// Direct observation
	metrics.EventTriggerLatency.Observe(0.125) // 125ms

	// Using Timer helper
	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.ReconciliationDuration)

Using Timer with Labels:

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDurationVec(metrics.SubscriptionCommandDuration, "OPEN_MESSAGE_SUBSCRIPTION")

Complete Example:

	package main

	import (
		"net/http"
		"github.com/cuemby/flowmesh/pkg/metrics"
	)

	func main() {
		timer := metrics.NewTimer()
		routeSubscriptionCommand()
		timer.ObserveDurationVec(metrics.SubscriptionCommandDuration, "OPEN_MESSAGE_SUBSCRIPTION")
		metrics.SubscriptionCommandsSent.WithLabelValues("OPEN_MESSAGE_SUBSCRIPTION").Inc()

		http.Handle("/metrics", metrics.Handler())
		http.ListenAndServe(":9090", nil)
	}

	func routeSubscriptionCommand() {
		// routing logic
	}

# Integration Points

This package integrates with:

  - pkg/partition: supplies PartitionStats() to the Collector; records
    the Raft commit duration of each Apply (RaftApplyDuration is
    registered but not observed).
  - pkg/router: records subscription command counts, retries, and
    duration.
  - pkg/bpmn: records event trigger, boundary event, and event-based
    gateway counts.
  - pkg/reconciler: records reconciliation cycle duration, cycle count,
    and discarded deferred records.
  - pkg/management: records no metrics; ManagementRequestsTotal and
    ManagementRequestDuration are registered but not observed.
  - Prometheus: scrapes the /metrics endpoint.

# Design Patterns

Package Init Registration:
  - All metrics registered in init()
  - MustRegister panics on duplicate registration
  - Ensures metrics available before main()

Label Discipline:
  - Use WithLabelValues for cardinality-bounded labels (command_type,
    element_type, partition_id)
  - Avoid high-cardinality labels (workflow instance keys, correlation
    keys)

Timer Pattern:
  - Create a Timer at operation start
  - Call ObserveDuration or ObserveDurationVec when the operation
    completes

Collector Pattern:
  - PartitionSource is a narrow interface implemented by
    *partition.Manager, letting the collector be tested with a fake
    source instead of a live Raft cluster.

# Troubleshooting

Missing Metrics:
  - Check: metric registered in init()
  - Check: MustRegister was called (panics on duplicate registration)

High Cardinality:
  - Cause: using workflow instance keys or correlation keys as label
    values
  - Solution: remove the high-cardinality label, aggregate in logs
    instead

Stale Metrics:
  - Cause: code not calling the metric's Inc/Set/Observe methods
  - Check: instrument the code path that performs the operation

# Monitoring

Raft Health:
  - Has leader: max(flowmesh_raft_is_leader) by (partition_id) > 0
  - Leader changes: changes(flowmesh_raft_is_leader[10m])
  - Log lag: flowmesh_raft_log_index - flowmesh_raft_applied_index

Router Performance:
  - Command rate: rate(flowmesh_subscription_commands_sent_total[1m])
  - Retry rate: rate(flowmesh_subscription_commands_retried_total[1m])
  - p95 latency: histogram_quantile(0.95, flowmesh_subscription_command_duration_seconds_bucket)

Reconciler Health:
  - Cycle rate: rate(flowmesh_reconciliation_cycles_total[5m])
  - Discard rate: rate(flowmesh_deferred_records_discarded_total[5m])
  - p95 cycle duration: histogram_quantile(0.95, flowmesh_reconciliation_duration_seconds_bucket)

# Alerting Rules

No Raft Leader:
  - Alert: max(flowmesh_raft_is_leader) by (partition_id) == 0
  - Description: a partition has no Raft leader
  - Action: check node connectivity, quorum status

Frequent Leader Changes:
  - Alert: changes(flowmesh_raft_is_leader[10m]) > 3
  - Description: leader changed more than 3 times in 10 minutes
  - Action: check network latency between Raft peers

Subscription Command Retries Rising:
  - Alert: rate(flowmesh_subscription_commands_retried_total[5m]) > 1
  - Description: the transport is repeatedly refusing subscription
    commands (outgoing queue full or remote leader unreachable)
  - Action: check connectivity to and load on the remote partition leaders

Deferred Record Backlog Growing:
  - Alert: flowmesh_deferred_records_backlog > 1000
  - Description: deferred records are accumulating faster than the
    reconciler discards them
  - Action: check reconciler cycle duration and owning scope
    termination

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
