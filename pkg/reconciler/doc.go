/*
Package reconciler garbage collects deferred records left behind by
abandoned interruptions.

Every interrupting boundary event, interrupting event sub-process, and
event-based gateway defers its chosen child's activation as a
DeferredRecord rather than activating it inline (see package bpmn),
because the owning scope may not yet be ready to receive it. Ordinarily
that record is published the moment the scope becomes ready. But a
scope can also terminate first — its process instance is canceled, an
outer interruption races it, or the partition crashes between writing
the deferred record and reaching the ready check — leaving the record
permanently unpublished with no event left to publish it. The
reconciler finds and discards those orphaned records.

# Architecture

The reconciler runs as a background loop on a fixed 10-second interval:

	┌──────────────────────────────────────────────┐
	│           Reconciliation Loop                 │
	│             (every 10 seconds)                │
	└────────────────────┬───────────────────────────┘
	                     │
	                     ▼
	          scan all deferred records
	                     │
	                     ▼
	      is owner scope terminated?  ──No──▶ leave in place
	                     │
	                    Yes
	                     │
	                     ▼
	            delete deferred record

# Level-Triggered Reconciliation

The reconciler re-derives "is this record orphaned" from current store
state on every cycle instead of reacting to a one-time termination
event. A record that survives one cycle because its owner hadn't
terminated yet is caught on the next; a reconciler that missed a cycle
entirely (a restart, a slow tick) needs no replay — the next tick sees
the same state and reaches the same conclusion. Edge-triggered designs
("scope just terminated, sweep its records now") are faster but fail
silently if the triggering edge is ever missed; this package trades a
few seconds of detection latency for never needing to worry about that.

# Usage

	rec := reconciler.NewReconciler(store, func(scopeKey uint64) (bool, error) {
	    instance, err := store.ElementInstances().Get(model.Key(scopeKey))
	    if err != nil {
	        return true, nil // gone entirely counts as terminated
	    }
	    return instance.State == model.StateTerminated, nil
	})
	rec.Start()
	defer rec.Stop()

# Monitoring

The reconciler exposes the following Prometheus metrics:

  - flowmesh_reconciliation_duration_seconds: histogram of cycle duration
  - flowmesh_reconciliation_cycles_total: counter of completed cycles
  - flowmesh_deferred_records_discarded_total: counter of discarded records

A steady rise in flowmesh_deferred_records_discarded_total across many cycles
usually means some caller is deferring activations for scopes that
terminate before ever publishing them — worth checking for a missing
PublishTriggeredXxx call on a code path that should have one.

See also package bpmn, which is the sole writer of DeferredRecords.
*/
package reconciler
