package reconciler

import (
	"sync"
	"time"

	"github.com/cuemby/flowmesh/pkg/log"
	"github.com/cuemby/flowmesh/pkg/metrics"
	"github.com/cuemby/flowmesh/pkg/store"
	"github.com/rs/zerolog"
)

// defaultInterval matches the teacher's cluster reconciler cadence; a
// deferred record backlog grows slowly enough that a faster cycle
// wouldn't change detection latency in practice.
const defaultInterval = 10 * time.Second

// terminatedScope reports whether a scope's owning element instance has
// terminated (or no longer exists), making any deferred record still
// owned by it unreachable.
type terminatedScope func(scopeKey uint64) (bool, error)

// Reconciler garbage collects deferred records whose owning scope has
// since terminated without ever publishing them — the interrupting
// event sub-process or boundary event they were waiting behind was
// itself discarded, abandoned mid-interruption, or its scope was torn
// down before the deferred record could be replayed.
type Reconciler struct {
	store     *store.Store
	scopeDone terminatedScope
	logger    zerolog.Logger
	mu        sync.RWMutex
	stopCh    chan struct{}
}

// NewReconciler creates a Reconciler sweeping s's deferred records,
// using scopeDone to decide whether a record's owner is gone.
func NewReconciler(s *store.Store, scopeDone terminatedScope) *Reconciler {
	return &Reconciler{
		store:     s,
		scopeDone: scopeDone,
		logger:    log.WithComponent("reconciler"),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the reconciliation loop.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(defaultInterval)
	defer ticker.Stop()

	r.logger.Info().Msg("reconciler started")

	for {
		select {
		case <-ticker.C:
			if err := r.reconcile(); err != nil {
				r.logger.Error().Err(err).Msg("reconciliation cycle failed")
			}
		case <-r.stopCh:
			r.logger.Info().Msg("reconciler stopped")
			return
		}
	}
}

// reconcile performs one garbage collection cycle: scan every deferred
// record, discard the ones whose owner scope has terminated.
func (r *Reconciler) reconcile() error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.store.DeferredRecords().All()
	if err != nil {
		return err
	}

	for _, rec := range records {
		done, err := r.scopeDone(uint64(rec.OwnerScopeKey))
		if err != nil {
			r.logger.Warn().Err(err).Uint64("owner_scope_key", uint64(rec.OwnerScopeKey)).Msg("could not check owner scope, leaving deferred record in place")
			continue
		}
		if !done {
			continue
		}

		r.logger.Debug().
			Uint64("owner_scope_key", uint64(rec.OwnerScopeKey)).
			Uint64("child_instance_key", uint64(rec.ChildInstanceKey)).
			Str("child_element_id", rec.ChildElementId).
			Msg("discarding deferred record for terminated scope")

		if err := r.store.DeferredRecords().Delete(rec.OwnerScopeKey, rec.ChildInstanceKey); err != nil {
			r.logger.Error().Err(err).Msg("failed to discard deferred record")
			continue
		}
		metrics.DeferredRecordsDiscarded.Inc()
	}

	return nil
}
