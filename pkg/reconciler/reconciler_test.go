package reconciler

import (
	"testing"

	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir(), 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func terminatedScopeFromStore(s *store.Store) terminatedScope {
	return func(scopeKey uint64) (bool, error) {
		instance, err := s.ElementInstances().Get(model.Key(scopeKey))
		if err != nil {
			return true, nil
		}
		return instance.State == model.StateTerminated, nil
	}
}

func TestReconcileDiscardsRecordForTerminatedScope(t *testing.T) {
	s := openTestStore(t)

	scope := &model.ElementInstance{Key: 1, ElementId: "Sub_1", ElementType: "SUB_PROCESS", State: model.StateTerminated}
	require.NoError(t, s.ElementInstances().Put(scope))

	rec := &model.DeferredRecord{
		OwnerScopeKey:    1,
		ChildInstanceKey: 2,
		ChildElementId:   "Event_1",
		ChildElementType: "BOUNDARY_EVENT",
		Intent:           model.IntentElementActivating,
		Purpose:          model.PurposeDeferredActivation,
	}
	require.NoError(t, s.DeferredRecords().Put(rec))

	r := NewReconciler(s, terminatedScopeFromStore(s))
	require.NoError(t, r.reconcile())

	remaining, err := s.DeferredRecords().ForOwner(1)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestReconcileLeavesRecordForActiveScope(t *testing.T) {
	s := openTestStore(t)

	scope := &model.ElementInstance{Key: 1, ElementId: "Sub_1", ElementType: "SUB_PROCESS", State: model.StateActivated}
	require.NoError(t, s.ElementInstances().Put(scope))

	rec := &model.DeferredRecord{
		OwnerScopeKey:    1,
		ChildInstanceKey: 2,
		ChildElementId:   "Event_1",
		ChildElementType: "BOUNDARY_EVENT",
		Intent:           model.IntentElementActivating,
		Purpose:          model.PurposeDeferredActivation,
	}
	require.NoError(t, s.DeferredRecords().Put(rec))

	r := NewReconciler(s, terminatedScopeFromStore(s))
	require.NoError(t, r.reconcile())

	remaining, err := s.DeferredRecords().ForOwner(1)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestReconcileDiscardsRecordForMissingScope(t *testing.T) {
	s := openTestStore(t)

	rec := &model.DeferredRecord{
		OwnerScopeKey:    1,
		ChildInstanceKey: 2,
		ChildElementId:   "Event_1",
		ChildElementType: "BOUNDARY_EVENT",
		Intent:           model.IntentElementActivating,
		Purpose:          model.PurposeDeferredActivation,
	}
	require.NoError(t, s.DeferredRecords().Put(rec))

	r := NewReconciler(s, terminatedScopeFromStore(s))
	require.NoError(t, r.reconcile())

	remaining, err := s.DeferredRecords().ForOwner(1)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
