package store

import (
	"testing"

	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestKeyGeneratorIsMonotonic(t *testing.T) {
	s := openTestStore(t)

	var keys []model.Key
	for i := 0; i < 5; i++ {
		k, err := s.Keys().Next()
		require.NoError(t, err)
		keys = append(keys, k)
	}

	for i := 1; i < len(keys); i++ {
		assert.Greater(t, keys[i], keys[i-1])
	}
}

func TestWorkflowStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	store := s.Workflows()

	wf := &model.Workflow{Key: 1, BpmnProcessId: "order-process", Version: 1, RootElementId: "Process_1"}
	require.NoError(t, store.Put(wf))

	got, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, wf.BpmnProcessId, got.BpmnProcessId)

	_, err = store.Get(999)
	assert.Error(t, err)
}

func TestWorkflowStoreLatestByProcessId(t *testing.T) {
	s := openTestStore(t)
	store := s.Workflows()

	require.NoError(t, store.Put(&model.Workflow{Key: 1, BpmnProcessId: "p", Version: 1}))
	require.NoError(t, store.Put(&model.Workflow{Key: 2, BpmnProcessId: "p", Version: 3}))
	require.NoError(t, store.Put(&model.Workflow{Key: 3, BpmnProcessId: "p", Version: 2}))

	latest, err := store.LatestByProcessId("p")
	require.NoError(t, err)
	assert.Equal(t, int32(3), latest.Version)
	assert.Equal(t, model.Key(2), latest.Key)
}

func TestElementInstanceStoreChildren(t *testing.T) {
	s := openTestStore(t)
	store := s.ElementInstances()

	root := &model.ElementInstance{Key: 1, ParentKey: 0, ElementId: "Process_1", State: model.StateActivated}
	require.NoError(t, store.Put(root))

	childA := &model.ElementInstance{Key: 2, ParentKey: 1, ElementId: "Task_A", State: model.StateActivated}
	childB := &model.ElementInstance{Key: 3, ParentKey: 1, ElementId: "Task_B", State: model.StateActivated}
	require.NoError(t, store.Put(childA))
	require.NoError(t, store.Put(childB))

	children, err := store.Children(1)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	require.NoError(t, store.Delete(2))
	_, err = store.Get(2)
	assert.Error(t, err)
}

func TestEventTriggerStoreOrderingAndPeek(t *testing.T) {
	s := openTestStore(t)
	store := s.EventTriggers()

	require.NoError(t, store.Put(&model.EventTrigger{ScopeKey: 10, EventKey: 1, TargetElementId: "Boundary_A"}))
	require.NoError(t, store.Put(&model.EventTrigger{ScopeKey: 10, EventKey: 2, TargetElementId: "Boundary_B"}))
	require.NoError(t, store.Put(&model.EventTrigger{ScopeKey: 11, EventKey: 3, TargetElementId: "Boundary_A"}))

	triggers, err := store.ForScope(10)
	require.NoError(t, err)
	require.Len(t, triggers, 2)
	assert.Equal(t, model.Key(1), triggers[0].EventKey)
	assert.Equal(t, model.Key(2), triggers[1].EventKey)

	found, err := store.Peek(10, "Boundary_B")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, model.Key(2), found.EventKey)

	require.NoError(t, store.Delete(10, 2))
	found, err = store.Peek(10, "Boundary_B")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestDeferredRecordStoreForOwnerAndAll(t *testing.T) {
	s := openTestStore(t)
	store := s.DeferredRecords()

	require.NoError(t, store.Put(&model.DeferredRecord{OwnerScopeKey: 5, ChildInstanceKey: 50, Intent: model.IntentElementActivating}))
	require.NoError(t, store.Put(&model.DeferredRecord{OwnerScopeKey: 5, ChildInstanceKey: 51, Intent: model.IntentElementActivating}))
	require.NoError(t, store.Put(&model.DeferredRecord{OwnerScopeKey: 6, ChildInstanceKey: 60, Intent: model.IntentElementActivating}))

	owned, err := store.ForOwner(5)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	all, err := store.All()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.Delete(5, 50))
	owned, err = store.ForOwner(5)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}
