package partition

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

func TestApplyCommandPutAndDeleteElementInstance(t *testing.T) {
	s := openTestStore(t)

	instance := &model.ElementInstance{Key: 1, ElementId: "Task_1", ElementType: "SERVICE_TASK", State: model.StateActivating}
	cmd, err := NewPutElementInstanceCommand(instance)
	require.NoError(t, err)
	require.NoError(t, ApplyCommand(s, cmd))

	got, err := s.ElementInstances().Get(1)
	require.NoError(t, err)
	assert.Equal(t, "Task_1", got.ElementId)

	delCmd, err := NewDeleteElementInstanceCommand(1)
	require.NoError(t, err)
	require.NoError(t, ApplyCommand(s, delCmd))

	_, err = s.ElementInstances().Get(1)
	assert.Error(t, err)
}

func TestApplyCommandPutAndDeleteEventTrigger(t *testing.T) {
	s := openTestStore(t)

	trigger := &model.EventTrigger{ScopeKey: 1, EventKey: 2, TargetElementId: "Start_1"}
	cmd, err := NewPutEventTriggerCommand(trigger)
	require.NoError(t, err)
	require.NoError(t, ApplyCommand(s, cmd))

	got, err := s.EventTriggers().Peek(1, "Start_1")
	require.NoError(t, err)
	require.NotNil(t, got)

	delCmd, err := NewDeleteEventTriggerCommand(1, 2)
	require.NoError(t, err)
	require.NoError(t, ApplyCommand(s, delCmd))

	got, err = s.EventTriggers().Peek(1, "Start_1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestApplyCommandPutAndDeleteDeferredRecord(t *testing.T) {
	s := openTestStore(t)

	rec := &model.DeferredRecord{OwnerScopeKey: 1, ChildInstanceKey: 2, ChildElementId: "Event_1", Intent: model.IntentElementActivating}
	cmd, err := NewPutDeferredRecordCommand(rec)
	require.NoError(t, err)
	require.NoError(t, ApplyCommand(s, cmd))

	records, err := s.DeferredRecords().ForOwner(1)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	delCmd, err := NewDeleteDeferredRecordCommand(1, 2)
	require.NoError(t, err)
	require.NoError(t, ApplyCommand(s, delCmd))

	records, err = s.DeferredRecords().ForOwner(1)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestApplyCommandUnknownOpReturnsError(t *testing.T) {
	s := openTestStore(t)

	err := ApplyCommand(s, Command{Op: "not_a_real_op"})
	assert.Error(t, err)
}

func TestApplyCommandPutWorkflow(t *testing.T) {
	s := openTestStore(t)

	wf := &model.Workflow{Key: 1, BpmnProcessId: "order-process", Version: 1, RootElementId: "Process_1"}
	cmd, err := NewPutWorkflowCommand(wf)
	require.NoError(t, err)
	require.NoError(t, ApplyCommand(s, cmd))

	got, err := s.Workflows().Get(1)
	require.NoError(t, err)
	assert.Equal(t, "order-process", got.BpmnProcessId)
}
