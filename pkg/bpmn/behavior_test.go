package bpmn

import (
	"testing"

	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/partition"
	"github.com/cuemby/flowmesh/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeApplier applies every command straight to its store, standing in
// for a Raft-backed Manager in tests that only care about the FSM's
// mutation semantics.
type storeApplier struct {
	store *store.Store
}

func (a *storeApplier) Apply(cmd partition.Command) error {
	return partition.ApplyCommand(a.store, cmd)
}

func newTestBehavior(t *testing.T) (*Behavior, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir(), 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	applier := &storeApplier{store: s}
	b := NewBehavior(s, applier, NewCatchEventBehavior(nil))
	return b, s
}

func TestTriggerIntermediateEventCompletesActivity(t *testing.T) {
	b, s := newTestBehavior(t)

	require.NoError(t, s.ElementInstances().Put(&model.ElementInstance{
		Key: 100, ParentKey: 1, ElementId: "Catch_1", ElementType: "INTERMEDIATE_CATCH_EVENT", State: model.StateActivated,
	}))
	require.NoError(t, s.EventTriggers().Put(&model.EventTrigger{ScopeKey: 100, EventKey: 1, TargetElementId: "Catch_1", Variables: []byte(`{"x":1}`)}))

	ctx := Context{ElementInstanceKey: 100, ScopeKey: 100, ElementId: "Catch_1", ElementType: "INTERMEDIATE_CATCH_EVENT"}
	require.NoError(t, b.TriggerBoundaryOrIntermediateEvent(ctx, nil))

	instance, err := s.ElementInstances().Get(100)
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleting, instance.State)

	triggers, err := s.EventTriggers().ForScope(100)
	require.NoError(t, err)
	assert.Empty(t, triggers)

	vars, err := s.Variables().TemporaryVariables(100)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"x":1}`), vars)
}

func TestTriggerBoundaryOrIntermediateEventDiscardsWhenNoTriggerPending(t *testing.T) {
	b, _ := newTestBehavior(t)

	ctx := Context{ElementInstanceKey: 200, ScopeKey: 200, ElementId: "Task_1", ElementType: "SERVICE_TASK"}
	require.NoError(t, b.TriggerBoundaryOrIntermediateEvent(ctx, nil))
}

func TestInterruptingBoundaryEventDefersActivationUntilActivityTerminates(t *testing.T) {
	b, s := newTestBehavior(t)

	require.NoError(t, s.ElementInstances().Put(&model.ElementInstance{
		Key: 1, ParentKey: 0, ElementId: "Process_1", ElementType: "PROCESS", State: model.StateActivated, ActiveTokenCount: 1,
	}))
	require.NoError(t, s.ElementInstances().Put(&model.ElementInstance{
		Key: 10, ParentKey: 1, ElementId: "Task_1", ElementType: "SERVICE_TASK", State: model.StateActivated,
	}))
	require.NoError(t, s.EventTriggers().Put(&model.EventTrigger{ScopeKey: 1, EventKey: 1, TargetElementId: "Boundary_1"}))

	boundary := BoundaryEventDeclaration{ElementId: "Boundary_1", ElementType: "BOUNDARY_EVENT", Interrupting: true}
	ctx := Context{ElementInstanceKey: 10, ScopeKey: 1, ElementId: "Task_1", ElementType: "SERVICE_TASK"}

	require.NoError(t, b.TriggerBoundaryOrIntermediateEvent(ctx, []BoundaryEventDeclaration{boundary}))

	task, err := s.ElementInstances().Get(10)
	require.NoError(t, err)
	assert.Equal(t, model.StateTerminating, task.State)

	deferred, err := s.DeferredRecords().ForOwner(1)
	require.NoError(t, err)
	require.Len(t, deferred, 1)
	assert.Equal(t, "Boundary_1", deferred[0].ChildElementId)

	published, err := b.PublishTriggeredBoundaryEvent(Context{ScopeKey: 1}, boundary)
	require.NoError(t, err)
	assert.True(t, published)

	deferred, err = s.DeferredRecords().ForOwner(1)
	require.NoError(t, err)
	assert.Empty(t, deferred)
}

func TestNonInterruptingBoundaryEventActivatesImmediatelyAlongsideActivity(t *testing.T) {
	b, s := newTestBehavior(t)

	require.NoError(t, s.ElementInstances().Put(&model.ElementInstance{
		Key: 1, ParentKey: 0, ElementId: "Process_1", ElementType: "PROCESS", State: model.StateActivated, ActiveTokenCount: 1,
	}))
	require.NoError(t, s.ElementInstances().Put(&model.ElementInstance{
		Key: 10, ParentKey: 1, ElementId: "Task_1", ElementType: "SERVICE_TASK", State: model.StateActivated,
	}))
	require.NoError(t, s.EventTriggers().Put(&model.EventTrigger{ScopeKey: 1, EventKey: 1, TargetElementId: "Boundary_1"}))

	boundary := BoundaryEventDeclaration{ElementId: "Boundary_1", ElementType: "BOUNDARY_EVENT", Interrupting: false}
	ctx := Context{ElementInstanceKey: 10, ScopeKey: 1, ElementId: "Task_1", ElementType: "SERVICE_TASK"}

	require.NoError(t, b.TriggerBoundaryOrIntermediateEvent(ctx, []BoundaryEventDeclaration{boundary}))

	task, err := s.ElementInstances().Get(10)
	require.NoError(t, err)
	assert.Equal(t, model.StateActivated, task.State, "non-interrupting boundary event must not disturb the attached activity")

	deferred, err := s.DeferredRecords().ForOwner(1)
	require.NoError(t, err)
	assert.Empty(t, deferred, "non-interrupting activation is immediate, never deferred")

	scope, err := s.ElementInstances().Get(1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), scope.ActiveTokenCount)
}

func TestTriggerEventBasedGatewayResolvesOutgoingPath(t *testing.T) {
	b, s := newTestBehavior(t)

	require.NoError(t, s.ElementInstances().Put(&model.ElementInstance{
		Key: 1, ParentKey: 0, ElementId: "Gateway_1", ElementType: "EVENT_BASED_GATEWAY", State: model.StateActivated,
	}))
	require.NoError(t, s.EventTriggers().Put(&model.EventTrigger{ScopeKey: 1, EventKey: 1, TargetElementId: "Catch_B"}))

	outgoing := []GatewayOutgoing{
		{ElementId: "Catch_A", ElementType: "INTERMEDIATE_CATCH_EVENT"},
		{ElementId: "Catch_B", ElementType: "INTERMEDIATE_CATCH_EVENT"},
	}
	ctx := Context{ElementInstanceKey: 1, ScopeKey: 1, ElementId: "Gateway_1", ElementType: "EVENT_BASED_GATEWAY"}

	require.NoError(t, b.TriggerEventBasedGateway(ctx, outgoing))

	gateway, err := s.ElementInstances().Get(1)
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleting, gateway.State)

	published, err := b.PublishTriggeredEventBasedGateway(ctx)
	require.NoError(t, err)
	assert.True(t, published)

	deferred, err := s.DeferredRecords().ForOwner(1)
	require.NoError(t, err)
	assert.Empty(t, deferred)
}

func TestTriggerEventBasedGatewayRejectsUndeclaredTarget(t *testing.T) {
	b, s := newTestBehavior(t)

	require.NoError(t, s.ElementInstances().Put(&model.ElementInstance{
		Key: 1, ParentKey: 0, ElementId: "Gateway_1", ElementType: "EVENT_BASED_GATEWAY", State: model.StateActivated,
	}))
	require.NoError(t, s.EventTriggers().Put(&model.EventTrigger{ScopeKey: 1, EventKey: 1, TargetElementId: "Catch_Unknown"}))

	ctx := Context{ElementInstanceKey: 1, ScopeKey: 1, ElementId: "Gateway_1", ElementType: "EVENT_BASED_GATEWAY"}
	err := b.TriggerEventBasedGateway(ctx, []GatewayOutgoing{{ElementId: "Catch_A", ElementType: "INTERMEDIATE_CATCH_EVENT"}})
	require.Error(t, err)
}

func TestTriggerStartEventCreatesInstanceAndDefersStartActivation(t *testing.T) {
	b, s := newTestBehavior(t)

	require.NoError(t, s.Workflows().Put(&model.Workflow{Key: 1, BpmnProcessId: "order-process", Version: 1, RootElementId: "Process_1"}))
	require.NoError(t, s.EventTriggers().Put(&model.EventTrigger{ScopeKey: 1, EventKey: 1, TargetElementId: "Process_1", Variables: []byte(`{"orderId":1}`)}))

	instanceKey, err := b.TriggerStartEvent(1, "Process_1", "PROCESS")
	require.NoError(t, err)
	assert.NotZero(t, instanceKey)

	instance, err := s.ElementInstances().Get(instanceKey)
	require.NoError(t, err)
	assert.Equal(t, model.StateActivating, instance.State)

	triggers, err := s.EventTriggers().ForScope(1)
	require.NoError(t, err)
	assert.Empty(t, triggers)

	deferred, err := s.DeferredRecords().ForOwner(instanceKey)
	require.NoError(t, err)
	require.Len(t, deferred, 1)

	published, err := b.PublishTriggeredStartEvent(instanceKey, "Process_1")
	require.NoError(t, err)
	assert.True(t, published)
}

func TestTriggerStartEventFailsForUnknownWorkflow(t *testing.T) {
	b, _ := newTestBehavior(t)

	_, err := b.TriggerStartEvent(999, "Process_1", "PROCESS")
	require.Error(t, err)
}

func TestInterruptingEventSubProcessWithActiveChildrenWaitsForTermination(t *testing.T) {
	b, s := newTestBehavior(t)

	require.NoError(t, s.ElementInstances().Put(&model.ElementInstance{
		Key: 1, ParentKey: 0, ElementId: "Process_1", ElementType: "PROCESS", State: model.StateActivated, ActiveTokenCount: 2,
	}))
	require.NoError(t, s.ElementInstances().Put(&model.ElementInstance{
		Key: 10, ParentKey: 1, ElementId: "Task_1", ElementType: "SERVICE_TASK", State: model.StateActivated,
	}))
	require.NoError(t, s.EventTriggers().Put(&model.EventTrigger{ScopeKey: 1, EventKey: 1, TargetElementId: "SubProcessStart_1"}))

	startEvent := BoundaryEventDeclaration{ElementId: "SubProcessStart_1", ElementType: "START_EVENT", Interrupting: true}
	require.NoError(t, b.TriggerEventSubProcess(1, startEvent))

	task, err := s.ElementInstances().Get(10)
	require.NoError(t, err)
	assert.Equal(t, model.StateTerminating, task.State)

	scope, err := s.ElementInstances().Get(1)
	require.NoError(t, err)
	assert.True(t, scope.Interrupted)
	assert.NotZero(t, scope.InterruptingEventKey)
	assert.Equal(t, int32(3), scope.ActiveTokenCount, "task's token is still outstanding alongside the new sub-process token")

	published, err := b.PublishTriggeredEventSubProcess(1)
	require.NoError(t, err)
	assert.False(t, published, "not ready until the terminated task's token is released")

	require.NoError(t, b.transitionState(10, model.StateTerminated))
	scope.ActiveTokenCount--
	require.NoError(t, s.ElementInstances().Put(scope))

	published, err = b.PublishTriggeredEventSubProcess(1)
	require.NoError(t, err)
	assert.True(t, published)
}

func TestEventSubProcessDiscardsSecondInterruptingClaim(t *testing.T) {
	b, s := newTestBehavior(t)

	require.NoError(t, s.ElementInstances().Put(&model.ElementInstance{
		Key: 1, ParentKey: 0, ElementId: "Process_1", ElementType: "PROCESS", State: model.StateActivated,
		ActiveTokenCount: 2, Interrupted: true, InterruptingEventKey: 99,
	}))
	require.NoError(t, s.EventTriggers().Put(&model.EventTrigger{ScopeKey: 1, EventKey: 2, TargetElementId: "SubProcessStart_1"}))

	startEvent := BoundaryEventDeclaration{ElementId: "SubProcessStart_1", ElementType: "START_EVENT", Interrupting: true}
	require.NoError(t, b.TriggerEventSubProcess(1, startEvent))

	triggers, err := s.EventTriggers().ForScope(1)
	require.NoError(t, err)
	require.Len(t, triggers, 1, "a second interrupting claim must be discarded without consuming the trigger")
}
