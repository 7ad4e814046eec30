package bpmn

import (
	"github.com/cuemby/flowmesh/pkg/metrics"
	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/partition"
	"github.com/cuemby/flowmesh/pkg/store"
)

// Applier commits a replicated mutation. *partition.Manager satisfies
// this structurally; tests supply a fake.
type Applier interface {
	Apply(cmd partition.Command) error
}

// Context identifies the element instance an operation acts on: the
// instance itself, its owning flow scope (equal to ElementInstanceKey
// for a top-level activity, or the sub-process/event-sub-process parent
// otherwise), and its BPMN identity.
type Context struct {
	ElementInstanceKey model.Key
	ScopeKey           model.Key
	ElementId          string
	ElementType        string
}

// Behavior implements the BPMN event-subscription and trigger-injection
// core: it is the single place that subscribes scopes to catch events,
// consumes event triggers the subscription router deposited, and
// advances the element instance scope tree in response, with correct
// interruption semantics. Meant to be owned by one partition's
// single-threaded actor; nothing here locks.
type Behavior struct {
	store       *store.Store
	applier     Applier
	catchEvents *CatchEventBehavior
}

// NewBehavior creates a Behavior over s, applying mutations through
// applier and delegating message subscriptions to catchEvents.
func NewBehavior(s *store.Store, applier Applier, catchEvents *CatchEventBehavior) *Behavior {
	return &Behavior{store: s, applier: applier, catchEvents: catchEvents}
}

// SubscribeToEvents installs every declared catch event for instance
// under ctx.ScopeKey. The first recoverable failure aborts the
// remaining declarations and is returned to the caller to report as an
// incident; partial subscriptions already installed are left active,
// matching spec §4.2's note that subscribeToEvents does not roll back
// its own partial effects on failure.
func (b *Behavior) SubscribeToEvents(ctx Context, instance *model.ElementInstance, declarations []CatchEventDeclaration) Result {
	for _, decl := range declarations {
		if result := b.catchEvents.Subscribe(ctx.ScopeKey, instance, decl); !result.IsOk() {
			return result
		}
	}
	return Ok()
}

// UnsubscribeFromEvents closes every catch event subscription installed
// under ctx.ScopeKey. Idempotent.
func (b *Behavior) UnsubscribeFromEvents(ctx Context) {
	b.catchEvents.Unsubscribe(ctx.ScopeKey)
}

// DeliverEventTrigger mints and persists a new event trigger at
// scopeKey targeting targetElementId, the handoff point where the
// subscription router's CorrelateWorkflowInstanceSubscription command
// becomes state this package can act on.
func (b *Behavior) DeliverEventTrigger(scopeKey model.Key, targetElementId, elementType string, variables []byte) (model.Key, error) {
	eventKey, err := b.store.Keys().Next()
	if err != nil {
		return 0, err
	}

	trigger := &model.EventTrigger{
		ScopeKey:        scopeKey,
		EventKey:        eventKey,
		TargetElementId: targetElementId,
		Variables:       variables,
	}

	cmd, err := partition.NewPutEventTriggerCommand(trigger)
	if err != nil {
		return 0, err
	}
	if err := b.applier.Apply(cmd); err != nil {
		return 0, err
	}

	metrics.EventTriggersCreated.WithLabelValues(elementType).Inc()
	return eventKey, nil
}

// peekTrigger returns the oldest pending trigger at scopeKey targeting
// targetElementId, or nil if none is pending. Used where the target is
// known ahead of time (start events, event sub-process start events).
func (b *Behavior) peekTrigger(scopeKey model.Key, targetElementId string) (*model.EventTrigger, error) {
	return b.store.EventTriggers().Peek(scopeKey, targetElementId)
}

// peekAnyTrigger returns the oldest pending trigger at scopeKey
// regardless of target, or nil if none is pending. Used where the
// caller must inspect the trigger's target to decide how to handle it
// (a boundary event scope can have several declared boundary events
// plus an intermediate catch event all sharing the same scope).
func (b *Behavior) peekAnyTrigger(scopeKey model.Key) (*model.EventTrigger, error) {
	triggers, err := b.store.EventTriggers().ForScope(scopeKey)
	if err != nil || len(triggers) == 0 {
		return nil, err
	}
	return triggers[0], nil
}

// consumeTrigger implements the atomic trigger-consumption contract
// from spec §4.2 given a trigger already located by the caller (via
// peekTrigger or peekAnyTrigger): run handler, stash its temporary
// variables under the element instance key handler returns (if any),
// and delete the trigger — the trigger's only observable side effects.
// handler returning (0, nil) means "discard without activating anything
// further."
func (b *Behavior) consumeTrigger(trigger *model.EventTrigger, handler func(trigger *model.EventTrigger) (model.Key, error)) error {
	newKey, err := handler(trigger)
	if err != nil {
		return err
	}

	if newKey != 0 && len(trigger.Variables) > 0 {
		if err := b.store.Variables().SetTemporaryVariables(newKey, trigger.Variables); err != nil {
			return err
		}
	}

	cmd, err := partition.NewDeleteEventTriggerCommand(trigger.ScopeKey, trigger.EventKey)
	if err != nil {
		return err
	}
	if err := b.applier.Apply(cmd); err != nil {
		return err
	}

	metrics.EventTriggersConsumed.WithLabelValues(trigger.TargetElementId).Inc()
	return nil
}

// transitionState moves an element instance to state, persisting the
// change.
func (b *Behavior) transitionState(key model.Key, state model.ElementState) error {
	instance, err := b.store.ElementInstances().Get(key)
	if err != nil {
		return newElementInstanceNotFoundError(key)
	}
	instance.State = state
	cmd, err := partition.NewPutElementInstanceCommand(instance)
	if err != nil {
		return err
	}
	return b.applier.Apply(cmd)
}

// spawnToken increments scopeKey's active token count, as happens
// whenever a new child scope is spawned under it.
func (b *Behavior) spawnToken(scopeKey model.Key) error {
	scope, err := b.store.ElementInstances().Get(scopeKey)
	if err != nil {
		return newElementInstanceNotFoundError(scopeKey)
	}
	scope.ActiveTokenCount++
	cmd, err := partition.NewPutElementInstanceCommand(scope)
	if err != nil {
		return err
	}
	return b.applier.Apply(cmd)
}

// activateChild writes a new ACTIVATING element instance for childKey
// under parentScopeKey and spawns the token that accounts for it.
func (b *Behavior) activateChild(parentScopeKey, childKey model.Key, elementId, elementType string) error {
	child := &model.ElementInstance{
		Key:         childKey,
		ParentKey:   parentScopeKey,
		ElementId:   elementId,
		ElementType: elementType,
		State:       model.StateActivating,
	}
	cmd, err := partition.NewPutElementInstanceCommand(child)
	if err != nil {
		return err
	}
	if err := b.applier.Apply(cmd); err != nil {
		return err
	}
	return b.spawnToken(parentScopeKey)
}

// publishFirstDeferred finds the oldest deferred record owned by
// scopeKey for which match reports true, activates its child, and
// deletes the deferred record. Reports whether a matching record was
// found and published.
func (b *Behavior) publishFirstDeferred(scopeKey model.Key, match func(rec *model.DeferredRecord) bool) (bool, error) {
	records, err := b.store.DeferredRecords().ForOwner(scopeKey)
	if err != nil {
		return false, err
	}

	for _, rec := range records {
		if !match(rec) {
			continue
		}

		if err := b.activateChild(rec.OwnerScopeKey, rec.ChildInstanceKey, rec.ChildElementId, rec.ChildElementType); err != nil {
			return false, err
		}

		cmd, err := partition.NewDeleteDeferredRecordCommand(rec.OwnerScopeKey, rec.ChildInstanceKey)
		if err != nil {
			return false, err
		}
		if err := b.applier.Apply(cmd); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// deferActivation persists a deferred ELEMENT_ACTIVATING record for
// childKey under ownerScopeKey, to be published later once ownerScopeKey
// is ready (see publishFirstDeferred).
func (b *Behavior) deferActivation(ownerScopeKey, childInstanceKey model.Key, childElementId, childElementType string, payload []byte) error {
	rec := &model.DeferredRecord{
		OwnerScopeKey:    ownerScopeKey,
		ChildInstanceKey: childInstanceKey,
		ChildElementId:   childElementId,
		ChildElementType: childElementType,
		Intent:           model.IntentElementActivating,
		Purpose:          model.PurposeDeferredActivation,
		Payload:          payload,
	}
	cmd, err := partition.NewPutDeferredRecordCommand(rec)
	if err != nil {
		return err
	}
	return b.applier.Apply(cmd)
}
