package bpmn

import (
	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/partition"
)

// TriggerEventSubProcess consumes the oldest pending trigger at
// flowScopeKey targeting startEvent, starting an event sub-process under
// it. A flow scope already claimed by an interrupting event sub-process
// discards any further trigger for this path: spec §4.2 allows at most
// one interrupting claim per scope.
func (b *Behavior) TriggerEventSubProcess(flowScopeKey model.Key, startEvent BoundaryEventDeclaration) error {
	scope, err := b.store.ElementInstances().Get(flowScopeKey)
	if err != nil {
		return newElementInstanceNotFoundError(flowScopeKey)
	}
	if scope.Interrupted {
		return nil
	}

	trigger, err := b.peekTrigger(flowScopeKey, startEvent.ElementId)
	if err != nil || trigger == nil {
		return err
	}

	return b.consumeTrigger(trigger, func(t *model.EventTrigger) (model.Key, error) {
		eventKey, err := b.store.Keys().Next()
		if err != nil {
			return 0, err
		}

		if !startEvent.Interrupting {
			if err := b.activateChild(flowScopeKey, eventKey, startEvent.ElementId, startEvent.ElementType); err != nil {
				return 0, err
			}
			return eventKey, nil
		}

		b.catchEvents.Unsubscribe(flowScopeKey)

		children, err := b.store.ElementInstances().Children(flowScopeKey)
		if err != nil {
			return 0, err
		}

		activeChildren := 0
		for _, child := range children {
			if child.State == model.StateTerminated || child.State == model.StateTerminating {
				continue
			}
			if err := b.transitionState(child.Key, model.StateTerminating); err != nil {
				return 0, err
			}
			activeChildren++
		}

		if err := b.deferActivation(flowScopeKey, eventKey, startEvent.ElementId, startEvent.ElementType, t.Variables); err != nil {
			return 0, err
		}

		scope.Interrupted = true
		scope.InterruptingEventKey = eventKey
		scope.ActiveTokenCount++
		cmd, err := partition.NewPutElementInstanceCommand(scope)
		if err != nil {
			return 0, err
		}
		if err := b.applier.Apply(cmd); err != nil {
			return 0, err
		}

		if activeChildren == 0 {
			if _, err := b.PublishTriggeredEventSubProcess(flowScopeKey); err != nil {
				return 0, err
			}
		}
		return eventKey, nil
	})
}

// isReadyForEventSubProcessPublish reports whether scope has converged
// to the point its deferred interrupting event sub-process may publish:
// its own token plus the sub-process's reserved token are the only ones
// left, and the scope is still ACTIVATED, per spec §4.2.
func isReadyForEventSubProcessPublish(scope *model.ElementInstance) bool {
	return scope.ActiveTokenCount == 2 && scope.Interrupted && scope.State == model.StateActivated
}

// PublishTriggeredEventSubProcess activates the deferred interrupting
// event sub-process once flowScopeKey satisfies
// isReadyForEventSubProcessPublish — called after observing a terminated
// sibling complete.
func (b *Behavior) PublishTriggeredEventSubProcess(flowScopeKey model.Key) (bool, error) {
	scope, err := b.store.ElementInstances().Get(flowScopeKey)
	if err != nil {
		return false, newElementInstanceNotFoundError(flowScopeKey)
	}
	if !isReadyForEventSubProcessPublish(scope) {
		return false, nil
	}

	return b.publishFirstDeferred(flowScopeKey, func(rec *model.DeferredRecord) bool {
		return rec.ChildInstanceKey == scope.InterruptingEventKey && rec.Intent == model.IntentElementActivating
	})
}
