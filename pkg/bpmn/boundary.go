package bpmn

import (
	"github.com/cuemby/flowmesh/pkg/metrics"
	"github.com/cuemby/flowmesh/pkg/model"
)

// TriggerBoundaryOrIntermediateEvent consumes the oldest pending trigger
// at ctx.ScopeKey and dispatches it to the matching boundary declaration,
// or treats it as an intermediate catch event completing ctx's own
// activity if nothing declared matches its target.
func (b *Behavior) TriggerBoundaryOrIntermediateEvent(ctx Context, boundaryEvents []BoundaryEventDeclaration) error {
	trigger, err := b.peekAnyTrigger(ctx.ScopeKey)
	if err != nil || trigger == nil {
		return err
	}

	for _, boundary := range boundaryEvents {
		if boundary.ElementId == trigger.TargetElementId {
			return b.triggerBoundaryEvent(ctx, trigger, boundary)
		}
	}
	return b.triggerIntermediateEvent(ctx, trigger)
}

// triggerIntermediateEvent consumes trigger and completes ctx's own
// activity — the catch event was waited on directly, not as a
// boundary attachment.
func (b *Behavior) triggerIntermediateEvent(ctx Context, trigger *model.EventTrigger) error {
	return b.consumeTrigger(trigger, func(t *model.EventTrigger) (model.Key, error) {
		if err := b.transitionState(ctx.ElementInstanceKey, model.StateCompleting); err != nil {
			return 0, err
		}
		return ctx.ElementInstanceKey, nil
	})
}

// triggerBoundaryEvent consumes trigger and activates boundary.
// Non-interrupting boundary events activate their handler immediately,
// alongside the activity they're attached to, which keeps running.
// Interrupting boundary events instead terminate the attached activity
// and defer the handler's activation until that termination completes
// (see PublishTriggeredBoundaryEvent).
func (b *Behavior) triggerBoundaryEvent(ctx Context, trigger *model.EventTrigger, boundary BoundaryEventDeclaration) error {
	return b.consumeTrigger(trigger, func(t *model.EventTrigger) (model.Key, error) {
		boundaryKey, err := b.store.Keys().Next()
		if err != nil {
			return 0, err
		}

		if !boundary.Interrupting {
			if err := b.activateChild(ctx.ScopeKey, boundaryKey, boundary.ElementId, boundary.ElementType); err != nil {
				return 0, err
			}
			metrics.BoundaryEventsTriggered.WithLabelValues("false").Inc()
			return boundaryKey, nil
		}

		if err := b.deferActivation(ctx.ScopeKey, boundaryKey, boundary.ElementId, boundary.ElementType, t.Variables); err != nil {
			return 0, err
		}
		if err := b.transitionState(ctx.ElementInstanceKey, model.StateTerminating); err != nil {
			return 0, err
		}
		metrics.BoundaryEventsTriggered.WithLabelValues("true").Inc()
		return boundaryKey, nil
	})
}

// PublishTriggeredBoundaryEvent activates boundary's handler once its
// deferred activation is ready to publish — called after the attached
// activity's termination has been observed to complete.
func (b *Behavior) PublishTriggeredBoundaryEvent(ctx Context, boundary BoundaryEventDeclaration) (bool, error) {
	return b.publishFirstDeferred(ctx.ScopeKey, func(rec *model.DeferredRecord) bool {
		return rec.ChildElementId == boundary.ElementId && rec.Intent == model.IntentElementActivating
	})
}
