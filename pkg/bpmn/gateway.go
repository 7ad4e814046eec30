package bpmn

import (
	"github.com/cuemby/flowmesh/pkg/metrics"
	"github.com/cuemby/flowmesh/pkg/model"
)

// GatewayOutgoing describes one outgoing catch event path of an
// event-based gateway.
type GatewayOutgoing struct {
	ElementId   string
	ElementType string
}

// TriggerEventBasedGateway consumes the oldest pending trigger at
// ctx.ScopeKey, defers activation of the outgoing path it resolved to,
// and completes the gateway itself. The deferred activation publishes
// once the gateway's own completion is observed (PublishTriggeredEventBasedGateway),
// the same deferred handoff interrupting boundary events use.
func (b *Behavior) TriggerEventBasedGateway(ctx Context, outgoing []GatewayOutgoing) error {
	trigger, err := b.peekAnyTrigger(ctx.ScopeKey)
	if err != nil || trigger == nil {
		return err
	}

	var matched *GatewayOutgoing
	for i := range outgoing {
		if outgoing[i].ElementId == trigger.TargetElementId {
			matched = &outgoing[i]
			break
		}
	}
	if matched == nil {
		return newUnknownBoundaryEventError(trigger.TargetElementId)
	}

	return b.consumeTrigger(trigger, func(t *model.EventTrigger) (model.Key, error) {
		childKey, err := b.store.Keys().Next()
		if err != nil {
			return 0, err
		}
		if err := b.deferActivation(ctx.ScopeKey, childKey, matched.ElementId, matched.ElementType, t.Variables); err != nil {
			return 0, err
		}
		if err := b.transitionState(ctx.ElementInstanceKey, model.StateCompleting); err != nil {
			return 0, err
		}
		metrics.EventBasedGatewaysTriggered.Inc()
		return childKey, nil
	})
}

// PublishTriggeredEventBasedGateway activates the outgoing path an
// event-based gateway resolved to, once its deferred activation is
// ready to publish.
func (b *Behavior) PublishTriggeredEventBasedGateway(ctx Context) (bool, error) {
	return b.publishFirstDeferred(ctx.ScopeKey, func(rec *model.DeferredRecord) bool {
		return rec.Intent == model.IntentElementActivating
	})
}
