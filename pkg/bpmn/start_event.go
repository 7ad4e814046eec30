package bpmn

import (
	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/partition"
)

// TriggerStartEvent consumes the oldest pending trigger at workflowKey
// targeting startElementId, creating a new workflow instance rooted at
// it. Unlike every other trigger operation, the scope being peeked
// (workflowKey, the deployed workflow's own key) isn't itself an
// element instance: there is nothing to transition, only a new instance
// and its start event to spawn.
func (b *Behavior) TriggerStartEvent(workflowKey model.Key, startElementId, startElementType string) (model.Key, error) {
	if _, err := b.store.Workflows().Get(workflowKey); err != nil {
		return 0, newNoWorkflowError(workflowKey)
	}

	trigger, err := b.peekTrigger(workflowKey, startElementId)
	if err != nil {
		return 0, err
	}
	if trigger == nil {
		return 0, newNoTriggeredEventError(workflowKey)
	}

	var instanceKey model.Key
	err = b.consumeTrigger(trigger, func(t *model.EventTrigger) (model.Key, error) {
		newInstanceKey, err := b.store.Keys().Next()
		if err != nil {
			return 0, err
		}
		instanceKey = newInstanceKey

		instance := &model.ElementInstance{
			Key:         instanceKey,
			ParentKey:   0,
			ElementId:   t.TargetElementId,
			ElementType: "PROCESS",
			State:       model.StateActivating,
		}
		cmd, err := partition.NewPutElementInstanceCommand(instance)
		if err != nil {
			return 0, err
		}
		if err := b.applier.Apply(cmd); err != nil {
			return 0, err
		}

		startKey, err := b.store.Keys().Next()
		if err != nil {
			return 0, err
		}
		if err := b.deferActivation(instanceKey, startKey, startElementId, startElementType, t.Variables); err != nil {
			return 0, err
		}
		return startKey, nil
	})
	if err != nil {
		return 0, err
	}

	return instanceKey, nil
}

// PublishTriggeredStartEvent activates startElementId once its deferred
// activation under instanceKey is ready to publish — called right after
// TriggerStartEvent returns, now that the instance root itself exists.
func (b *Behavior) PublishTriggeredStartEvent(instanceKey model.Key, startElementId string) (bool, error) {
	return b.publishFirstDeferred(instanceKey, func(rec *model.DeferredRecord) bool {
		return rec.ChildElementId == startElementId && rec.Intent == model.IntentElementActivating
	})
}
