package bpmn

import (
	"sync"

	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/router"
)

// CatchEventDeclaration describes one catch event an element declares
// (message, timer, or signal — this core only routes message-correlated
// ones through the subscription protocol; timer/signal triggers reach
// EventTriggers through a different collaborator not respecified here).
// The two expression fields stand in for the variable-document
// evaluator spec.md explicitly excludes: callers supply closures that
// either extract a value from the instance or fail with the
// corresponding FailureKind.
type CatchEventDeclaration struct {
	ElementId                string
	MessageName              []byte
	MessageNameExpression    func(instance *model.ElementInstance) ([]byte, error)
	CorrelationKeyExpression func(instance *model.ElementInstance) ([]byte, error)
}

// BoundaryEventDeclaration describes one boundary event, event-based
// gateway outgoing path, or event sub-process start event an element
// declares — whatever this trigger's target id might match against.
type BoundaryEventDeclaration struct {
	ElementId    string
	ElementType  string
	Interrupting bool
}

type activeSubscription struct {
	subscriptionPartitionId  model.PartitionId
	hasSubscriptionPartition bool
	workflowInstanceKey      model.Key
	activityInstanceKey      model.Key
	messageName              []byte
}

// CatchEventBehavior installs and removes the message subscriptions a
// catch event declares, delegating actual delivery to the subscription
// command router. It tracks what it opened per scope so
// unsubscribeFromEvents can close them idempotently.
type CatchEventBehavior struct {
	router *router.Router

	mu     sync.Mutex
	active map[model.Key][]activeSubscription
}

// NewCatchEventBehavior creates a CatchEventBehavior over r.
func NewCatchEventBehavior(r *router.Router) *CatchEventBehavior {
	return &CatchEventBehavior{
		router: r,
		active: make(map[model.Key][]activeSubscription),
	}
}

// Subscribe installs decl's subscription for instance, scoped to
// scopeKey for later unsubscription. Recoverable evaluation failures
// are returned as a Failure tagged with scopeKey, per spec §4.2.
func (c *CatchEventBehavior) Subscribe(scopeKey model.Key, instance *model.ElementInstance, decl CatchEventDeclaration) Result {
	messageName := decl.MessageName
	if decl.MessageNameExpression != nil {
		name, err := decl.MessageNameExpression(instance)
		if err != nil {
			return Fail(KindMessageNameError, err.Error(), scopeKey)
		}
		messageName = name
	}

	correlationKey, err := decl.CorrelationKeyExpression(instance)
	if err != nil {
		return Fail(KindCorrelationKeyError, err.Error(), scopeKey)
	}

	c.router.OpenMessageSubscription(instance.Key, instance.Key, messageName, correlationKey)
	partitionId, ok := c.router.SubscriptionPartitionId(correlationKey)

	c.mu.Lock()
	c.active[scopeKey] = append(c.active[scopeKey], activeSubscription{
		subscriptionPartitionId:  partitionId,
		hasSubscriptionPartition: ok,
		workflowInstanceKey:      instance.Key,
		activityInstanceKey:      instance.Key,
		messageName:              messageName,
	})
	c.mu.Unlock()

	return Ok()
}

// Unsubscribe closes every subscription installed under scopeKey.
// Idempotent: calling it with nothing active is a no-op.
func (c *CatchEventBehavior) Unsubscribe(scopeKey model.Key) {
	c.mu.Lock()
	subs := c.active[scopeKey]
	delete(c.active, scopeKey)
	c.mu.Unlock()

	for _, sub := range subs {
		if !sub.hasSubscriptionPartition {
			continue
		}
		c.router.CloseMessageSubscription(sub.subscriptionPartitionId, sub.workflowInstanceKey, sub.activityInstanceKey, sub.messageName)
	}
}
