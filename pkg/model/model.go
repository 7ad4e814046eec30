// Package model defines the domain types shared across the subscription
// router and the BPMN event-subscription behavior: partitions, keys,
// workflows, element instances, event triggers, deferred records and the
// five subscription wire commands.
package model

// PartitionId identifies one shard of the replicated event log.
type PartitionId int32

// Key is a 64-bit monotonic identifier minted by a KeyGenerator, unique
// within a partition.
type Key uint64

// ElementState is the lifecycle state of an ElementInstance.
type ElementState string

const (
	StateActivating ElementState = "ACTIVATING"
	StateActivated  ElementState = "ACTIVATED"
	StateCompleting ElementState = "COMPLETING"
	StateCompleted  ElementState = "COMPLETED"
	StateTerminating ElementState = "TERMINATING"
	StateTerminated  ElementState = "TERMINATED"
)

// Intent is the record intent carried by a StreamWriter append.
type Intent string

const (
	IntentElementActivating   Intent = "ELEMENT_ACTIVATING"
	IntentElementActivated    Intent = "ELEMENT_ACTIVATED"
	IntentElementCompleting   Intent = "ELEMENT_COMPLETING"
	IntentElementCompleted    Intent = "ELEMENT_COMPLETED"
	IntentElementTerminating  Intent = "ELEMENT_TERMINATING"
	IntentElementTerminated   Intent = "ELEMENT_TERMINATED"
)

// DeferredPurpose tags why a record was staged rather than published.
type DeferredPurpose string

const (
	PurposeDeferredActivation DeferredPurpose = "DEFERRED_ACTIVATION"
)

// Workflow is an immutable, deployed BPMN process definition.
type Workflow struct {
	Key           Key
	BpmnProcessId string
	Version       int32
	RootElementId string
	ElementType   string
}

// ElementInstance is a live execution node inside a workflow instance.
type ElementInstance struct {
	Key                 Key
	ParentKey           Key
	ElementId           string
	ElementType         string
	State               ElementState
	ActiveTokenCount    int32
	Interrupted         bool
	InterruptingEventKey Key
}

// IsInterrupted reports whether the scope has been claimed by an
// interrupting event. A scope may only ever be interrupted by one event.
func (e *ElementInstance) IsInterrupted() bool {
	return e.InterruptingEventKey > 0
}

// EventTrigger is a pending event queued for delivery into a scope.
type EventTrigger struct {
	ScopeKey       Key
	EventKey       Key
	TargetElementId string
	Variables      []byte
}

// DeferredRecord is a record staged under a scope, published only once
// that scope reaches the state the staging operation was waiting for.
type DeferredRecord struct {
	OwnerScopeKey     Key
	ChildInstanceKey  Key
	ChildElementId    string
	ChildElementType  string
	Intent            Intent
	Purpose           DeferredPurpose
	Payload           []byte
}

// CommandType names one of the five subscription wire records.
type CommandType string

const (
	CommandOpenMessageSubscription              CommandType = "OPEN_MESSAGE_SUBSCRIPTION"
	CommandOpenedMessageSubscription            CommandType = "OPENED_MESSAGE_SUBSCRIPTION"
	CommandCorrelateWorkflowInstanceSubscription CommandType = "CORRELATE_WORKFLOW_INSTANCE_SUBSCRIPTION"
	CommandCloseMessageSubscription             CommandType = "CLOSE_MESSAGE_SUBSCRIPTION"
	CommandRejectCorrelateMessageSubscription   CommandType = "REJECT_CORRELATE_MESSAGE_SUBSCRIPTION"
)

// SubscriptionCommand is one of the five wire records the router sends
// between partitions.
type SubscriptionCommand struct {
	Type                        CommandType
	SubscriptionPartitionId     PartitionId
	WorkflowInstancePartitionId PartitionId
	WorkflowInstanceKey         Key
	ActivityInstanceKey         Key
	MessageName                 []byte
	CorrelationKey              []byte
	Payload                     []byte
}

// NodeInfo is the address set a topology listener distributes for a
// partition's current leader.
type NodeInfo struct {
	NodeId               string
	SubscriptionAddress  string
	ManagementAddress    string
}

