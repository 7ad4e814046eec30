package partition

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/store"
	"github.com/hashicorp/raft"
)

// Command represents a single state mutation to be replicated through
// Raft before it takes effect. Op names one of the FSM's known mutations;
// Data carries its JSON-encoded payload.
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

const (
	opPutWorkflow          = "put_workflow"
	opPutElementInstance   = "put_element_instance"
	opDeleteElementInst    = "delete_element_instance"
	opPutEventTrigger      = "put_event_trigger"
	opDeleteEventTrigger   = "delete_event_trigger"
	opPutDeferredRecord    = "put_deferred_record"
	opDeleteDeferredRecord = "delete_deferred_record"
)

// FSM implements raft.FSM over a partition's bbolt-backed store. Every
// state change a partition makes — creating a workflow, advancing an
// element instance, writing or consuming an event trigger, deferring or
// replaying a record — goes through Apply so that all replicas converge
// on the same sequence.
type FSM struct {
	mu    sync.RWMutex
	store *store.Store
}

// NewFSM creates an FSM backed by s.
func NewFSM(s *store.Store) *FSM {
	return &FSM{store: s}
}

// Apply applies one committed Raft log entry.
func (f *FSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("unmarshal command: %w", err)
	}
	return f.apply(cmd)
}

// ApplyCommand applies cmd to s directly, bypassing Raft. Used by
// package tests that want the FSM's mutation semantics without standing
// up a cluster.
func ApplyCommand(s *store.Store, cmd Command) error {
	f := &FSM{store: s}
	result := f.apply(cmd)
	if result == nil {
		return nil
	}
	if err, ok := result.(error); ok {
		return err
	}
	return nil
}

func (f *FSM) apply(cmd Command) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case opPutWorkflow:
		var wf model.Workflow
		if err := json.Unmarshal(cmd.Data, &wf); err != nil {
			return err
		}
		return f.store.Workflows().Put(&wf)

	case opPutElementInstance:
		var ei model.ElementInstance
		if err := json.Unmarshal(cmd.Data, &ei); err != nil {
			return err
		}
		return f.store.ElementInstances().Put(&ei)

	case opDeleteElementInst:
		var key model.Key
		if err := json.Unmarshal(cmd.Data, &key); err != nil {
			return err
		}
		return f.store.ElementInstances().Delete(key)

	case opPutEventTrigger:
		var trigger model.EventTrigger
		if err := json.Unmarshal(cmd.Data, &trigger); err != nil {
			return err
		}
		return f.store.EventTriggers().Put(&trigger)

	case opDeleteEventTrigger:
		var ref eventTriggerRef
		if err := json.Unmarshal(cmd.Data, &ref); err != nil {
			return err
		}
		return f.store.EventTriggers().Delete(ref.ScopeKey, ref.EventKey)

	case opPutDeferredRecord:
		var rec model.DeferredRecord
		if err := json.Unmarshal(cmd.Data, &rec); err != nil {
			return err
		}
		return f.store.DeferredRecords().Put(&rec)

	case opDeleteDeferredRecord:
		var ref deferredRecordRef
		if err := json.Unmarshal(cmd.Data, &ref); err != nil {
			return err
		}
		return f.store.DeferredRecords().Delete(ref.OwnerScopeKey, ref.ChildInstanceKey)

	default:
		return fmt.Errorf("unknown command: %s", cmd.Op)
	}
}

type eventTriggerRef struct {
	ScopeKey model.Key
	EventKey model.Key
}

type deferredRecordRef struct {
	OwnerScopeKey    model.Key
	ChildInstanceKey model.Key
}

// The New*Command constructors build the Command values callers outside
// this package (pkg/bpmn's StreamWriter side) submit through a
// Manager's Apply, without needing to know the FSM's internal op names.

func NewPutWorkflowCommand(wf *model.Workflow) (Command, error) {
	data, err := json.Marshal(wf)
	if err != nil {
		return Command{}, fmt.Errorf("marshal workflow: %w", err)
	}
	return Command{Op: opPutWorkflow, Data: data}, nil
}

func NewPutElementInstanceCommand(ei *model.ElementInstance) (Command, error) {
	data, err := json.Marshal(ei)
	if err != nil {
		return Command{}, fmt.Errorf("marshal element instance: %w", err)
	}
	return Command{Op: opPutElementInstance, Data: data}, nil
}

func NewDeleteElementInstanceCommand(key model.Key) (Command, error) {
	data, err := json.Marshal(key)
	if err != nil {
		return Command{}, fmt.Errorf("marshal element instance key: %w", err)
	}
	return Command{Op: opDeleteElementInst, Data: data}, nil
}

func NewPutEventTriggerCommand(t *model.EventTrigger) (Command, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return Command{}, fmt.Errorf("marshal event trigger: %w", err)
	}
	return Command{Op: opPutEventTrigger, Data: data}, nil
}

func NewDeleteEventTriggerCommand(scopeKey, eventKey model.Key) (Command, error) {
	data, err := json.Marshal(eventTriggerRef{ScopeKey: scopeKey, EventKey: eventKey})
	if err != nil {
		return Command{}, fmt.Errorf("marshal event trigger ref: %w", err)
	}
	return Command{Op: opDeleteEventTrigger, Data: data}, nil
}

func NewPutDeferredRecordCommand(r *model.DeferredRecord) (Command, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return Command{}, fmt.Errorf("marshal deferred record: %w", err)
	}
	return Command{Op: opPutDeferredRecord, Data: data}, nil
}

func NewDeleteDeferredRecordCommand(ownerScopeKey, childInstanceKey model.Key) (Command, error) {
	data, err := json.Marshal(deferredRecordRef{OwnerScopeKey: ownerScopeKey, ChildInstanceKey: childInstanceKey})
	if err != nil {
		return Command{}, fmt.Errorf("marshal deferred record ref: %w", err)
	}
	return Command{Op: opDeleteDeferredRecord, Data: data}, nil
}

// Snapshot captures the full partition state for Raft log compaction.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	triggers, err := f.store.EventTriggers().All()
	if err != nil {
		return nil, fmt.Errorf("list event triggers: %w", err)
	}
	deferred, err := f.store.DeferredRecords().All()
	if err != nil {
		return nil, fmt.Errorf("list deferred records: %w", err)
	}

	return &Snapshot{
		EventTriggers:   triggers,
		DeferredRecords: deferred,
	}, nil
}

// Restore replaces the FSM's state with the contents of a snapshot.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snap Snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, trigger := range snap.EventTriggers {
		if err := f.store.EventTriggers().Put(trigger); err != nil {
			return fmt.Errorf("restore event trigger: %w", err)
		}
	}
	for _, rec := range snap.DeferredRecords {
		if err := f.store.DeferredRecords().Put(rec); err != nil {
			return fmt.Errorf("restore deferred record: %w", err)
		}
	}
	return nil
}

// Snapshot is a point-in-time copy of a partition's replicated state.
//
// TODO: workflows and element instances are large relative to pending
// triggers/deferrals and are omitted from the snapshot body; a restore
// currently relies on replaying the full Raft log for those buckets.
type Snapshot struct {
	EventTriggers   []*model.EventTrigger
	DeferredRecords []*model.DeferredRecord
}

// Persist writes the snapshot to sink.
func (s *Snapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()
	if err != nil {
		sink.Cancel()
	}
	return err
}

// Release is a no-op; the snapshot holds no external resources.
func (s *Snapshot) Release() {}
