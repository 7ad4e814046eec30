// Package topology maintains the partition-to-leader mapping the router
// and transport layers consult to find where a subscription command
// should be sent. The View is guarded by a read-write mutex and is
// updated directly from each local partition's RaftWatcher goroutine and
// from management PushTopology handlers; updates are not queued onto a
// per-partition actor goroutine.
package topology

import (
	"sync"

	"github.com/cuemby/flowmesh/pkg/model"
)

// PartitionListener is notified when a partition's leader changes.
type PartitionListener interface {
	OnPartitionLeaderChange(partitionId model.PartitionId, leader model.NodeInfo)
}

// PartitionListenerFunc adapts a function to a PartitionListener.
type PartitionListenerFunc func(partitionId model.PartitionId, leader model.NodeInfo)

func (f PartitionListenerFunc) OnPartitionLeaderChange(partitionId model.PartitionId, leader model.NodeInfo) {
	f(partitionId, leader)
}

// View is a read-mostly snapshot of partition leadership, the
// PartitionLeaderTable of spec.md §3. It is safe for concurrent use;
// every method takes the mutex.
type View struct {
	mu                    sync.RWMutex
	leaders               map[model.PartitionId]model.NodeInfo
	partitionIds          []model.PartitionId
	systemPartitionLeader string
	listeners             []PartitionListener
}

// New returns an empty View.
func New() *View {
	return &View{
		leaders: make(map[model.PartitionId]model.NodeInfo),
	}
}

// AddPartitionListener registers a listener that is notified on every
// subsequent Update call. Matches the TopologyManager contract of
// spec.md §6.
func (v *View) AddPartitionListener(l PartitionListener) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, l)
}

// Update records a new leader for partitionId and fans out to listeners.
// Listeners run on the caller's goroutine after the lock is released.
func (v *View) Update(partitionId model.PartitionId, leader model.NodeInfo) {
	v.mu.Lock()
	v.leaders[partitionId] = leader
	listeners := append([]PartitionListener(nil), v.listeners...)
	v.mu.Unlock()

	for _, l := range listeners {
		l.OnPartitionLeaderChange(partitionId, leader)
	}
}

// SetPartitionIds installs the full ordered partition set, as resolved by
// fetchCreatedTopics. Idempotent.
func (v *View) SetPartitionIds(ids []model.PartitionId) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.partitionIds = append([]model.PartitionId(nil), ids...)
}

// PartitionIds returns the known partition set, or nil if it has not yet
// been resolved.
func (v *View) PartitionIds() []model.PartitionId {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]model.PartitionId(nil), v.partitionIds...)
}

// HasPartitionIds reports whether the initial topology fetch completed.
func (v *View) HasPartitionIds() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.partitionIds) > 0
}

// Leader returns the known leader for partitionId, or false if no leader
// has been observed yet (TopologyUnknown in spec.md §7).
func (v *View) Leader(partitionId model.PartitionId) (model.NodeInfo, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n, ok := v.leaders[partitionId]
	return n, ok
}

// SetSystemPartitionLeader records the management address of the
// system-partition leader, used to bootstrap fetchCreatedTopics.
func (v *View) SetSystemPartitionLeader(managementAddr string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.systemPartitionLeader = managementAddr
}

// SystemPartitionLeader returns the system-partition leader's management
// address, or false if unknown.
func (v *View) SystemPartitionLeader() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.systemPartitionLeader == "" {
		return "", false
	}
	return v.systemPartitionLeader, true
}
