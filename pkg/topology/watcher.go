package topology

import (
	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/hashicorp/raft"
)

// RaftWatcher drains a raft.Raft's leadership notifications and posts
// them onto a View, tagging them with the partition they belong to.
// Each flowmesh partition runs its own raft group (see pkg/partition),
// so one watcher exists per local partition; remote partitions' leaders
// reach this node's View through the management transport instead.
type RaftWatcher struct {
	partitionId model.PartitionId
	r           *raft.Raft
	self        model.NodeInfo
	view        *View
	stopCh      chan struct{}
}

// NewRaftWatcher creates a watcher for partitionId's raft group. self is
// this node's own address pair, published to the view when this node
// becomes leader.
func NewRaftWatcher(partitionId model.PartitionId, r *raft.Raft, self model.NodeInfo, view *View) *RaftWatcher {
	return &RaftWatcher{
		partitionId: partitionId,
		r:           r,
		self:        self,
		view:        view,
		stopCh:      make(chan struct{}),
	}
}

// Start begins draining leadership changes in a goroutine. Updates are
// posted to the View, which fans out to registered listeners — those
// listeners run on whatever goroutine Start uses, so a listener that
// must run on a partition's single-threaded actor is responsible for
// re-posting itself onto that actor's work queue.
func (w *RaftWatcher) Start() {
	go w.run()
}

// Stop terminates the watcher loop.
func (w *RaftWatcher) Stop() {
	close(w.stopCh)
}

func (w *RaftWatcher) run() {
	for {
		select {
		case isLeader, ok := <-w.r.LeaderCh():
			if !ok {
				return
			}
			if isLeader {
				w.view.Update(w.partitionId, w.self)
			}
		case <-w.stopCh:
			return
		}
	}
}
