package metrics

import (
	"strconv"
	"time"

	"github.com/cuemby/flowmesh/pkg/model"
)

// PartitionStats is a snapshot of one partition's Raft state, as reported
// by the partition manager that owns it.
type PartitionStats struct {
	PartitionId  model.PartitionId
	IsLeader     bool
	Peers        int
	LastLogIndex uint64
	AppliedIndex uint64
}

// PartitionSource is implemented by the component that owns the set of
// partitions running on this node (pkg/partition's Manager). The
// collector depends only on this narrow interface so it can be tested
// and wired without importing the partition package directly.
type PartitionSource interface {
	PartitionStats() []PartitionStats
}

// Collector periodically samples Raft state across all locally hosted
// partitions and republishes it as Prometheus gauges.
type Collector struct {
	source PartitionSource
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector over source.
func NewCollector(source PartitionSource) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	for _, stats := range c.source.PartitionStats() {
		label := strconv.Itoa(int(stats.PartitionId))

		if stats.IsLeader {
			RaftLeader.WithLabelValues(label).Set(1)
		} else {
			RaftLeader.WithLabelValues(label).Set(0)
		}

		RaftPeers.WithLabelValues(label).Set(float64(stats.Peers))
		RaftLogIndex.WithLabelValues(label).Set(float64(stats.LastLogIndex))
		RaftAppliedIndex.WithLabelValues(label).Set(float64(stats.AppliedIndex))
	}
}
