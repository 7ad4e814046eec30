package partition

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cuemby/flowmesh/pkg/events"
	"github.com/cuemby/flowmesh/pkg/log"
	"github.com/cuemby/flowmesh/pkg/management"
	"github.com/cuemby/flowmesh/pkg/metrics"
	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/store"
	"github.com/cuemby/flowmesh/pkg/topology"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Manager owns one partition's Raft group, its bbolt store and its join
// tokens. A node runs one Manager per partition it hosts locally; a node
// hosting the system partition and several workflow partitions runs
// several Managers side by side, aggregated by Node.
type Manager struct {
	partitionId model.PartitionId
	nodeId      string
	raftAddr    string
	dataDir     string

	raft         *raft.Raft
	fsm          *FSM
	store        *store.Store
	tokenManager *TokenManager
	view         *topology.View
	watcher      *topology.RaftWatcher
	eventBroker  *events.Broker
}

// Config configures a single partition Manager.
type Config struct {
	PartitionId model.PartitionId
	NodeId      string
	RaftAddr    string
	DataDir     string
	View        *topology.View
	EventBroker *events.Broker
}

// NewManager creates a Manager for one partition. It does not start Raft;
// call Bootstrap or Join next.
func NewManager(cfg Config) (*Manager, error) {
	partitionDir := filepath.Join(cfg.DataDir, fmt.Sprintf("partition-%d", cfg.PartitionId))
	if err := os.MkdirAll(partitionDir, 0755); err != nil {
		return nil, fmt.Errorf("create partition data dir: %w", err)
	}

	s, err := store.Open(partitionDir, int32(cfg.PartitionId))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Manager{
		partitionId:  cfg.PartitionId,
		nodeId:       cfg.NodeId,
		raftAddr:     cfg.RaftAddr,
		dataDir:      partitionDir,
		fsm:          NewFSM(s),
		store:        s,
		tokenManager: NewTokenManager(),
		view:         cfg.View,
		eventBroker:  cfg.EventBroker,
	}, nil
}

// raftTimeouts matches the aggressive tuning used across this cluster's
// raft groups: defaults are sized for WAN deployments, this runs on a
// single LAN/edge network where failure detection can be much faster.
func raftTimeouts(config *raft.Config) {
	config.HeartbeatTimeout = 500 * time.Millisecond
	config.ElectionTimeout = 500 * time.Millisecond
	config.CommitTimeout = 50 * time.Millisecond
	config.LeaderLeaseTimeout = 250 * time.Millisecond
}

func (m *Manager) newRaft() (*raft.Raft, error) {
	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(m.nodeId)
	raftTimeouts(config)

	addr, err := net.ResolveTCPAddr("tcp", m.raftAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve raft address: %w", err)
	}

	transport, err := raft.NewTCPTransport(m.raftAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create raft transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(m.dataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(m.dataDir, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("create raft log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(m.dataDir, "raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("create raft stable store: %w", err)
	}

	r, err := raft.NewRaft(config, m.fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("create raft: %w", err)
	}
	return r, nil
}

// Bootstrap initializes a new single-node Raft group for this partition,
// as the very first node of a fresh cluster.
func (m *Manager) Bootstrap(self model.NodeInfo) error {
	r, err := m.newRaft()
	if err != nil {
		return err
	}
	m.raft = r

	configuration := raft.Configuration{
		Servers: []raft.Server{
			{ID: raft.ServerID(m.nodeId), Address: raft.ServerAddress(m.raftAddr)},
		},
	}
	if err := m.raft.BootstrapCluster(configuration).Error(); err != nil {
		return fmt.Errorf("bootstrap raft cluster: %w", err)
	}

	m.startWatcher(self)
	return nil
}

// Join starts this partition's Raft group as a fresh, unconfigured node
// and asks leaderAddr's management listener — the partition's current
// Raft leader, not necessarily the system partition — to add it as a
// voter.
func (m *Manager) Join(leaderAddr, token string, self model.NodeInfo) error {
	r, err := m.newRaft()
	if err != nil {
		return err
	}
	m.raft = r

	c, err := management.Dial(leaderAddr)
	if err != nil {
		return fmt.Errorf("dial partition leader: %w", err)
	}
	defer c.Close()

	req := &management.JoinPartitionRequest{
		PartitionId: m.partitionId,
		NodeId:      m.nodeId,
		RaftAddress: m.raftAddr,
		Token:       token,
	}
	if _, err := c.JoinPartition(context.Background(), req); err != nil {
		return fmt.Errorf("join partition %d via %s: %w", m.partitionId, leaderAddr, err)
	}

	m.startWatcher(self)
	return nil
}

func (m *Manager) startWatcher(self model.NodeInfo) {
	if m.view == nil {
		return
	}
	m.watcher = topology.NewRaftWatcher(m.partitionId, m.raft, self, m.view)
	m.watcher.Start()
}

// AddVoter adds nodeId at address to this partition's Raft configuration.
// Only the current leader can do this; callers reach it indirectly
// through the JoinPartition RPC handler.
func (m *Manager) AddVoter(nodeId, address string) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}
	if !m.IsLeader() {
		return fmt.Errorf("not the leader for partition %d, current leader: %s", m.partitionId, m.LeaderAddr())
	}
	future := m.raft.AddVoter(raft.ServerID(nodeId), raft.ServerAddress(address), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("add voter %s: %w", nodeId, err)
	}
	return nil
}

// RemoveServer removes nodeId from this partition's Raft configuration.
func (m *Manager) RemoveServer(nodeId string) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}
	if !m.IsLeader() {
		return fmt.Errorf("not the leader for partition %d", m.partitionId)
	}
	future := m.raft.RemoveServer(raft.ServerID(nodeId), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("remove server %s: %w", nodeId, err)
	}
	return nil
}

// IsLeader reports whether this node is the current Raft leader for its
// partition.
func (m *Manager) IsLeader() bool {
	return m.raft != nil && m.raft.State() == raft.Leader
}

// LeaderAddr returns the current Raft leader's transport address, or ""
// if unknown.
func (m *Manager) LeaderAddr() string {
	if m.raft == nil {
		return ""
	}
	return string(m.raft.Leader())
}

// Apply replicates cmd through this partition's Raft group and blocks
// until it is committed and applied to the FSM.
func (m *Manager) Apply(cmd Command) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RaftCommitDuration, strconv.Itoa(int(m.partitionId)))

	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	future := m.raft.Apply(data, 5*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("apply command: %w", err)
	}
	if resp := future.Response(); resp != nil {
		if err, ok := resp.(error); ok && err != nil {
			return err
		}
	}
	return nil
}

// Store exposes the partition's read path for local queries.
func (m *Manager) Store() *store.Store {
	return m.store
}

// TokenManager exposes this partition's join-token authority. Only
// meaningful while this node is leader: see TokenManager's doc comment.
func (m *Manager) TokenManager() *TokenManager {
	return m.tokenManager
}

// PartitionId returns the partition this Manager owns.
func (m *Manager) PartitionId() model.PartitionId {
	return m.partitionId
}

// Stats reports this partition's current Raft state for the metrics
// collector.
func (m *Manager) Stats() metrics.PartitionStats {
	if m.raft == nil {
		return metrics.PartitionStats{PartitionId: m.partitionId}
	}

	peers := 0
	if cfgFuture := m.raft.GetConfiguration(); cfgFuture.Error() == nil {
		peers = len(cfgFuture.Configuration().Servers)
	}

	return metrics.PartitionStats{
		PartitionId:  m.partitionId,
		IsLeader:     m.IsLeader(),
		Peers:        peers,
		LastLogIndex: m.raft.LastIndex(),
		AppliedIndex: m.raft.AppliedIndex(),
	}
}

// Shutdown stops this partition's Raft group, watcher and store.
func (m *Manager) Shutdown() error {
	logger := log.WithPartition(int32(m.partitionId))

	if m.watcher != nil {
		m.watcher.Stop()
	}
	if m.raft != nil {
		if err := m.raft.Shutdown().Error(); err != nil {
			logger.Warn().Err(err).Msg("raft shutdown returned an error")
		}
	}
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	return nil
}
