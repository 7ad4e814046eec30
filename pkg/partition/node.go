package partition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/flowmesh/pkg/events"
	"github.com/cuemby/flowmesh/pkg/management"
	"github.com/cuemby/flowmesh/pkg/metrics"
	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/topology"
)

// defaultJoinTokenTTL matches the teacher's 24-hour cluster join token
// lifetime.
const defaultJoinTokenTTL = 24 * time.Hour

// Node aggregates every partition Manager a single process hosts locally
// — the system partition plus zero or more workflow partitions — and
// answers the management RPCs any of them can be addressed by. It
// implements management.Service and metrics.PartitionSource.
type Node struct {
	nodeId            string
	systemPartitionId model.PartitionId
	view              *topology.View
	eventBroker       *events.Broker

	mu           sync.RWMutex
	managers     map[model.PartitionId]*Manager
	partitionIds []model.PartitionId
}

// NewNode creates an empty Node. Managers are attached with Host as they
// are created.
func NewNode(nodeId string, systemPartitionId model.PartitionId, view *topology.View, eventBroker *events.Broker) *Node {
	return &Node{
		nodeId:            nodeId,
		systemPartitionId: systemPartitionId,
		view:              view,
		eventBroker:       eventBroker,
		managers:          make(map[model.PartitionId]*Manager),
	}
}

// Host attaches a locally running partition Manager to this Node.
func (n *Node) Host(m *Manager) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.managers[m.PartitionId()] = m
}

// Manager returns the local Manager for partitionId, if hosted here.
func (n *Node) Manager(partitionId model.PartitionId) (*Manager, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	m, ok := n.managers[partitionId]
	return m, ok
}

// SetPartitionIds installs the full ordered partition set this node's
// system partition leader answers FetchCreatedTopics with. Called once
// cluster topology is fixed at bootstrap time.
func (n *Node) SetPartitionIds(ids []model.PartitionId) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.partitionIds = append([]model.PartitionId(nil), ids...)
}

// PartitionStats implements metrics.PartitionSource.
func (n *Node) PartitionStats() []metrics.PartitionStats {
	n.mu.RLock()
	defer n.mu.RUnlock()

	stats := make([]metrics.PartitionStats, 0, len(n.managers))
	for _, m := range n.managers {
		stats = append(stats, m.Stats())
	}
	return stats
}

// FetchCreatedTopics answers only when this node hosts the system
// partition and currently leads it; every other caller must be routed
// there first.
func (n *Node) FetchCreatedTopics(ctx context.Context, req *management.FetchCreatedTopicsRequest) (*management.FetchCreatedTopicsResponse, error) {
	sys, ok := n.Manager(n.systemPartitionId)
	if !ok || !sys.IsLeader() {
		return nil, fmt.Errorf("not the system partition leader")
	}

	n.mu.RLock()
	ids := append([]model.PartitionId(nil), n.partitionIds...)
	n.mu.RUnlock()

	return &management.FetchCreatedTopicsResponse{PartitionIds: ids}, nil
}

// PushTopology records a remote partition's newly elected leader in this
// node's topology view.
func (n *Node) PushTopology(ctx context.Context, req *management.PushTopologyRequest) (*management.PushTopologyResponse, error) {
	n.view.Update(req.PartitionId, req.Leader)
	if n.eventBroker != nil {
		n.eventBroker.Publish(&events.Event{
			Type:    events.EventPartitionLeaderChanged,
			Message: fmt.Sprintf("partition %d leader changed to %s", req.PartitionId, req.Leader.NodeId),
			Metadata: map[string]string{
				"partition_id": fmt.Sprintf("%d", req.PartitionId),
				"node_id":      req.Leader.NodeId,
			},
		})
	}
	return &management.PushTopologyResponse{}, nil
}

// RequestJoinToken mints a join token from the system partition's token
// manager, the sole authority for cluster membership tokens.
func (n *Node) RequestJoinToken(ctx context.Context, req *management.RequestJoinTokenRequest) (*management.RequestJoinTokenResponse, error) {
	sys, ok := n.Manager(n.systemPartitionId)
	if !ok || !sys.IsLeader() {
		return nil, fmt.Errorf("not the system partition leader")
	}

	token, err := sys.TokenManager().GenerateToken(req.Role, defaultJoinTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate join token: %w", err)
	}
	return &management.RequestJoinTokenResponse{Token: token.Token}, nil
}

// JoinPartition adds the requesting node as a voter to one of this
// node's locally hosted, currently-led partitions.
func (n *Node) JoinPartition(ctx context.Context, req *management.JoinPartitionRequest) (*management.JoinPartitionResponse, error) {
	m, ok := n.Manager(req.PartitionId)
	if !ok {
		return nil, fmt.Errorf("partition %d not hosted on this node", req.PartitionId)
	}
	if !m.IsLeader() {
		return nil, fmt.Errorf("not the leader for partition %d, current leader: %s", req.PartitionId, m.LeaderAddr())
	}
	if _, err := m.TokenManager().ValidateToken(req.Token); err != nil {
		return nil, fmt.Errorf("join partition %d: %w", req.PartitionId, err)
	}
	if err := m.AddVoter(req.NodeId, req.RaftAddress); err != nil {
		return nil, err
	}
	return &management.JoinPartitionResponse{}, nil
}
