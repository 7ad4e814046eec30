package topology

import (
	"testing"

	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestViewLeaderUnknownUntilUpdate(t *testing.T) {
	v := New()

	_, ok := v.Leader(1)
	assert.False(t, ok)

	node := model.NodeInfo{NodeId: "node-1", SubscriptionAddress: "127.0.0.1:9000"}
	v.Update(1, node)

	got, ok := v.Leader(1)
	assert.True(t, ok)
	assert.Equal(t, node, got)
}

func TestViewUpdateNotifiesListeners(t *testing.T) {
	v := New()

	var notified []model.PartitionId
	v.AddPartitionListener(PartitionListenerFunc(func(partitionId model.PartitionId, leader model.NodeInfo) {
		notified = append(notified, partitionId)
	}))

	v.Update(3, model.NodeInfo{NodeId: "node-2"})
	v.Update(5, model.NodeInfo{NodeId: "node-3"})

	assert.Equal(t, []model.PartitionId{3, 5}, notified)
}

func TestViewPartitionIdsRoundTrip(t *testing.T) {
	v := New()
	assert.False(t, v.HasPartitionIds())
	assert.Nil(t, v.PartitionIds())

	v.SetPartitionIds([]model.PartitionId{1, 2, 3})

	assert.True(t, v.HasPartitionIds())
	assert.Equal(t, []model.PartitionId{1, 2, 3}, v.PartitionIds())
}

func TestViewSystemPartitionLeaderUnknownUntilSet(t *testing.T) {
	v := New()

	_, ok := v.SystemPartitionLeader()
	assert.False(t, ok)

	v.SetSystemPartitionLeader("127.0.0.1:8100")

	addr, ok := v.SystemPartitionLeader()
	assert.True(t, ok)
	assert.Equal(t, "127.0.0.1:8100", addr)
}
