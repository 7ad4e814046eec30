package router

import (
	"testing"
	"time"

	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/partitionkey"
	"github.com/cuemby/flowmesh/pkg/topology"
	"github.com/cuemby/flowmesh/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records every SendMessage call instead of touching the
// network, so tests can assert on what the router attempted to send.
type fakeTransport struct {
	sentTo []transport.RemoteAddress
	sentCmds []*model.SubscriptionCommand
}

func (f *fakeTransport) SendMessage(remote transport.RemoteAddress, cmd *model.SubscriptionCommand) bool {
	f.sentTo = append(f.sentTo, remote)
	f.sentCmds = append(f.sentCmds, cmd)
	return true
}

func (f *fakeTransport) SendRequestWithRetry(resolver transport.Resolver, acceptor transport.Acceptor, request interface{}, deadline time.Duration) (interface{}, error) {
	return transport.SendRequestWithRetry(resolver, acceptor, deadline)
}

func (f *fakeTransport) RegisterRemoteAddress(addr string) transport.RemoteAddress {
	return transport.RemoteAddress{}
}

func TestCorrelationRoutingIsDeterministicAcrossRouters(t *testing.T) {
	partitionIds := []model.PartitionId{1, 3, 5}
	correlationKey := []byte("order-42")

	hasher := partitionkey.New()
	want := hasher.Partition(correlationKey, partitionIds)

	for i := 0; i < 2; i++ {
		view := topology.New()
		view.SetPartitionIds(partitionIds)
		view.Update(want, model.NodeInfo{NodeId: "n1", SubscriptionAddress: "127.0.0.1:9000"})

		ft := &fakeTransport{}
		r := New(model.PartitionId(1), view, ft)

		sent := r.OpenMessageSubscription(model.Key(10), model.Key(20), []byte("msg"), correlationKey)
		require.True(t, sent)
		require.Len(t, ft.sentCmds, 1)
		assert.Equal(t, want, ft.sentCmds[0].SubscriptionPartitionId)
	}
}

func TestOpenMessageSubscriptionRetriesWhenLeaderUnknown(t *testing.T) {
	partitionIds := []model.PartitionId{1, 3, 5}
	view := topology.New()
	view.SetPartitionIds(partitionIds)
	// No leader installed for any partition yet.

	ft := &fakeTransport{}
	r := New(model.PartitionId(1), view, ft)

	sent := r.OpenMessageSubscription(model.Key(10), model.Key(20), []byte("msg"), []byte("order-42"))
	assert.True(t, sent, "send must report true so the caller advances rather than stalling")
	assert.Empty(t, ft.sentCmds, "nothing should actually be transmitted while the leader is unknown")

	hasher := partitionkey.New()
	target := hasher.Partition([]byte("order-42"), partitionIds)
	view.Update(target, model.NodeInfo{NodeId: "n1", SubscriptionAddress: "127.0.0.1:9000"})

	sent = r.OpenMessageSubscription(model.Key(10), model.Key(20), []byte("msg"), []byte("order-42"))
	assert.True(t, sent)
	assert.Len(t, ft.sentCmds, 1, "exactly one message should be sent now that the leader is known")
}

func TestHasPartitionIds(t *testing.T) {
	view := topology.New()
	ft := &fakeTransport{}
	r := New(model.PartitionId(1), view, ft)

	assert.False(t, r.HasPartitionIds())
	view.SetPartitionIds([]model.PartitionId{1})
	assert.True(t, r.HasPartitionIds())
}
