package management

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService is an in-memory Service implementation used to exercise the
// gRPC wire path end to end without a real partition or token manager.
type fakeService struct {
	partitionIds []model.PartitionId
	token        string
	joinErr      error
}

func (f *fakeService) FetchCreatedTopics(ctx context.Context, req *FetchCreatedTopicsRequest) (*FetchCreatedTopicsResponse, error) {
	return &FetchCreatedTopicsResponse{PartitionIds: f.partitionIds}, nil
}

func (f *fakeService) PushTopology(ctx context.Context, req *PushTopologyRequest) (*PushTopologyResponse, error) {
	return &PushTopologyResponse{}, nil
}

func (f *fakeService) RequestJoinToken(ctx context.Context, req *RequestJoinTokenRequest) (*RequestJoinTokenResponse, error) {
	return &RequestJoinTokenResponse{Token: f.token}, nil
}

func (f *fakeService) JoinPartition(ctx context.Context, req *JoinPartitionRequest) (*JoinPartitionResponse, error) {
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	return &JoinPartitionResponse{}, nil
}

func startTestServer(t *testing.T, svc Service) string {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0", svc)
	require.NoError(t, err)
	go srv.Serve()
	t.Cleanup(srv.Stop)
	return srv.Addr()
}

func TestClientFetchCreatedTopics(t *testing.T) {
	svc := &fakeService{partitionIds: []model.PartitionId{1, 2, 3}}
	addr := startTestServer(t, svc)

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.FetchCreatedTopics(ctx, &FetchCreatedTopicsRequest{})
	require.NoError(t, err)
	assert.Equal(t, []model.PartitionId{1, 2, 3}, resp.PartitionIds)
}

func TestClientPushTopology(t *testing.T) {
	svc := &fakeService{}
	addr := startTestServer(t, svc)

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = client.PushTopology(ctx, &PushTopologyRequest{
		PartitionId: 2,
		Leader:      model.NodeInfo{NodeId: "node-1", SubscriptionAddress: "127.0.0.1:9001"},
	})
	require.NoError(t, err)
}

func TestClientRequestJoinToken(t *testing.T) {
	svc := &fakeService{token: "deadbeef"}
	addr := startTestServer(t, svc)

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.RequestJoinToken(ctx, &RequestJoinTokenRequest{Role: "partition"})
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", resp.Token)
}

func TestClientJoinPartitionPropagatesServiceError(t *testing.T) {
	svc := &fakeService{joinErr: errors.New("invalid token")}
	addr := startTestServer(t, svc)

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = client.JoinPartition(ctx, &JoinPartitionRequest{
		PartitionId: 1,
		NodeId:      "node-2",
		RaftAddress: "127.0.0.1:9100",
		Token:       "bad-token",
	})
	assert.Error(t, err)
}
