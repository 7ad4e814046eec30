package management

import "github.com/cuemby/flowmesh/pkg/model"

// FetchCreatedTopicsRequest carries no fields; it asks the system
// partition's leader for the full ordered partition set.
type FetchCreatedTopicsRequest struct{}

// FetchCreatedTopicsResponse answers FetchCreatedTopicsRequest.
type FetchCreatedTopicsResponse struct {
	PartitionIds []model.PartitionId
}

// PushTopologyRequest announces that a partition elected a new leader.
// The receiving node records it in its topology view. Client.PushTopology
// sends it; no component in this module sends it on election.
type PushTopologyRequest struct {
	PartitionId model.PartitionId
	Leader      model.NodeInfo
}

// PushTopologyResponse is an empty acknowledgement.
type PushTopologyResponse struct{}

// RequestJoinTokenRequest asks the system partition's leader to mint a
// join token for a new node of the given role.
type RequestJoinTokenRequest struct {
	Role string
}

// RequestJoinTokenResponse carries the minted token.
type RequestJoinTokenResponse struct {
	Token string
}

// JoinPartitionRequest asks a partition's current Raft leader to add the
// sender as a voter. Addressed directly at the partition leader (found
// via the topology view), not at the system partition.
type JoinPartitionRequest struct {
	PartitionId model.PartitionId
	NodeId      string
	RaftAddress string
	Token       string
}

// JoinPartitionResponse is an empty acknowledgement.
type JoinPartitionResponse struct{}
