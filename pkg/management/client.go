package management

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a thin wrapper over a gRPC connection to a peer's management
// listener, hand-written in the shape protoc-gen-go-grpc would otherwise
// generate (Invoke against a fixed method name).
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a peer's management address. Connections are plain
// TCP without mTLS: this core treats mTLS as an external concern layered
// on top by the deployment, the same way spec.md §1 treats cluster
// membership as an external collaborator.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("dial management %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) FetchCreatedTopics(ctx context.Context, req *FetchCreatedTopicsRequest) (*FetchCreatedTopicsResponse, error) {
	out := new(FetchCreatedTopicsResponse)
	if err := c.conn.Invoke(ctx, fetchCreatedTopicsMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PushTopology(ctx context.Context, req *PushTopologyRequest) (*PushTopologyResponse, error) {
	out := new(PushTopologyResponse)
	if err := c.conn.Invoke(ctx, pushTopologyMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RequestJoinToken(ctx context.Context, req *RequestJoinTokenRequest) (*RequestJoinTokenResponse, error) {
	out := new(RequestJoinTokenResponse)
	if err := c.conn.Invoke(ctx, requestJoinTokenMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) JoinPartition(ctx context.Context, req *JoinPartitionRequest) (*JoinPartitionResponse, error) {
	out := new(JoinPartitionResponse)
	if err := c.conn.Invoke(ctx, joinPartitionMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}
