package management

import (
	"context"

	"google.golang.org/grpc"
)

// Service is implemented by the node that answers management RPCs: the
// system-partition leader for FetchCreatedTopics and RequestJoinToken,
// any partition leader for PushTopology.
type Service interface {
	FetchCreatedTopics(ctx context.Context, req *FetchCreatedTopicsRequest) (*FetchCreatedTopicsResponse, error)
	PushTopology(ctx context.Context, req *PushTopologyRequest) (*PushTopologyResponse, error)
	RequestJoinToken(ctx context.Context, req *RequestJoinTokenRequest) (*RequestJoinTokenResponse, error)
	JoinPartition(ctx context.Context, req *JoinPartitionRequest) (*JoinPartitionResponse, error)
}

const (
	fetchCreatedTopicsMethod = "/flowmesh.Management/FetchCreatedTopics"
	pushTopologyMethod       = "/flowmesh.Management/PushTopology"
	requestJoinTokenMethod   = "/flowmesh.Management/RequestJoinToken"
	joinPartitionMethod      = "/flowmesh.Management/JoinPartition"
)

// serviceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would generate from a .proto file. There is no protoc in this build,
// so the method table is authored directly against grpc.ServiceDesc.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "flowmesh.Management",
	HandlerType: (*Service)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "FetchCreatedTopics",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(FetchCreatedTopicsRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(Service).FetchCreatedTopics(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fetchCreatedTopicsMethod}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(Service).FetchCreatedTopics(ctx, req.(*FetchCreatedTopicsRequest))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
		{
			MethodName: "PushTopology",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(PushTopologyRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(Service).PushTopology(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: pushTopologyMethod}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(Service).PushTopology(ctx, req.(*PushTopologyRequest))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
		{
			MethodName: "RequestJoinToken",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(RequestJoinTokenRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(Service).RequestJoinToken(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: requestJoinTokenMethod}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(Service).RequestJoinToken(ctx, req.(*RequestJoinTokenRequest))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
		{
			MethodName: "JoinPartition",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(JoinPartitionRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(Service).JoinPartition(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: joinPartitionMethod}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(Service).JoinPartition(ctx, req.(*JoinPartitionRequest))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flowmesh/management.proto",
}

// RegisterService attaches a Service implementation to a gRPC server.
func RegisterService(s *grpc.Server, svc Service) {
	s.RegisterService(&serviceDesc, svc)
}
