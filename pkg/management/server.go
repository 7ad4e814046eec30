package management

import (
	"net"

	"github.com/cuemby/flowmesh/pkg/log"
	"google.golang.org/grpc"
)

// Server hosts the management gRPC listener for one flowmesh node.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
}

// NewServer creates a management gRPC server bound to addr, with
// read-only enforcement applied via opts (pass ReadOnlyInterceptor() for
// a restricted listener, nothing for the primary one).
func NewServer(addr string, svc Service, interceptors ...grpc.UnaryServerInterceptor) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	opts := []grpc.ServerOption{grpc.ForceServerCodec(jsonCodec{})}
	if len(interceptors) > 0 {
		opts = append(opts, grpc.ChainUnaryInterceptor(interceptors...))
	}

	s := grpc.NewServer(opts...)
	RegisterService(s, svc)

	return &Server{grpcServer: s, listener: lis}, nil
}

// Serve blocks, accepting management RPCs until the listener is closed.
func (s *Server) Serve() error {
	log.Info("management server listening on " + s.listener.Addr().String())
	return s.grpcServer.Serve(s.listener)
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
