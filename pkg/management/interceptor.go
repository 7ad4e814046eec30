package management

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ReadOnlyInterceptor rejects any method not recognized as read-only.
// Used on listeners that accept connections from untrusted operator
// tooling where only inspection, never mutation, should be possible.
func ReadOnlyInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !isReadOnlyMethod(info.FullMethod) {
			return nil, status.Errorf(codes.PermissionDenied, "write operations not allowed on this listener")
		}
		return handler(ctx, req)
	}
}

func isReadOnlyMethod(method string) bool {
	parts := strings.Split(method, "/")
	if len(parts) < 2 {
		return false
	}
	switch parts[len(parts)-1] {
	case "FetchCreatedTopics":
		return true
	default:
		return false
	}
}
