package management

import "encoding/json"

// jsonCodec lets the management gRPC service carry plain Go structs
// instead of generated protobuf messages: no .proto compiler runs in
// this build, so request/response types are ordinary structs and the
// server/client force this codec in place of grpc-go's default "proto"
// codec via grpc.ForceServerCodec / grpc.ForceCodec. This is a supported
// grpc-go extension point (google.golang.org/grpc/encoding), the same
// one codec-agnostic gRPC proxies rely on.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}
