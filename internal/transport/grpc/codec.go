package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

// jsonCodec carries the service messages as JSON. Server and client both force it, so no
// generated protobuf code is needed.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

// Codec is the wire codec servers must install with grpc.ForceServerCodec.
func Codec() encoding.Codec {
	return jsonCodec{}
}
