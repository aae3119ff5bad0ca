package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec lets the Connect handlers exchange plain Go structs. Connect's
// built-in JSON codec only accepts protobuf messages.
type jsonCodec struct {
	name string
}

func (c jsonCodec) Name() string { return c.name }

func (c jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (c jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSONCodec registers the struct codec for both JSON content types. Use
// it on handlers and on clients.
func WithJSONCodec() connect.Option {
	return connect.WithOptions(
		connect.WithCodec(jsonCodec{name: "json"}),
		connect.WithCodec(jsonCodec{name: "json; charset=utf-8"}),
	)
}
