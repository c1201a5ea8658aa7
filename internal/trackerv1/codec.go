package trackerv1

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec replaces connect's protojson codec under the same name, so the
// wire content type stays application/json.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) { return json.Marshal(msg) }

func (jsonCodec) Unmarshal(data []byte, msg any) error { return json.Unmarshal(data, msg) }

// WithJSONCodec must be passed to every handler and client of this API.
func WithJSONCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
