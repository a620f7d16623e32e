package crossnode

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName 请求使用的 content-subtype，对应 application/grpc+json
const codecName = "json"

// jsonCodec 节点间消息直接用 JSON 编码，与客户端协议保持一致
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

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
