package signaling

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// WebSocket subprotocols a client may offer to pick its wire format.
const (
	SubprotocolJSON    = "pairline.json"
	SubprotocolMsgpack = "pairline.msgpack"
)

// Subprotocols lists the formats the server accepts, in preference order.
var Subprotocols = []string{SubprotocolMsgpack, SubprotocolJSON}

// Codec encodes and decodes envelopes for one connection.
type Codec interface {
	Name() string
	// FrameType is the websocket message type the codec writes.
	FrameType() int
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return SubprotocolJSON }
func (jsonCodec) FrameType() int                     { return websocket.TextMessage }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                       { return SubprotocolMsgpack }
func (msgpackCodec) FrameType() int                     { return websocket.BinaryMessage }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecFor returns the codec for a negotiated subprotocol. Anything unknown,
// including no subprotocol at all, falls back to JSON.
func CodecFor(subprotocol string) Codec {
	if subprotocol == SubprotocolMsgpack {
		return Msgpack
	}
	return JSON
}
