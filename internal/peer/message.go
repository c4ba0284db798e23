package peer

import (
	"encoding/json"

	pion "github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/BioHazard786/Pairline/internal/signaling"
)

// Inbound is one event received from the relay. The payload is kept generic
// until the handler knows which type it carries.
type Inbound struct {
	Type    signaling.EventType `json:"type" msgpack:"type"`
	Payload map[string]any      `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// Data channel message types.
const (
	ChannelHello = "hello"
	ChannelBye   = "bye"
)

// ChannelMessage is one message on the call's data channel.
type ChannelMessage struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// HelloPayload introduces each side once the data channel opens.
type HelloPayload struct {
	UserID string `msgpack:"userId"`
	Role   string `msgpack:"role"`
	SentAt int64  `msgpack:"sentAt"`
}

// ByePayload announces a hang-up before the peer connection closes.
type ByePayload struct {
	Reason string `msgpack:"reason,omitempty"`
}

// NewChannelMessage creates a ChannelMessage with the given type and payload
func NewChannelMessage(t string, payload any) (ChannelMessage, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return ChannelMessage{}, err
	}
	return ChannelMessage{Type: t, Payload: b}, nil
}

// EncodeChannelMessage builds and serializes a data channel message.
func EncodeChannelMessage(t string, payload any) ([]byte, error) {
	msg, err := NewChannelMessage(t, payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(msg)
}

// DecodePayload decodes the message payload into the provided struct
func (m ChannelMessage) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// convert re-decodes a generic value into v through its JSON form. pion's
// SDP and candidate types only define JSON encodings.
func convert(in, v any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// toWire turns a pion value into a plain map so both relay codecs carry it
// with its JSON field names.
func toWire(v any) (map[string]any, error) {
	var out map[string]any
	if err := convert(v, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseDescription(raw any, want pion.SDPType) (*pion.SessionDescription, error) {
	if raw == nil {
		return nil, ErrMalformedPayload
	}
	var desc pion.SessionDescription
	if err := convert(raw, &desc); err != nil {
		return nil, WrapError("parse session description", ErrMalformedPayload, err.Error())
	}
	if desc.Type != want {
		return nil, WrapError("parse session description", ErrUnexpectedSignal, desc.Type.String())
	}
	if desc.SDP == "" {
		return nil, WrapError("parse session description", ErrMalformedPayload, "empty sdp")
	}
	return &desc, nil
}

func parseCandidate(raw any) (*pion.ICECandidateInit, error) {
	if raw == nil {
		return nil, ErrMalformedPayload
	}
	var c pion.ICECandidateInit
	if err := convert(raw, &c); err != nil {
		return nil, WrapError("parse ICE candidate", ErrMalformedPayload, err.Error())
	}
	return &c, nil
}
