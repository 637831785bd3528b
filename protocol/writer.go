package protocol

import (
	"encoding/json"

	"github.com/tidwall/sjson"
)

// Encode builds the exact block sent for an outbound frame: a document with
// the fields `op` and `d` and nothing else.
//
// data may be a json.RawMessage, which is embedded verbatim, or any value
// sjson knows how to set (nil encodes as null).
func Encode(op Opcode, data interface{}) ([]byte, error) {
	b, err := sjson.SetBytes([]byte("{}"), "op", int(op))
	if err != nil {
		return nil, err
	}

	switch d := data.(type) {
	case json.RawMessage:
		return sjson.SetRawBytes(b, "d", d)

	case nil:
		return sjson.SetRawBytes(b, "d", []byte("null"))

	default:
		return sjson.SetBytes(b, "d", d)
	}
}

// EncodeHeartbeat encodes a heartbeat carrying the last seen sequence, or null
// while no sequence has been seen yet.
func EncodeHeartbeat(sequence int64) ([]byte, error) {
	if sequence == 0 {
		return Encode(OpHeartbeat, nil)
	}

	return Encode(OpHeartbeat, sequence)
}
