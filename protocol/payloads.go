package protocol

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/sjson"
)

var ErrEmptySessionID = errors.New("Resume payload requires a session id")

// Properties describe the connecting client in an Identify payload.
type Properties struct {
	OS      string
	Browser string
	Device  string
}

// Shard selects the shard a session runs on. A zero Count means the client is
// not sharded and the field is left out of Identify.
type Shard struct {
	ID    int
	Count int
}

// Identify is the fresh-session handshake.
type Identify struct {
	Token      string
	Intents    Intent
	Properties Properties
	Compress   bool
	Shard      Shard
}

// Resume reattaches to an existing session.
type Resume struct {
	Token     string
	SessionID string
	Sequence  int64
}

// Marshal encodes the Identify data document:
//   {token, intents, properties:{os, browser, device}, compress[, shard]}
func (i *Identify) Marshal() ([]byte, error) {
	type field struct {
		path  string
		value interface{}
	}

	fields := []field{
		{"token", i.Token},
		{"intents", int(i.Intents)},
		{"properties.os", i.Properties.OS},
		{"properties.browser", i.Properties.Browser},
		{"properties.device", i.Properties.Device},
		{"compress", i.Compress},
	}

	if i.Shard.Count > 0 {
		fields = append(fields, field{"shard", []int{i.Shard.ID, i.Shard.Count}})
	}

	var err error
	d := []byte("{}")

	for _, f := range fields {
		if d, err = sjson.SetBytes(d, f.path, f.value); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Marshal encodes the Resume data document: {token, session_id, seq}.
func (r *Resume) Marshal() ([]byte, error) {
	if r.SessionID == "" {
		return nil, ErrEmptySessionID
	}

	d, err := sjson.SetBytes([]byte("{}"), "token", r.Token)
	if err != nil {
		return nil, err
	}

	if d, err = sjson.SetBytes(d, "session_id", r.SessionID); err != nil {
		return nil, err
	}

	return sjson.SetBytes(d, "seq", r.Sequence)
}

// EncodePayload marshals p and wraps it in a frame with opcode op.
func EncodePayload(op Opcode, p Marshaler) ([]byte, error) {
	d, err := p.Marshal()
	if err != nil {
		return nil, err
	}

	return Encode(op, json.RawMessage(d))
}

type Marshaler interface {
	Marshal() ([]byte, error)
}

var _ Marshaler = (*Identify)(nil)
var _ Marshaler = (*Resume)(nil)
