package protocol

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Message is the typed view of a frame the gateway sent. The set of
// implementations is closed: Dispatch, HeartbeatRequest, Reconnect,
// InvalidSession, Hello, HeartbeatAck and Unhandled.
type Message interface {
	Opcode() Opcode
	isMessage()
}

// Dispatch carries one application event.
type Dispatch struct {
	Sequence    int64
	HasSequence bool
	Event       string
	Data        gjson.Result
}

// HeartbeatRequest is the gateway asking for an immediate heartbeat.
type HeartbeatRequest struct{}

// Reconnect tells the client to reconnect and resume.
type Reconnect struct{}

// InvalidSession tells the client its session could not be initialised or
// resumed.
type InvalidSession struct {
	Resumable bool
}

// Hello is the first frame on every connection.
type Hello struct {
	HeartbeatInterval time.Duration
}

// HeartbeatAck acknowledges the last heartbeat.
type HeartbeatAck struct{}

// Unhandled is a frame with a known opcode the client never acts on, such as
// the voice and stream opcodes or client-only opcodes echoed back.
type Unhandled struct {
	Op Opcode
}

func (*Dispatch) Opcode() Opcode         { return OpDispatch }
func (*HeartbeatRequest) Opcode() Opcode { return OpHeartbeat }
func (*Reconnect) Opcode() Opcode        { return OpReconnect }
func (*InvalidSession) Opcode() Opcode   { return OpInvalidSession }
func (*Hello) Opcode() Opcode            { return OpHello }
func (*HeartbeatAck) Opcode() Opcode     { return OpHeartbeatAck }
func (u *Unhandled) Opcode() Opcode      { return u.Op }

func (*Dispatch) isMessage()         {}
func (*HeartbeatRequest) isMessage() {}
func (*Reconnect) isMessage()        {}
func (*InvalidSession) isMessage()   {}
func (*Hello) isMessage()            {}
func (*HeartbeatAck) isMessage()     {}
func (*Unhandled) isMessage()        {}

// Message converts the frame into its typed form, validating the fields the
// opcode requires.
func (f *Frame) Message() (Message, error) {
	switch f.Op {
	case OpDispatch:
		if f.Event == "" {
			return nil, decodeErrorf(ErrMalformedPayload, "Dispatch is missing its event name")
		}

		return &Dispatch{
			Sequence:    f.Sequence,
			HasSequence: f.HasSequence,
			Event:       f.Event,
			Data:        f.Data,
		}, nil

	case OpHeartbeat:
		return &HeartbeatRequest{}, nil

	case OpReconnect:
		return &Reconnect{}, nil

	case OpInvalidSession:
		// d is a boolean, anything else is treated as not resumable
		return &InvalidSession{Resumable: f.Data.Type == gjson.True}, nil

	case OpHello:
		interval := f.Data.Get("heartbeat_interval")
		if interval.Type != gjson.Number || interval.Int() <= 0 {
			return nil, decodeErrorf(ErrMalformedPayload, "Hello has no valid heartbeat_interval (%s)", interval.Raw)
		}

		return &Hello{HeartbeatInterval: time.Duration(interval.Int()) * time.Millisecond}, nil

	case OpHeartbeatAck:
		return &HeartbeatAck{}, nil
	}

	if f.Op.Known() {
		return &Unhandled{Op: f.Op}, nil
	}

	return nil, &DecodeError{Err: fmt.Errorf("Failed to classify opcode %d: %w", int(f.Op), ErrUnknownOpcode)}
}
