package protocol

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

var (
	ErrInvalidDocument  = errors.New("Frame is not a valid JSON document")
	ErrNotAnObject      = errors.New("Frame is malformed, the document root is not an object")
	ErrMissingOpcode    = errors.New("Frame is malformed, it appears to be missing an integer opcode")
	ErrUnknownOpcode    = errors.New("Unknown opcode could not be parsed")
	ErrMalformedPayload = errors.New("Frame payload is malformed")
	ErrInflate          = errors.New("Compressed frame could not be inflated")
)

// DecodeError is returned for any inbound block that cannot be turned into a
// frame. Receiving one is a protocol violation.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode frame: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErrorf(err error, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Err: fmt.Errorf(format+": %w", append(args, err)...)}
}

// Frame is one protocol message as it appears on the wire. Sequence and Event
// are only set on Dispatch frames.
type Frame struct {
	Op          Opcode
	Sequence    int64
	HasSequence bool
	Event       string
	Data        gjson.Result
}

// ParseFrame parses a plain (already inflated) JSON document into a Frame.
//
// The `op` field must be a known integer opcode, `s` and `t` are optional and
// `d` is kept as an untyped tree.
func ParseFrame(doc []byte) (*Frame, error) {
	if !gjson.ValidBytes(doc) {
		return nil, &DecodeError{Err: ErrInvalidDocument}
	}

	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		return nil, &DecodeError{Err: ErrNotAnObject}
	}

	op := root.Get("op")
	if op.Type != gjson.Number || op.Num != math.Trunc(op.Num) {
		return nil, &DecodeError{Err: ErrMissingOpcode}
	}

	frame := &Frame{
		Op:   Opcode(op.Int()),
		Data: root.Get("d"),
	}

	if !frame.Op.Known() {
		return nil, decodeErrorf(ErrUnknownOpcode, "Failed to parse opcode %d", op.Int())
	}

	if s := root.Get("s"); s.Type == gjson.Number {
		frame.Sequence = s.Int()
		frame.HasSequence = true
	}

	if t := root.Get("t"); t.Type == gjson.String {
		frame.Event = t.String()
	}

	return frame, nil
}
