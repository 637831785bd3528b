package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyConnected     = errors.New("session is already connecting or connected")
	ErrResumeWithoutSession = errors.New("resume requested without a session id")
	ErrSessionClosed        = errors.New("session is closed")
	ErrZombieConnection     = errors.New("heartbeat was not acknowledged before the next was due")
	ErrResumeExhausted      = errors.New("resume attempts exhausted")
	ErrMissingTransport     = errors.New("session requires a transport")
)

// TransportError is a failure at the transport boundary.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// LogicError reports misuse of the session or a broken internal invariant.
// It never changes the session's state by itself.
type LogicError struct {
	Err error
}

func (e *LogicError) Error() string {
	return "logic error: " + e.Err.Error()
}

func (e *LogicError) Unwrap() error {
	return e.Err
}

// GatewayCloseError is reported when the gateway closed the connection with a
// code that rules out both Resume and a new Identify.
type GatewayCloseError struct {
	Code int
	Err  error
}

func (e *GatewayCloseError) Error() string {
	return fmt.Sprintf("gateway closed the connection with fatal code %d", e.Code)
}

func (e *GatewayCloseError) Unwrap() error {
	return e.Err
}
