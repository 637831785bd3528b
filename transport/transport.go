package transport

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
)

var ErrNotOpen = errors.New("transport is not open")

// Transport is the connection a gateway session runs over. Read and Write
// may be called from different goroutines, Close may be called while a Read
// is blocked and makes it return an error.
type Transport interface {
	// Connect resolves host and opens a connection to it, replacing any
	// previous connection.
	Connect(ctx context.Context, host, port string) error

	// Read blocks until one inbound message is available.
	Read() ([]byte, error)

	Write(data []byte) error

	// Close sends code to the peer, if possible, and closes the connection.
	// Closing a transport that is not open is a no-op.
	Close(code int) error

	IsOpen() bool
}

// CloseCode extracts the close code the peer sent from an error returned by
// Read.
func CloseCode(err error) (int, bool) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code, true
	}

	return 0, false
}
