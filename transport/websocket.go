package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// WebSocket is a Transport over a gorilla/websocket connection. Each Connect
// dials a new connection, the previous one is closed.
type WebSocket struct {
	opts   Options
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn

	log *zap.Logger
}

func NewWebSocket(options Options) *WebSocket {
	options.setDefaults()

	return &WebSocket{
		opts: options,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: options.HandshakeTimeout,
			TLSClientConfig:  options.TLSConfig,
		},
		log: options.Log,
	}
}

// URL returns the gateway URL dialled for host and port.
func (w *WebSocket) URL(host, port string) string {
	query := url.Values{}
	query.Set("v", strconv.Itoa(w.opts.APIVersion))
	query.Set("encoding", "json")

	if w.opts.Compress {
		query.Set("compress", "zlib-stream")
	}

	u := url.URL{
		Scheme:   w.opts.Scheme,
		Host:     net.JoinHostPort(host, port),
		Path:     "/",
		RawQuery: query.Encode(),
	}

	return u.String()
}

func (w *WebSocket) Connect(ctx context.Context, host, port string) error {
	addr := w.URL(host, port)

	header := http.Header{}
	if w.opts.UserAgent != "" {
		header.Set("User-Agent", w.opts.UserAgent)
	}

	conn, resp, err := w.dialer.DialContext(ctx, addr, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("Failed to dial %s (%s): %w", addr, resp.Status, err)
		}

		return fmt.Errorf("Failed to dial %s: %w", addr, err)
	}

	conn.SetReadLimit(w.opts.ReadLimit)

	w.mu.Lock()
	old := w.conn
	w.conn = conn
	w.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			w.log.Warn("Previous connection did not close cleanly", zap.Error(err))
		}
	}

	w.log.Info("Connected", zap.String("url", addr))

	return nil
}

func (w *WebSocket) Read() ([]byte, error) {
	conn := w.current()
	if conn == nil {
		return nil, ErrNotOpen
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	if w.opts.Trace {
		w.log.Debug("READ", zap.ByteString("data", data))
	}

	return data, nil
}

func (w *WebSocket) Write(data []byte) error {
	conn := w.current()
	if conn == nil {
		return ErrNotOpen
	}

	if w.opts.Trace {
		w.log.Debug("WRITE", zap.ByteString("data", data))
	}

	if err := conn.SetWriteDeadline(time.Now().Add(w.opts.WriteTimeout)); err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WebSocket) Close(code int) error {
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	w.mu.Unlock()

	if conn == nil {
		return nil
	}

	w.log.Info("Closing connection", zap.Int("code", code))

	deadline := time.Now().Add(w.opts.WriteTimeout)
	err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
	if errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed) {
		// The peer closed first, or the connection is already gone
		err = nil
	}

	return multierr.Append(err, ignoreClosed(conn.Close()))
}

func (w *WebSocket) IsOpen() bool {
	return w.current() != nil
}

func (w *WebSocket) current() *websocket.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.conn
}

func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

var _ Transport = (*WebSocket)(nil)
