package gateway_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/klauspost/compress/zlib"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/luma/aurora/protocol"
	"github.com/luma/aurora/transport"
)

var errConnectionClosed = errors.New("use of closed connection")

type read struct {
	block []byte
	err   error
}

type written struct {
	frame gjson.Result
	at    time.Time
}

// fakeTransport plays the gateway side of a connection. Blocks handed to
// Receive are returned by Read in order, every Write is recorded.
type fakeTransport struct {
	mu sync.Mutex

	open       bool
	connectErr error
	inbox      chan read

	connects []string
	sent     []written
	closes   []int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{}
}

func (f *fakeTransport) Connect(ctx context.Context, host, port string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connects = append(f.connects, net.JoinHostPort(host, port))
	if f.connectErr != nil {
		return f.connectErr
	}

	f.open = true
	f.inbox = make(chan read, 64)
	return nil
}

func (f *fakeTransport) Read() ([]byte, error) {
	f.mu.Lock()
	inbox := f.inbox
	f.mu.Unlock()

	if inbox == nil {
		return nil, errConnectionClosed
	}

	r, ok := <-inbox
	if !ok {
		return nil, errConnectionClosed
	}

	return r.block, r.err
}

func (f *fakeTransport) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return transport.ErrNotOpen
	}

	f.sent = append(f.sent, written{frame: gjson.ParseBytes(data), at: time.Now()})
	return nil
}

func (f *fakeTransport) Close(code int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closes = append(f.closes, code)
	if f.open {
		f.open = false
		close(f.inbox)
	}

	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.open
}

// Receive queues a block on the current connection. It reports false when no
// connection is open.
func (f *fakeTransport) Receive(block string) bool {
	return f.push(read{block: []byte(block)})
}

func (f *fakeTransport) ReceiveBytes(block []byte) bool {
	return f.push(read{block: block})
}

// Fail makes the pending Read return err, as if the connection broke.
func (f *fakeTransport) Fail(err error) bool {
	return f.push(read{err: err})
}

func (f *fakeTransport) push(r read) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return false
	}

	f.inbox <- r
	return true
}

func (f *fakeTransport) SetConnectErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connectErr = err
}

func (f *fakeTransport) Connects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.connects...)
}

func (f *fakeTransport) Closes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]int(nil), f.closes...)
}

// Sent returns the frames written with opcode op.
func (f *fakeTransport) Sent(op protocol.Opcode) []gjson.Result {
	var frames []gjson.Result
	for _, w := range f.sentWithTimes(op) {
		frames = append(frames, w.frame)
	}

	return frames
}

func (f *fakeTransport) SentCount(op protocol.Opcode) func() int {
	return func() int { return len(f.sentWithTimes(op)) }
}

func (f *fakeTransport) sentWithTimes(op protocol.Opcode) []written {
	f.mu.Lock()
	defer f.mu.Unlock()

	var frames []written
	for _, w := range f.sent {
		if w.frame.Get("op").Int() == int64(op) {
			frames = append(frames, w)
		}
	}

	return frames
}

// zlibStream produces the blocks a zlib-stream gateway would send, one per
// message, each ending in a sync flush.
type zlibStream struct {
	buf bytes.Buffer
	w   *zlib.Writer
}

func newZlibStream() *zlibStream {
	s := &zlibStream{}
	s.w = zlib.NewWriter(&s.buf)
	return s
}

func (s *zlibStream) message(doc string) []byte {
	_, err := s.w.Write([]byte(doc))
	Expect(err).To(Succeed())
	Expect(s.w.Flush()).To(Succeed())

	block := append([]byte(nil), s.buf.Bytes()...)
	s.buf.Reset()
	return block
}
