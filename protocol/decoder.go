package protocol

import (
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/flate"
)

const (
	// windowSize is the deflate history a zlib stream may refer back into.
	windowSize = 32 << 10

	// MaxPendingBytes bounds how much of an incomplete compressed message is
	// buffered while waiting for the sync-flush suffix.
	MaxPendingBytes = 16 << 20
)

// SyncFlushSuffix terminates every complete message of a zlib-stream
// connection.
var SyncFlushSuffix = []byte{0x00, 0x00, 0xff, 0xff}

var errZlibHeader = errors.New("invalid zlib stream header")

// Decoder turns blocks read from the transport into frames.
//
// With compression enabled the whole connection is one zlib stream: blocks are
// buffered until one ends with SyncFlushSuffix and the completed message is
// inflated against the history of every earlier message. A Decoder must be
// Reset whenever a new connection starts and must not be shared between
// goroutines.
type Decoder struct {
	compress bool

	pending bytes.Buffer
	started bool
	window  []byte
	inflate io.ReadCloser
}

func NewDecoder(compress bool) *Decoder {
	return &Decoder{compress: compress}
}

// Compressed reports whether the decoder expects a zlib stream.
func (d *Decoder) Compressed() bool {
	return d.compress
}

// Reset discards the stream state of the previous connection.
func (d *Decoder) Reset() {
	d.pending.Reset()
	d.started = false
	d.window = nil
}

// Decode decodes one block. It returns a nil frame and a nil error when the
// block is only part of a compressed message.
func (d *Decoder) Decode(block []byte) (*Frame, error) {
	if !d.compress {
		return ParseFrame(block)
	}

	if d.pending.Len()+len(block) > MaxPendingBytes {
		d.pending.Reset()
		return nil, decodeErrorf(ErrInflate, "Compressed message exceeds %d bytes", MaxPendingBytes)
	}

	d.pending.Write(block)

	if !bytes.HasSuffix(d.pending.Bytes(), SyncFlushSuffix) {
		return nil, nil
	}

	doc, err := d.inflateMessage(d.pending.Bytes())
	d.pending.Reset()

	if err != nil {
		return nil, decodeErrorf(ErrInflate, "Failed to inflate message (%v)", err)
	}

	return ParseFrame(doc)
}

func (d *Decoder) inflateMessage(msg []byte) ([]byte, error) {
	if !d.started {
		if len(msg) < 2 || !validZlibHeader(msg[0], msg[1]) {
			return nil, errZlibHeader
		}

		msg = msg[2:]
		d.started = true
	}

	// Every message ends on a sync flush, which leaves the deflate stream
	// byte aligned between blocks. The only state carried into the next
	// message is the history window, so each message gets a fresh reader
	// primed with it.
	src := bytes.NewReader(msg)

	if d.inflate == nil {
		d.inflate = flate.NewReaderDict(src, d.window)
	} else if err := d.inflate.(flate.Resetter).Reset(src, d.window); err != nil {
		return nil, err
	}

	out, err := io.ReadAll(d.inflate)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}

	d.remember(out)

	return out, nil
}

func (d *Decoder) remember(out []byte) {
	d.window = append(d.window, out...)

	if len(d.window) > windowSize {
		d.window = append([]byte(nil), d.window[len(d.window)-windowSize:]...)
	}
}

func validZlibHeader(cmf, flg byte) bool {
	const (
		deflateMethod = 8
		presetDict    = 0x20
	)

	return cmf&0x0f == deflateMethod &&
		(uint16(cmf)<<8|uint16(flg))%31 == 0 &&
		flg&presetDict == 0
}
