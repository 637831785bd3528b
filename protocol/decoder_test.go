package protocol_test

import (
	"bytes"
	"errors"

	"github.com/klauspost/compress/zlib"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/aurora/protocol"
)

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

var _ = Describe("Decoder", func() {
	It("parses plain blocks directly", func() {
		decoder := protocol.NewDecoder(false)

		frame, err := decoder.Decode([]byte(`{"op":11}`))
		Expect(err).To(Succeed())
		Expect(frame.Op).To(Equal(protocol.OpHeartbeatAck))
	})

	Describe("zlib-stream", func() {
		var (
			decoder *protocol.Decoder
			stream  *zlibStream
		)

		BeforeEach(func() {
			decoder = protocol.NewDecoder(true)
			stream = newZlibStream()
		})

		It("inflates consecutive messages sharing one stream", func() {
			first := stream.message(`{"op":10,"d":{"heartbeat_interval":41250}}`)
			Expect(first).To(HaveSuffix(string(protocol.SyncFlushSuffix)))

			frame, err := decoder.Decode(first)
			Expect(err).To(Succeed())
			Expect(frame.Op).To(Equal(protocol.OpHello))

			// Repeating content makes the second message refer back into
			// the history of the first
			second := stream.message(`{"op":0,"s":1,"t":"READY","d":{"heartbeat_interval":41250}}`)
			frame, err = decoder.Decode(second)
			Expect(err).To(Succeed())
			Expect(frame.Event).To(Equal("READY"))
			Expect(frame.Data.Get("heartbeat_interval").Int()).To(Equal(int64(41250)))
		})

		It("buffers a message split over several blocks", func() {
			block := stream.message(`{"op":0,"s":2,"t":"GUILD_CREATE","d":{"id":"1"}}`)
			half := len(block) / 2

			frame, err := decoder.Decode(block[:half])
			Expect(err).To(Succeed())
			Expect(frame).To(BeNil())

			frame, err = decoder.Decode(block[half:])
			Expect(err).To(Succeed())
			Expect(frame.Event).To(Equal("GUILD_CREATE"))
		})

		It("returns a decode error for a stream without a zlib header", func() {
			_, err := decoder.Decode([]byte{0x01, 0x02, 0x00, 0x00, 0xff, 0xff})
			Expect(errors.Is(err, protocol.ErrInflate)).To(BeTrue())
		})

		It("returns a decode error when the inflated message is not JSON", func() {
			_, err := decoder.Decode(stream.message(`not json`))
			Expect(errors.Is(err, protocol.ErrInvalidDocument)).To(BeTrue())
		})

		It("starts a new stream after Reset", func() {
			_, err := decoder.Decode(stream.message(`{"op":11}`))
			Expect(err).To(Succeed())

			decoder.Reset()

			fresh := newZlibStream()
			frame, err := decoder.Decode(fresh.message(`{"op":7,"d":null}`))
			Expect(err).To(Succeed())
			Expect(frame.Op).To(Equal(protocol.OpReconnect))
		})
	})
})
