package transport

import (
	"crypto/tls"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAPIVersion       = 10
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultReadLimit        = 32 << 20
)

type Options struct {
	// Scheme of the gateway URL, "wss" unless set. "ws" is only useful
	// when talking to a local gateway.
	Scheme string

	// APIVersion is sent as the `v` query parameter
	APIVersion int

	// Compress asks the gateway for a zlib-stream connection
	Compress bool

	// UserAgent is sent with the opening handshake
	UserAgent string

	TLSConfig *tls.Config

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// ReadLimit is the largest inbound message accepted, in bytes
	ReadLimit int64

	// Trace will log every block read or written. This is only useful in local debugging
	Trace bool

	Log *zap.Logger
}

func (o *Options) setDefaults() {
	if o.Scheme == "" {
		o.Scheme = "wss"
	}

	if o.APIVersion == 0 {
		o.APIVersion = DefaultAPIVersion
	}

	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}

	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}

	if o.ReadLimit <= 0 {
		o.ReadLimit = DefaultReadLimit
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}
}
