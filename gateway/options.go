package gateway

import (
	"context"
	"math/rand"
	"runtime"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/luma/aurora/internal/meta"
	"github.com/luma/aurora/protocol"
	"github.com/luma/aurora/storage"
	"github.com/luma/aurora/transport"
)

const (
	DefaultHost = "gateway.discord.gg"
	DefaultPort = "443"

	DefaultMaxResumeAttempts = 1

	tracerName = "github.com/luma/aurora/gateway"
)

// Handlers are called on the session's worker, one at a time. A handler must
// not call the session's blocking methods (Connect, Disconnect, State, ...)
// synchronously, doing so deadlocks the session.
type Handlers struct {
	// OnDispatch is called once per Dispatch frame, after the sequence has
	// been updated.
	OnDispatch func(ctx context.Context, event string, data gjson.Result)

	OnStateChange func(from, to State)

	// OnFailure receives terminal failures (the session is Disconnected
	// afterwards) and LogicErrors (the session keeps running).
	OnFailure func(err error)
}

type Options struct {
	// Transport is required. Its compression setting has to match Compress.
	Transport transport.Transport

	// Compress selects whether inbound blocks are a zlib stream. It is also
	// announced in Identify.
	Compress bool

	// Intents used by the first Identify, see SubscribeTo and UnsubscribeFrom
	Intents protocol.Intent

	Properties protocol.Properties
	Shard      protocol.Shard

	Handlers Handlers

	// MaxResumeAttempts is how many reconnects may be attempted in a row
	// without reaching READY or RESUMED before the session gives up.
	MaxResumeAttempts int

	// InvalidSessionDelay returns how long to wait before identifying again
	// after a non-resumable InvalidSession. Defaults to a random 1-5s.
	InvalidSessionDelay func() time.Duration

	// StrictInvariants panics on broken invariants instead of reporting a
	// LogicError. Meant for tests.
	StrictInvariants bool

	Store   storage.Store
	Metrics *Metrics
	Tracer  trace.Tracer
	Log     *zap.Logger
}

func (o *Options) setDefaults() {
	if o.Properties == (protocol.Properties{}) {
		o.Properties = protocol.Properties{
			OS:      runtime.GOOS,
			Browser: meta.Name,
			Device:  meta.Name,
		}
	}

	if o.MaxResumeAttempts <= 0 {
		o.MaxResumeAttempts = DefaultMaxResumeAttempts
	}

	if o.InvalidSessionDelay == nil {
		o.InvalidSessionDelay = func() time.Duration {
			return time.Second + time.Duration(rand.Int63n(int64(4*time.Second)))
		}
	}

	if o.Store == nil {
		o.Store = storage.NewInmemoryStore()
	}

	if o.Metrics == nil {
		o.Metrics = NewMetrics()
	}

	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}
}
