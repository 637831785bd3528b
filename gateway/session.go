package gateway

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/luma/aurora/internal/strand"
	"github.com/luma/aurora/protocol"
	"github.com/luma/aurora/storage"
	"github.com/luma/aurora/transport"
)

// Session is one logical connection to the gateway. It identifies, keeps the
// connection alive with heartbeats and resumes after transient disconnects.
//
// Every state transition, timer fire and inbound frame runs on the session's
// strand, one at a time. None of the fields below the strand are locked;
// they must only be touched from closures running on it.
type Session struct {
	opts      Options
	transport transport.Transport
	strand    *strand.Strand

	store   storage.Store
	metrics *Metrics
	tracer  trace.Tracer
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	decoder   *protocol.Decoder
	heartbeat *heartbeater

	token      string
	host       string
	port       string
	resumeHost string
	intents    protocol.Intent
	sequence   int64
	sessionID  string
	state      State

	// generation is bumped whenever a connection is closed or dialled;
	// reads and dial results from an older generation are dropped.
	generation     uint64
	dialing        bool
	cancelDial     context.CancelFunc
	readerDone     chan struct{}
	resumeAttempts int

	identifyEpoch uint64
	identifyTimer *time.Timer
}

// New creates a session in the Disconnected state. Close must be called to
// release it.
func New(options Options) (*Session, error) {
	if options.Transport == nil {
		return nil, ErrMissingTransport
	}

	options.setDefaults()

	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		opts:      options,
		transport: options.Transport,
		strand:    strand.New(),
		store:     options.Store,
		metrics:   options.Metrics,
		tracer:    options.Tracer,
		log:       options.Log.Named("gateway"),
		ctx:       ctx,
		cancel:    cancel,
		decoder:   protocol.NewDecoder(options.Compress),
		intents:   options.Intents,
		state:     Disconnected,
	}

	s.heartbeat = &heartbeater{
		post: s.strand.Post,
		due:  s.onHeartbeatDue,
	}

	s.metrics.State.WithLabelValues(Disconnected.String()).Inc()
	s.publish("state", Disconnected.String())
	s.publish("intents", int(s.intents))

	return s, nil
}

// Connect opens a connection to host:port and starts a fresh session on it
// once the gateway says Hello. An empty port means DefaultPort.
//
// It returns a *TransportError when the connection cannot be opened and a
// *LogicError when the session is already connecting or connected.
func (s *Session) Connect(ctx context.Context, token, host, port string) error {
	if port == "" {
		port = DefaultPort
	}

	reply := make(chan error, 1)

	err := s.strand.Do(func() {
		if s.dialing || s.state.Active() {
			reply <- &LogicError{Err: fmt.Errorf("connect in state %s: %w", s.state, ErrAlreadyConnected)}
			return
		}

		s.token, s.host, s.port = token, host, port
		s.resumeAttempts = 0
		s.clearSession()
		s.setState(Connecting)
		s.dial(ctx, false, reply)
	})
	if err != nil {
		return ErrSessionClosed
	}

	return <-reply
}

// Disconnect closes the connection with code and stops heartbeating. The
// session is Closed afterwards and may be connected again. Disconnecting a
// Closed session does nothing.
func (s *Session) Disconnect(code int) error {
	var closeErr error

	err := s.strand.Do(func() {
		if s.state == Closed {
			return
		}

		if s.cancelDial != nil {
			s.cancelDial()
		}

		closeErr = s.closeTransport(code)
		s.setState(Closed)
	})
	if err != nil {
		return ErrSessionClosed
	}

	if closeErr != nil {
		return &TransportError{Op: "close", Err: closeErr}
	}

	return nil
}

// Close disconnects with a normal close code and stops the session's worker.
// The session cannot be used afterwards.
func (s *Session) Close() error {
	err := s.Disconnect(protocol.CloseNormal)
	if err == ErrSessionClosed {
		return nil
	}

	s.strand.Stop()
	s.cancel()

	return err
}

// SubscribeTo adds intents. They are sent with the next fresh Identify, the
// current connection is unaffected.
func (s *Session) SubscribeTo(intents protocol.Intent) {
	_ = s.strand.Do(func() {
		s.intents |= intents
		s.publish("intents", int(s.intents))
	})
}

// UnsubscribeFrom removes intents. Like SubscribeTo it only takes effect with
// the next fresh Identify.
func (s *Session) UnsubscribeFrom(intents protocol.Intent) {
	_ = s.strand.Do(func() {
		s.intents &^= intents
		s.publish("intents", int(s.intents))
	})
}

func (s *Session) Intents() (intents protocol.Intent) {
	_ = s.strand.Do(func() { intents = s.intents })
	return intents
}

func (s *Session) State() State {
	state := Closed
	_ = s.strand.Do(func() { state = s.state })
	return state
}

func (s *Session) SessionID() (id string) {
	_ = s.strand.Do(func() { id = s.sessionID })
	return id
}

func (s *Session) Sequence() (seq int64) {
	_ = s.strand.Do(func() { seq = s.sequence })
	return seq
}

// Store returns the store the session publishes its snapshot to.
func (s *Session) Store() storage.Store {
	return s.store
}

// dial opens a connection in the background and posts the result back to the
// strand. It waits for the reader of the previous connection to exit so that
// only one goroutine ever reads from the transport.
func (s *Session) dial(parent context.Context, resume bool, reply chan<- error) {
	s.generation++
	gen := s.generation
	s.dialing = true

	host := s.host
	if resume && s.resumeHost != "" {
		host = s.resumeHost
	}
	port := s.port

	ctx, cancel := context.WithCancel(parent)
	s.cancelDial = cancel
	prevReader := s.readerDone

	s.log.Info("Connecting",
		zap.String("host", host),
		zap.String("port", port),
		zap.Bool("resume", resume))

	go func() {
		defer cancel()

		if prevReader != nil {
			<-prevReader
		}

		err := s.transport.Connect(ctx, host, port)

		posted := s.strand.Post(func() {
			s.onDialed(gen, resume, err, reply)
		})

		if !posted {
			if err == nil {
				s.transport.Close(protocol.CloseNormal)
			}

			if reply != nil {
				reply <- ErrSessionClosed
			}
		}
	}()
}

func (s *Session) onDialed(gen uint64, resume bool, err error, reply chan<- error) {
	s.dialing = false
	s.cancelDial = nil

	if gen != s.generation {
		// Disconnected while dialling
		if err == nil {
			s.transport.Close(protocol.CloseNormal)
		}

		if reply != nil {
			reply <- ErrSessionClosed
		}
		return
	}

	if err != nil {
		terr := &TransportError{Op: "connect", Err: err}
		s.log.Warn("Failed to connect", zap.Error(err))

		if reply != nil {
			s.setState(Disconnected)
			reply <- terr
			return
		}

		s.reconnect(resume, terr)
		return
	}

	s.decoder.Reset()
	s.startReader(gen)

	if reply != nil {
		reply <- nil
	}

	if !resume {
		s.setState(AwaitingHello)
		return
	}

	if err := s.resume(); err != nil {
		if logicErr, ok := err.(*LogicError); ok {
			// Nothing to resume, identify once the gateway says Hello
			s.fail(logicErr)
			s.setState(AwaitingHello)
			return
		}

		s.recoverConnection(err, protocol.CloseReconnect)
		return
	}

	s.setState(Identifying)
}

func (s *Session) startReader(gen uint64) {
	done := make(chan struct{})
	s.readerDone = done

	go func() {
		defer close(done)

		for {
			block, err := s.transport.Read()
			if err != nil {
				s.strand.Post(func() { s.onReadFailed(gen, err) })
				return
			}

			if !s.strand.Post(func() { s.onBlock(gen, block) }) {
				return
			}
		}
	}()
}

func (s *Session) onReadFailed(gen uint64, err error) {
	if gen != s.generation {
		// Our own close, or a connection we already gave up on
		return
	}

	code, fromGateway := transport.CloseCode(err)
	if fromGateway {
		s.log.Warn("Gateway closed the connection", zap.Int("code", code), zap.Error(err))

		if protocol.IsFatalClose(code) {
			s.closeTransport(protocol.CloseNormal)
			s.clearSession()
			s.setState(Disconnected)
			s.fail(&GatewayCloseError{Code: code, Err: err})
			return
		}

		if protocol.InvalidatesSession(code) {
			s.closeTransport(protocol.CloseReconnect)
			s.clearSession()
			s.reconnect(false, &TransportError{Op: "read", Err: err})
			return
		}
	} else {
		s.log.Warn("Failed to read from the gateway", zap.Error(err))
	}

	s.recoverConnection(&TransportError{Op: "read", Err: err}, protocol.CloseReconnect)
}

// recoverConnection closes a broken connection with code and resumes when
// there is a session to resume. Without one the session is Disconnected and
// cause is reported.
func (s *Session) recoverConnection(cause error, code int) {
	s.closeTransport(code)

	if s.sessionID == "" {
		s.setState(Disconnected)
		s.fail(cause)
		return
	}

	s.reconnect(true, cause)
}

// reconnect dials again, to resume or to identify from scratch, unless the
// session already used up its attempts.
func (s *Session) reconnect(resume bool, cause error) {
	if s.resumeAttempts >= s.opts.MaxResumeAttempts {
		s.setState(Disconnected)
		s.fail(fmt.Errorf("%w after %d attempt(s): %w", ErrResumeExhausted, s.resumeAttempts, cause))
		return
	}

	s.resumeAttempts++

	if resume {
		s.metrics.Reconnects.WithLabelValues("resume").Inc()
		s.setState(Resuming)
	} else {
		s.metrics.Reconnects.WithLabelValues("identify").Inc()
		s.setState(Connecting)
	}

	s.dial(s.ctx, resume, nil)
}

// closeTransport stops every timer of the current connection and closes it.
// Anything the old connection still delivers is dropped.
func (s *Session) closeTransport(code int) error {
	s.heartbeat.stop()
	s.stopIdentifyTimer()
	s.generation++

	if !s.transport.IsOpen() {
		return nil
	}

	err := s.transport.Close(code)
	if err != nil {
		s.log.Warn("Transport did not close cleanly", zap.Int("code", code), zap.Error(err))
	}

	return err
}

func (s *Session) clearSession() {
	s.sessionID = ""
	s.sequence = 0
	s.resumeHost = ""

	s.publish("session_id", "")
	s.publish("sequence", 0)
	s.publish("resume_host", "")
}

func (s *Session) setState(to State) {
	from := s.state
	if from == to {
		return
	}

	s.state = to

	s.log.Info("State changed", zap.Stringer("from", from), zap.Stringer("to", to))
	s.metrics.State.WithLabelValues(from.String()).Dec()
	s.metrics.State.WithLabelValues(to.String()).Inc()
	s.publish("state", to.String())

	if s.opts.Handlers.OnStateChange != nil {
		s.opts.Handlers.OnStateChange(from, to)
	}
}

func (s *Session) fail(err error) {
	kind := "terminal"
	if _, ok := err.(*LogicError); ok {
		kind = "logic"
	}

	s.log.Error("Session failure", zap.String("kind", kind), zap.Error(err))
	s.metrics.Failures.WithLabelValues(kind).Inc()

	if s.opts.Handlers.OnFailure != nil {
		s.opts.Handlers.OnFailure(err)
	}
}

// invariant reports a LogicError, or panics under StrictInvariants, when ok
// is false.
func (s *Session) invariant(ok bool, format string, args ...interface{}) bool {
	if ok {
		return true
	}

	err := &LogicError{Err: fmt.Errorf(format, args...)}
	if s.opts.StrictInvariants {
		panic(err)
	}

	s.fail(err)
	return false
}

func (s *Session) publish(key string, value interface{}) {
	if err := s.store.Set(s.ctx, []byte(key), value); err != nil {
		s.log.Warn("Failed to publish session state", zap.String("key", key), zap.Error(err))
	}
}
