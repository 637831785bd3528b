package gateway

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/luma/aurora/protocol"
)

var errReconnectRequested = errors.New("gateway requested a reconnect")

func (s *Session) send(op protocol.Opcode, payload []byte) error {
	if err := s.transport.Write(payload); err != nil {
		return &TransportError{Op: "write", Err: err}
	}

	s.metrics.FramesSent.WithLabelValues(op.String()).Inc()
	return nil
}

// abort handles an error from sending a handshake frame. Logic errors are
// only reported, anything else means the connection is broken.
func (s *Session) abort(err error) {
	if logicErr, ok := err.(*LogicError); ok {
		s.fail(logicErr)
		return
	}

	s.recoverConnection(err, protocol.CloseReconnect)
}

// identify starts a fresh session on the current connection. Whatever session
// existed before is forgotten.
func (s *Session) identify() error {
	s.clearSession()

	payload, err := protocol.EncodePayload(protocol.OpIdentify, &protocol.Identify{
		Token:      s.token,
		Intents:    s.intents,
		Properties: s.opts.Properties,
		Compress:   s.opts.Compress,
		Shard:      s.opts.Shard,
	})
	if err != nil {
		return &LogicError{Err: err}
	}

	s.log.Info("Identifying", zap.Stringer("intents", s.intents))
	return s.send(protocol.OpIdentify, payload)
}

func (s *Session) resume() error {
	if s.sessionID == "" {
		return &LogicError{Err: ErrResumeWithoutSession}
	}

	payload, err := protocol.EncodePayload(protocol.OpResume, &protocol.Resume{
		Token:     s.token,
		SessionID: s.sessionID,
		Sequence:  s.sequence,
	})
	if err != nil {
		return &LogicError{Err: err}
	}

	s.log.Info("Resuming",
		zap.String("session_id", s.sessionID),
		zap.Int64("sequence", s.sequence))
	return s.send(protocol.OpResume, payload)
}

func (s *Session) onHello(hello *protocol.Hello) {
	switch s.state {
	case AwaitingHello:
		s.startHeartbeat(hello.HeartbeatInterval)

		if err := s.identify(); err != nil {
			s.abort(err)
			return
		}

		s.setState(Identifying)

	case Identifying, Connected:
		// Hello after a Resume, the session itself is already on its way
		s.startHeartbeat(hello.HeartbeatInterval)

	default:
		s.invariant(false, "Hello received in state %s", s.state)
	}
}

func (s *Session) startHeartbeat(interval time.Duration) {
	s.log.Debug("Starting heartbeat", zap.Duration("interval", interval))
	s.heartbeat.start(interval)
	s.publish("heartbeat_interval_ms", interval.Milliseconds())
}

// onReconnect drops the connection and resumes on a new one. Without a
// session to resume the best it can do is identify again.
func (s *Session) onReconnect(cause error) {
	s.closeTransport(protocol.CloseReconnect)

	if s.sessionID == "" {
		s.fail(&LogicError{Err: ErrResumeWithoutSession})
		s.reconnect(false, cause)
		return
	}

	s.reconnect(true, cause)
}

func (s *Session) onInvalidSession(invalid *protocol.InvalidSession) {
	if invalid.Resumable {
		s.log.Info("Session invalidated, resuming")
		s.onReconnect(errors.New("gateway invalidated the session"))
		return
	}

	delay := s.opts.InvalidSessionDelay()
	s.log.Info("Session invalidated, identifying again", zap.Duration("delay", delay))

	s.clearSession()
	s.setState(Identifying)
	s.scheduleIdentify(delay)
}

// scheduleIdentify sends a fresh Identify on the current connection after
// delay, unless the connection is closed first.
func (s *Session) scheduleIdentify(delay time.Duration) {
	s.stopIdentifyTimer()
	epoch := s.identifyEpoch

	s.identifyTimer = time.AfterFunc(delay, func() {
		s.strand.Post(func() {
			if epoch != s.identifyEpoch {
				return
			}

			s.identifyTimer = nil
			if err := s.identify(); err != nil {
				s.abort(err)
			}
		})
	})
}

func (s *Session) stopIdentifyTimer() {
	s.identifyEpoch++

	if s.identifyTimer != nil {
		s.identifyTimer.Stop()
		s.identifyTimer = nil
	}
}
