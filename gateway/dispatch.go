package gateway

import (
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/luma/aurora/protocol"
)

const (
	eventReady   = "READY"
	eventResumed = "RESUMED"
)

// onBlock handles one block read from the transport.
func (s *Session) onBlock(gen uint64, block []byte) {
	if gen != s.generation {
		return
	}

	frame, err := s.decoder.Decode(block)
	if err != nil {
		s.onDecodeError(err)
		return
	}

	if frame == nil {
		// Rest of the message is still to come
		return
	}

	msg, err := frame.Message()
	if err != nil {
		s.onDecodeError(err)
		return
	}

	s.metrics.FramesReceived.WithLabelValues(frame.Op.String()).Inc()
	s.route(msg)
}

// onDecodeError treats an undecodable frame as a protocol violation by the
// gateway.
func (s *Session) onDecodeError(err error) {
	s.log.Warn("Failed to decode frame", zap.Error(err))
	s.metrics.DecodeErrors.Inc()
	s.recoverConnection(err, protocol.ClosePolicyViolation)
}

func (s *Session) route(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Dispatch:
		s.onDispatch(m)

	case *protocol.Hello:
		s.onHello(m)

	case *protocol.HeartbeatAck:
		s.onHeartbeatAck()

	case *protocol.HeartbeatRequest:
		s.onHeartbeatRequest()

	case *protocol.Reconnect:
		s.log.Info("Gateway requested a reconnect")
		s.onReconnect(errReconnectRequested)

	case *protocol.InvalidSession:
		s.onInvalidSession(m)

	case *protocol.Unhandled:
		s.log.Debug("Ignoring frame", zap.Stringer("op", m.Op))

	default:
		s.invariant(false, "no route for %T", msg)
	}
}

func (s *Session) onDispatch(dispatch *protocol.Dispatch) {
	if dispatch.HasSequence {
		if dispatch.Sequence >= s.sequence {
			s.sequence = dispatch.Sequence
			s.publish("sequence", s.sequence)
		} else {
			s.log.Warn("Ignoring sequence going backwards",
				zap.Int64("sequence", s.sequence),
				zap.Int64("received", dispatch.Sequence))
		}
	}

	switch dispatch.Event {
	case eventReady:
		id := dispatch.Data.Get("session_id").String()
		if id == "" {
			s.onDecodeError(&protocol.DecodeError{
				Err: fmt.Errorf("READY is missing its session_id: %w", protocol.ErrMalformedPayload),
			})
			return
		}

		s.sessionID = id
		s.publish("session_id", id)

		if host := resumeHost(dispatch.Data.Get("resume_gateway_url").String()); host != "" {
			s.resumeHost = host
			s.publish("resume_host", host)
		}

		s.resumeAttempts = 0
		s.log.Info("Session ready", zap.String("session_id", id))
		s.setState(Connected)

	case eventResumed:
		s.resumeAttempts = 0
		s.log.Info("Session resumed", zap.Int64("sequence", s.sequence))
		s.setState(Connected)
	}

	s.deliver(dispatch)
}

func (s *Session) deliver(dispatch *protocol.Dispatch) {
	if s.opts.Handlers.OnDispatch == nil {
		return
	}

	ctx, span := s.tracer.Start(s.ctx, "gateway.dispatch", trace.WithAttributes(
		attribute.String("gateway.event", dispatch.Event),
		attribute.Int64("gateway.sequence", dispatch.Sequence),
	))
	defer span.End()

	s.opts.Handlers.OnDispatch(ctx, dispatch.Event, dispatch.Data)
}

// resumeHost extracts the host of the resume_gateway_url READY carries. The
// port stays the one the session was connected with.
func resumeHost(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return u.Hostname()
}
