package gateway

import (
	"time"

	"go.uber.org/zap"

	"github.com/luma/aurora/protocol"
)

// heartbeater owns the single heartbeat timer of a session. Its fields are
// only touched on the session's strand; the timer itself fires on its own
// goroutine and posts back to the strand.
type heartbeater struct {
	post func(func()) bool
	due  func()

	// epoch invalidates fires of timers that were stopped after they had
	// already posted.
	epoch      uint64
	timer      *time.Timer
	interval   time.Duration
	ackPending bool
	sentAt     time.Time
}

// start (re)starts the schedule: the first heartbeat is due one interval from
// now.
func (h *heartbeater) start(interval time.Duration) {
	h.stop()
	h.interval = interval
	h.arm()
}

func (h *heartbeater) arm() {
	epoch := h.epoch

	h.timer = time.AfterFunc(h.interval, func() {
		h.post(func() {
			if epoch != h.epoch {
				return
			}

			h.timer = nil
			h.due()
		})
	})
}

func (h *heartbeater) stop() {
	h.epoch++
	h.ackPending = false

	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// onHeartbeatDue runs when the timer fires. An unacknowledged heartbeat at
// this point means the connection is a zombie.
func (s *Session) onHeartbeatDue() {
	if s.heartbeat.ackPending {
		s.log.Warn("Heartbeat was not acknowledged, closing zombie connection",
			zap.Duration("interval", s.heartbeat.interval),
			zap.Time("sent_at", s.heartbeat.sentAt))

		s.metrics.ZombieConnections.Inc()
		s.recoverConnection(ErrZombieConnection, protocol.CloseZombie)
		return
	}

	if !s.sendHeartbeat() {
		return
	}

	s.heartbeat.arm()
}

// onHeartbeatRequest answers a heartbeat the gateway asked for. The schedule
// is left alone, and nothing is sent while one heartbeat is still in flight.
func (s *Session) onHeartbeatRequest() {
	if s.heartbeat.ackPending {
		s.log.Debug("Heartbeat requested while one is in flight")
		return
	}

	s.sendHeartbeat()
}

func (s *Session) onHeartbeatAck() {
	if !s.heartbeat.ackPending {
		s.log.Debug("Unexpected heartbeat ack")
		return
	}

	latency := time.Since(s.heartbeat.sentAt)
	s.heartbeat.ackPending = false
	s.metrics.HeartbeatLatency.Observe(latency.Seconds())

	s.log.Debug("Heartbeat acknowledged", zap.Duration("latency", latency))
}

// sendHeartbeat writes one heartbeat carrying the last sequence. It reports
// whether the connection is still usable.
func (s *Session) sendHeartbeat() bool {
	if !s.invariant(!s.heartbeat.ackPending, "heartbeat sent while another is awaiting its ack") {
		return false
	}

	payload, err := protocol.EncodeHeartbeat(s.sequence)
	if err != nil {
		s.fail(&LogicError{Err: err})
		return false
	}

	if err := s.send(protocol.OpHeartbeat, payload); err != nil {
		s.recoverConnection(err, protocol.CloseReconnect)
		return false
	}

	s.heartbeat.ackPending = true
	s.heartbeat.sentAt = time.Now()

	return true
}
