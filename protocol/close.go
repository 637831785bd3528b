package protocol

// Close codes sent by the client when it tears down a connection.
//
// Closing with CloseNormal or CloseGoingAway invalidates the session on the
// gateway side, every other code keeps it resumable.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	ClosePolicyViolation = 1008

	// CloseReconnect is used when the client drops a connection it intends to
	// resume.
	CloseReconnect = 4000

	// CloseZombie is used when a heartbeat went unacknowledged.
	CloseZombie = 4900
)

// Close codes sent by the gateway.
const (
	CloseUnknownError         = 4000
	CloseUnknownOpcode        = 4001
	CloseDecodeError          = 4002
	CloseNotAuthenticated     = 4003
	CloseAuthenticationFailed = 4004
	CloseAlreadyAuthenticated = 4005
	CloseInvalidSequence      = 4007
	CloseRateLimited          = 4008
	CloseSessionTimedOut      = 4009
	CloseInvalidShard         = 4010
	CloseShardingRequired     = 4011
	CloseInvalidAPIVersion    = 4012
	CloseInvalidIntents       = 4013
	CloseDisallowedIntents    = 4014
)

// IsFatalClose reports whether the gateway closed the connection with a code
// after which neither Resume nor Identify can succeed without operator action.
func IsFatalClose(code int) bool {
	switch code {
	case CloseAuthenticationFailed,
		CloseInvalidShard,
		CloseShardingRequired,
		CloseInvalidAPIVersion,
		CloseInvalidIntents,
		CloseDisallowedIntents:
		return true
	}

	return false
}

// InvalidatesSession reports whether the gateway discarded the session when it
// closed with code, which rules out a Resume.
func InvalidatesSession(code int) bool {
	return code == CloseInvalidSequence || code == CloseSessionTimedOut
}
