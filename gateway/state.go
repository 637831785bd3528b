package gateway

import "strconv"

// State is the connection state of a Session.
type State int

const (
	Disconnected State = iota
	Connecting
	AwaitingHello
	Identifying
	Connected
	Resuming
	Closed
)

var stateNames = [...]string{
	Disconnected:  "Disconnected",
	Connecting:    "Connecting",
	AwaitingHello: "AwaitingHello",
	Identifying:   "Identifying",
	Connected:     "Connected",
	Resuming:      "Resuming",
	Closed:        "Closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}

	return stateNames[s]
}

// Active reports whether a connection is open, or being opened, in this
// state.
func (s State) Active() bool {
	switch s {
	case Connecting, AwaitingHello, Identifying, Connected, Resuming:
		return true
	}

	return false
}
