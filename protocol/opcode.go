package protocol

import "strconv"

// Opcode identifies the kind of a gateway frame. The integer values are fixed
// by the remote protocol.
type Opcode int

const (
	OpDispatch               Opcode = 0
	OpHeartbeat              Opcode = 1
	OpIdentify               Opcode = 2
	OpPresenceUpdate         Opcode = 3
	OpVoiceStateUpdate       Opcode = 4
	OpVoiceServerPing        Opcode = 5
	OpResume                 Opcode = 6
	OpReconnect              Opcode = 7
	OpRequestGuildMembers    Opcode = 8
	OpInvalidSession         Opcode = 9
	OpHello                  Opcode = 10
	OpHeartbeatAck           Opcode = 11
	OpGuildSync              Opcode = 12
	OpCallConnect            Opcode = 13
	OpGuildSubscriptions     Opcode = 14
	OpLobbyConnect           Opcode = 15
	OpLobbyDisconnect        Opcode = 16
	OpLobbyVoiceStatesUpdate Opcode = 17
	OpStreamCreate           Opcode = 18
	OpStreamDelete           Opcode = 19
	OpStreamWatch            Opcode = 20
	OpStreamPing             Opcode = 21
	OpStreamSetPaused        Opcode = 22
)

var opcodeNames = [...]string{
	OpDispatch:               "Dispatch",
	OpHeartbeat:              "Heartbeat",
	OpIdentify:               "Identify",
	OpPresenceUpdate:         "PresenceUpdate",
	OpVoiceStateUpdate:       "VoiceStateUpdate",
	OpVoiceServerPing:        "VoiceServerPing",
	OpResume:                 "Resume",
	OpReconnect:              "Reconnect",
	OpRequestGuildMembers:    "RequestGuildMembers",
	OpInvalidSession:         "InvalidSession",
	OpHello:                  "Hello",
	OpHeartbeatAck:           "HeartbeatAck",
	OpGuildSync:              "GuildSync",
	OpCallConnect:            "CallConnect",
	OpGuildSubscriptions:     "GuildSubscriptions",
	OpLobbyConnect:           "LobbyConnect",
	OpLobbyDisconnect:        "LobbyDisconnect",
	OpLobbyVoiceStatesUpdate: "LobbyVoiceStatesUpdate",
	OpStreamCreate:           "StreamCreate",
	OpStreamDelete:           "StreamDelete",
	OpStreamWatch:            "StreamWatch",
	OpStreamPing:             "StreamPing",
	OpStreamSetPaused:        "StreamSetPaused",
}

// Known reports whether o is part of the opcode table.
func (o Opcode) Known() bool {
	return o >= OpDispatch && int(o) < len(opcodeNames)
}

func (o Opcode) String() string {
	if !o.Known() {
		return "Opcode(" + strconv.Itoa(int(o)) + ")"
	}

	return opcodeNames[o]
}
