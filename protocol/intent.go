package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownIntent = errors.New("Unknown intent could not be parsed")

// Intent is a bitmask of gateway event categories the client subscribes to.
type Intent uint16

const (
	IntentGuilds Intent = 1 << iota
	IntentGuildMembers
	IntentGuildBans
	IntentGuildEmojis
	IntentGuildIntegrations
	IntentGuildWebhooks
	IntentGuildInvites
	IntentGuildVoiceStates
	IntentGuildPresences
	IntentGuildMessages
	IntentGuildMessageReactions
	IntentGuildMessageTyping
	IntentDirectMessages
	IntentDirectMessageReactions
	IntentDirectMessageTyping

	IntentNone Intent = 0
	IntentAll  Intent = IntentDirectMessageTyping<<1 - 1
)

var intentNames = []struct {
	intent Intent
	name   string
}{
	{IntentGuilds, "GUILDS"},
	{IntentGuildMembers, "GUILD_MEMBERS"},
	{IntentGuildBans, "GUILD_BANS"},
	{IntentGuildEmojis, "GUILD_EMOJIS"},
	{IntentGuildIntegrations, "GUILD_INTEGRATIONS"},
	{IntentGuildWebhooks, "GUILD_WEBHOOKS"},
	{IntentGuildInvites, "GUILD_INVITES"},
	{IntentGuildVoiceStates, "GUILD_VOICE_STATES"},
	{IntentGuildPresences, "GUILD_PRESENCES"},
	{IntentGuildMessages, "GUILD_MESSAGES"},
	{IntentGuildMessageReactions, "GUILD_MESSAGE_REACTIONS"},
	{IntentGuildMessageTyping, "GUILD_MESSAGE_TYPING"},
	{IntentDirectMessages, "DIRECT_MESSAGES"},
	{IntentDirectMessageReactions, "DIRECT_MESSAGE_REACTIONS"},
	{IntentDirectMessageTyping, "DIRECT_MESSAGE_TYPING"},
}

// Has reports whether every bit of other is set in i.
func (i Intent) Has(other Intent) bool {
	return i&other == other
}

// String renders the set bits as a comma separated list of intent names, the
// format ParseIntents accepts.
func (i Intent) String() string {
	if i == IntentNone {
		return ""
	}

	names := make([]string, 0, len(intentNames))
	for _, n := range intentNames {
		if i.Has(n.intent) {
			names = append(names, n.name)
		}
	}

	return strings.Join(names, ",")
}

// ParseIntents parses a comma separated list of intent names such as
// "GUILDS,GUILD_MESSAGES". Names are case insensitive, "ALL" selects every
// intent and an empty string selects none.
func ParseIntents(s string) (Intent, error) {
	var intents Intent

	for _, raw := range strings.Split(s, ",") {
		name := strings.ToUpper(strings.TrimSpace(raw))
		if name == "" {
			continue
		}

		if name == "ALL" {
			intents |= IntentAll
			continue
		}

		found := false
		for _, n := range intentNames {
			if n.name == name {
				intents |= n.intent
				found = true
				break
			}
		}

		if !found {
			return IntentNone, fmt.Errorf("Failed to parse '%s': %w", raw, ErrUnknownIntent)
		}
	}

	return intents, nil
}
