package protocol_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/aurora/protocol"
)

var _ = Describe("Intent", func() {
	It("uses bit positions 0 to 14", func() {
		Expect(protocol.IntentGuilds).To(Equal(protocol.Intent(1)))
		Expect(protocol.IntentGuildPresences).To(Equal(protocol.Intent(1 << 8)))
		Expect(protocol.IntentDirectMessageTyping).To(Equal(protocol.Intent(1 << 14)))
		Expect(protocol.IntentAll).To(Equal(protocol.Intent(0x7fff)))
	})

	Describe("ParseIntents()", func() {
		It("parses a comma separated list of names", func() {
			intents, err := protocol.ParseIntents("guilds, GUILD_MESSAGES")
			Expect(err).To(Succeed())
			Expect(intents).To(Equal(protocol.IntentGuilds | protocol.IntentGuildMessages))
		})

		It("parses ALL and the empty string", func() {
			Expect(protocol.ParseIntents("ALL")).To(Equal(protocol.IntentAll))
			Expect(protocol.ParseIntents("")).To(Equal(protocol.IntentNone))
		})

		It("returns an error for unknown names", func() {
			_, err := protocol.ParseIntents("GUILDS,EVERYTHING")
			Expect(errors.Is(err, protocol.ErrUnknownIntent)).To(BeTrue())
		})
	})

	It("renders the names ParseIntents accepts", func() {
		intents := protocol.IntentGuilds | protocol.IntentDirectMessages
		Expect(intents.String()).To(Equal("GUILDS,DIRECT_MESSAGES"))

		parsed, err := protocol.ParseIntents(intents.String())
		Expect(err).To(Succeed())
		Expect(parsed).To(Equal(intents))
	})
})
