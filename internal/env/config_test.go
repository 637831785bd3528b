package env_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zapcore"

	"github.com/luma/aurora/internal/env"
)

var _ = Describe("env", func() {
	Describe("LoadConfig()", func() {
		vars := map[string]string{
			"AURORA_TOKEN":        "secret",
			"AURORA_GATEWAY_HOST": "gateway.test",
			"AURORA_INTENTS":      "GUILDS,GUILD_MESSAGES",
			"AURORA_COMPRESS":     "true",
		}

		BeforeEach(func() {
			for k, v := range vars {
				Expect(os.Setenv(k, v)).To(Succeed())
			}
		})

		AfterEach(func() {
			for k := range vars {
				Expect(os.Unsetenv(k)).To(Succeed())
			}
		})

		It("reads the environment and fills in defaults", func() {
			conf, err := env.LoadConfig(context.Background())
			Expect(err).To(Succeed())

			Expect(conf.Token).To(Equal("secret"))
			Expect(conf.GatewayHost).To(Equal("gateway.test"))
			Expect(conf.GatewayPort).To(Equal("443"))
			Expect(conf.Intents).To(Equal("GUILDS,GUILD_MESSAGES"))
			Expect(conf.Compress).To(BeTrue())
			Expect(conf.APIVersion).To(Equal(10))
			Expect(conf.LogLevel).To(Equal("info"))
		})
	})

	Describe("MakeLogger()", func() {
		It("builds a logger at the requested level", func() {
			log, err := env.MakeLogger("warn")
			Expect(err).To(Succeed())
			Expect(log.Core().Enabled(zapcore.WarnLevel)).To(BeTrue())
			Expect(log.Core().Enabled(zapcore.InfoLevel)).To(BeFalse())
		})

		It("defaults to info", func() {
			log, err := env.MakeLogger("")
			Expect(err).To(Succeed())
			Expect(log.Core().Enabled(zapcore.InfoLevel)).To(BeTrue())
			Expect(log.Core().Enabled(zapcore.DebugLevel)).To(BeFalse())
		})

		It("rejects unknown levels", func() {
			_, err := env.MakeLogger("loud")
			Expect(err).To(HaveOccurred())
		})
	})
})
