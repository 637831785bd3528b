package env

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Token       string `env:"AURORA_TOKEN"`
	GatewayHost string `env:"AURORA_GATEWAY_HOST,default=gateway.discord.gg"`
	GatewayPort string `env:"AURORA_GATEWAY_PORT,default=443"`
	APIVersion  int    `env:"AURORA_API_VERSION,default=10"`

	// Comma separated intent names, or ALL
	Intents  string `env:"AURORA_INTENTS"`
	Compress bool   `env:"AURORA_COMPRESS"`

	LogLevel  string `env:"AURORA_LOG_LEVEL,default=info"`
	HTTPAddr  string `env:"AURORA_HTTP_ADDR,default=127.0.0.1:7362"`
	DebugHTTP bool   `env:"AURORA_DEBUG_HTTP"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
