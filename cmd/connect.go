package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/aurora/gateway"
	"github.com/luma/aurora/internal/env"
	"github.com/luma/aurora/internal/meta"
	"github.com/luma/aurora/protocol"
	"github.com/luma/aurora/storage"
	"github.com/luma/aurora/transport"
)

const defaultIntents = "GUILDS,GUILD_MESSAGES"

var errMissingToken = errors.New("a bot token is required, set AURORA_TOKEN or pass --token")

var (
	// The gateway to connect to
	gatewayHost string
	gatewayPort string

	token      string
	intents    string
	compress   bool
	apiVersion int

	// The address the status server listens on
	httpAddr string

	logLevel string
)

func init() {
	flags := ConnectCmd.PersistentFlags()

	flags.StringVarP(&gatewayHost, "host", "a", gateway.DefaultHost, "The gateway host to connect to")
	flags.StringVarP(&gatewayPort, "port", "p", gateway.DefaultPort, "The gateway port to connect to")
	flags.StringVarP(&token, "token", "t", "", "The bot token to identify with")
	flags.StringVarP(&intents, "intents", "i", defaultIntents, "Comma separated intents to subscribe to, or ALL")
	flags.BoolVar(&compress, "compress", false, "Ask the gateway for a zlib-stream compressed connection")
	flags.IntVar(&apiVersion, "api-version", transport.DefaultAPIVersion, "The gateway API version")
	flags.StringVar(&httpAddr, "http-addr", "127.0.0.1:7362", "The address the status server listens on")
	flags.StringVar(&logLevel, "log-level", "info", "The log level (debug, info, warn, error)")
}

var ConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to the gateway and keep the session alive",
	Long: `Connect to the gateway and keep the session alive

Every flag can also be set through the environment (AURORA_TOKEN,
AURORA_GATEWAY_HOST, AURORA_INTENTS, ...) or a .env.local file. Flags win
over the environment.

The status server answers /ping, /session and /metrics.

Usage
	aurora connect --intents GUILDS,GUILD_MESSAGES

`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		conf, err := env.LoadConfig(ctx)
		if err != nil {
			return err
		}

		applyFlags(cmd, conf)

		log, err := env.MakeLogger(conf.LogLevel)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		if conf.Token == "" {
			return errMissingToken
		}

		if conf.Intents == "" {
			conf.Intents = defaultIntents
		}

		subscribed, err := protocol.ParseIntents(conf.Intents)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Terminal failures end the command, logic errors are only logged by
		// the session
		failures := make(chan error, 1)

		store := storage.NewInmemoryStore()
		metrics := gateway.NewMetrics()

		session, err := gateway.New(gateway.Options{
			Transport: transport.NewWebSocket(transport.Options{
				APIVersion: conf.APIVersion,
				Compress:   conf.Compress,
				UserAgent:  fmt.Sprintf("%s/%s", meta.Name, meta.Version),
				Log:        log.Named("transport"),
			}),
			Compress: conf.Compress,
			Intents:  subscribed,
			Handlers: gateway.Handlers{
				OnDispatch: func(ctx context.Context, event string, data gjson.Result) {
					log.Debug("Event", zap.String("event", event), zap.Int("size", len(data.Raw)))
				},
				OnFailure: func(err error) {
					var logicErr *gateway.LogicError
					if errors.As(err, &logicErr) {
						return
					}

					select {
					case failures <- err:
					default:
					}
					cancel()
				},
			},
			Store:   store,
			Metrics: metrics,
			Log:     log,
		})
		if err != nil {
			return err
		}

		server := &http.Server{
			Addr:    conf.HTTPAddr,
			Handler: newStatusRouter(conf.DebugHTTP, store, metrics, log.Named("http")),
		}

		if err := serveStatus(server, log); err != nil {
			return multierr.Append(err, session.Close())
		}

		go logUpdates(store.ListenToUpdates(), log.Named("store"))

		log.Info("Connecting",
			zap.String("version", meta.Version),
			zap.String("host", conf.GatewayHost),
			zap.String("port", conf.GatewayPort),
			zap.Stringer("intents", subscribed),
			zap.Bool("compress", conf.Compress),
			zap.String("httpAddr", conf.HTTPAddr))

		if err := session.Connect(ctx, conf.Token, conf.GatewayHost, conf.GatewayPort); err != nil {
			return multierr.Combine(err, shutdown(server, session, store))
		}

		// Wait for the interrupt signal or a terminal failure
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		err = shutdown(server, session, store)

		select {
		case failure := <-failures:
			err = multierr.Append(failure, err)
		default:
		}

		log.Info("Exiting")
		return err
	},
}

// applyFlags lets flags that were set explicitly override the environment.
func applyFlags(cmd *cobra.Command, conf *env.Config) {
	flags := cmd.Flags()

	if flags.Changed("host") || conf.GatewayHost == "" {
		conf.GatewayHost = gatewayHost
	}

	if flags.Changed("port") || conf.GatewayPort == "" {
		conf.GatewayPort = gatewayPort
	}

	if flags.Changed("token") {
		conf.Token = token
	}

	if flags.Changed("intents") {
		conf.Intents = intents
	}

	if flags.Changed("compress") {
		conf.Compress = compress
	}

	if flags.Changed("api-version") {
		conf.APIVersion = apiVersion
	}

	if flags.Changed("http-addr") {
		conf.HTTPAddr = httpAddr
	}

	if flags.Changed("log-level") {
		conf.LogLevel = logLevel
	}
}

func shutdown(server *http.Server, session *gateway.Session, store storage.Store) error {
	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server.SetKeepAlivesEnabled(false)

	return multierr.Combine(
		server.Shutdown(ctx),
		session.Close(),
		store.Close(),
	)
}

func logUpdates(updates <-chan *storage.Update, log *zap.Logger) {
	for update := range updates {
		log.Debug("Session updated",
			zap.ByteString("key", update.Key),
			zap.ByteString("value", update.Value))
	}
}
