package cmd

import (
	"errors"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	reuseport "github.com/kavu/go_reuseport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/luma/aurora/gateway"
	"github.com/luma/aurora/storage"
)

// newStatusRouter serves what a session publishes: its snapshot from the
// store and its metrics.
func newStatusRouter(debugHTTP bool, store storage.Store, metrics *gateway.Metrics, log *zap.Logger) *gin.Engine {
	router := setupRouter(debugHTTP, log)

	// Ping test
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	router.GET("/session", func(c *gin.Context) {
		snapshot, err := store.Backup()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", snapshot)
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	return router
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add a ginzap middleware, which:
	//   - Logs all requests, like a combined access and error log.
	//   - RFC3339 with UTC time format.
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping", "/metrics"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}

// serveStatus serves server on a SO_REUSEPORT listener in the background.
func serveStatus(server *http.Server, log *zap.Logger) error {
	listener, err := reuseport.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}

	// Serving in a goroutine so that it won't block the graceful shutdown
	// handling in the caller
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Http server errored", zap.Error(err))
		}
	}()

	return nil
}
