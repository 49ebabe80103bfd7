// Package api is the HTTP transport for rooms: a JSON action API plus SSE and
// WebSocket streams of room events, the feedback inbox and a health probe.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/zulandar/estimaite/internal/feedback"
	"github.com/zulandar/estimaite/internal/notify"
	"github.com/zulandar/estimaite/internal/room"
)

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultHeartbeat       = 15 * time.Second
	subscriberBuffer       = 32
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Rooms    *room.Service
	Hub      *notify.Hub
	Feedback *feedback.Service

	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	// Heartbeat is the SSE heartbeat and WebSocket ping interval.
	Heartbeat time.Duration
	// CreateLimit throttles room creation and feedback per client IP.
	CreateLimit RateLimit
	Logger      zerolog.Logger
}

func (o *StartOpts) applyDefaults() {
	if o.Addr == "" {
		o.Addr = defaultAddr
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = defaultHeartbeat
	}
	if len(o.AllowedOrigins) == 0 {
		o.AllowedOrigins = []string{"*"}
	}
}

func (o StartOpts) validate() error {
	if o.Rooms == nil {
		return fmt.Errorf("api: room service is required")
	}
	if o.Hub == nil {
		return fmt.Errorf("api: hub is required")
	}
	return nil
}

// NewRouter builds the gin engine with every route registered. The feedback
// routes are omitted when opts.Feedback is nil.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	router, _, err := newRouter(opts)
	return router, err
}

func newRouter(opts StartOpts) (*gin.Engine, *handler, error) {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(opts.Logger))
	router.Use(corsMiddleware(opts.AllowedOrigins))

	h := newHandler(opts)
	registerRoutes(router, h)
	return router, h, nil
}

// Start launches the API server. It blocks until ctx is cancelled, then shuts
// down gracefully within opts.ShutdownTimeout.
func Start(ctx context.Context, opts StartOpts) error {
	gin.SetMode(gin.ReleaseMode)
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("api: listen: %w", err)
	}
	return serve(ctx, ln, opts)
}

// serve runs the server on ln until ctx is cancelled. Open event streams are
// told to end when shutdown begins, so they do not hold it up.
func serve(ctx context.Context, ln net.Listener, opts StartOpts) error {
	opts.applyDefaults()
	router, h, err := newRouter(opts)
	if err != nil {
		ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(h.endStreams)

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	opts.Logger.Info().Str("addr", ln.Addr().String()).Msg("api listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: %w", err)
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	opts.Logger.Info().Msg("api stopped")
	return nil
}
