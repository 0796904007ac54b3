package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/streamchat/internal/config"
	"github.com/vovakirdan/streamchat/internal/dispatch"
)

// NewLookupServer builds the supervisor's room lookup server.
func NewLookupServer(rt RoomRouter, cfg config.Config, logger *zerolog.Logger) (*stdhttp.Server, error) {
	handlers, err := NewLookupHandlers(rt, cfg.PolicyFile, logger)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", func(c *gin.Context) { c.String(stdhttp.StatusOK, "ok") })
	engine.GET("/crossdomain.xml", handlers.Policy)
	engine.GET("/stats", handlers.Stats)

	lookup := engine.Group("/", LookupHeadersMiddleware())
	lookup.GET("/", handlers.Lookup)
	lookup.GET("/create", handlers.Lookup)
	engine.NoRoute(LookupHeadersMiddleware(), handlers.Lookup)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}, nil
}

// NewWorkerServer builds a worker's realtime server. Every path except
// /health upgrades to a websocket.
func NewWorkerServer(d *dispatch.Dispatcher, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/", NewWSHandler(d, cfg.FrameRateLimit, logger))

	return &stdhttp.Server{
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	_, _ = fmt.Fprint(w, "ok")
}
