// Package app wires the supervisor process and the worker processes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/streamchat/internal/config"
	applog "github.com/vovakirdan/streamchat/internal/log"
	"github.com/vovakirdan/streamchat/internal/router"
	"github.com/vovakirdan/streamchat/internal/supervisor"
	transporthttp "github.com/vovakirdan/streamchat/internal/transport/http"
)

// App is the supervisor process: the worker pool, the room router and
// the lookup server.
type App struct {
	server          *stdhttp.Server
	router          *router.Router
	supervisor      *supervisor.Supervisor
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the supervisor. Workers are spawned from the running
// binary and read the same config file.
func New(cfg config.Config, configPath string, logger *zerolog.Logger) (*App, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	rt := router.New(clock.New(), cfg.IdleGrace, applog.Component(logger, "router"))

	spawner := &supervisor.ExecSpawner{
		Path:   exe,
		Args:   []string{"worker", "--config", configPath, "--log-level", cfg.LogLevel},
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	sup := supervisor.New(spawner, rt, clock.New(), supervisor.Options{
		BasePort:      cfg.WorkerBasePort,
		Workers:       cfg.WorkerCount(),
		StatsInterval: cfg.StatsInterval,
		RespawnDelay:  cfg.RespawnDelay,
		StopTimeout:   cfg.ShutdownTimeout,
	}, applog.Component(logger, "supervisor"))

	server, err := transporthttp.NewLookupServer(rt, cfg, applog.Component(logger, "lookup"))
	if err != nil {
		return nil, fmt.Errorf("init lookup server: %w", err)
	}

	return &App{
		server:          server,
		router:          rt,
		supervisor:      sup,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}, nil
}

// Run starts the worker pool and the lookup server and blocks until ctx
// is cancelled or either of them fails.
func (a *App) Run(ctx context.Context) error {
	a.log.Info().Str("addr", a.server.Addr).Msg("starting lookup server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.supervisor.Run(gctx)
	})
	g.Go(func() error {
		return serve(gctx, a.server, nil, a.shutdownTimeout, a.log)
	})
	return g.Wait()
}

// serve runs server until ctx is done, then shuts it down gracefully.
// A nil listener makes the server listen on its own Addr.
func serve(ctx context.Context, server *stdhttp.Server, ln net.Listener, shutdownTimeout time.Duration, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		var err error
		if ln != nil {
			err = server.Serve(ln)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info().Msg("shutting down http server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
