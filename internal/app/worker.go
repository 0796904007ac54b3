package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/streamchat/internal/config"
	"github.com/vovakirdan/streamchat/internal/core"
	"github.com/vovakirdan/streamchat/internal/dispatch"
	"github.com/vovakirdan/streamchat/internal/ipc"
	applog "github.com/vovakirdan/streamchat/internal/log"
	"github.com/vovakirdan/streamchat/internal/tipengine/site"
	transporthttp "github.com/vovakirdan/streamchat/internal/transport/http"
)

// Worker is one worker process: a room registry behind a websocket
// server, driven by the supervisor over its control link.
type Worker struct {
	link            *ipc.Link
	registry        *core.Registry
	server          *stdhttp.Server
	keepAlive       time.Duration
	shutdownTimeout time.Duration
	log             *zerolog.Logger

	// listening is closed once the server accepted its port.
	addr      net.Addr
	listening chan struct{}
}

// NewWorker constructs a worker around the control link inherited from
// the supervisor.
func NewWorker(cfg config.Config, link *ipc.Link, logger *zerolog.Logger) (*Worker, error) {
	tips, err := site.New(cfg.Tip.SiteURL, cfg.Tip.BalancePath, cfg.Tip.SendPath, cfg.Tip.Timeout)
	if err != nil {
		return nil, fmt.Errorf("init tip engine: %w", err)
	}

	registry := core.NewRegistry(core.Options{
		Salt:             cfg.Salt,
		MaxMessageLength: cfg.MaxMessageLength,
		DiffInterval:     cfg.DiffInterval,
		ReapInterval:     cfg.ReapInterval,
		TipTimeout:       cfg.Tip.Timeout,
	}, clock.New(), tips, applog.Component(logger, "registry"))

	dispatcher := dispatch.New(registry.Actions(), registry, applog.Component(logger, "dispatch"))

	return &Worker{
		link:            link,
		registry:        registry,
		server:          transporthttp.NewWorkerServer(dispatcher, cfg, applog.Component(logger, "ws")),
		keepAlive:       cfg.KeepAlive,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
		listening:       make(chan struct{}),
	}, nil
}

// Run serves until ctx is cancelled or the supervisor goes away.
func (w *Worker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.registry.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return w.control(gctx, g)
	})
	return g.Wait()
}

// control handles supervisor messages. A closed link ends the worker.
func (w *Worker) control(ctx context.Context, g *errgroup.Group) error {
	msgs := make(chan ipc.Message)
	linkErr := make(chan error, 1)
	// Receive cannot be interrupted; the reader is abandoned on shutdown.
	go func() {
		for {
			msg, err := w.link.Receive()
			if err != nil {
				linkErr <- err
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-linkErr:
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				w.log.Info().Msg("control link closed, exiting")
				return nil
			}
			return fmt.Errorf("control link: %w", err)
		case msg := <-msgs:
			if err := w.handleControl(ctx, g, msg); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) handleControl(ctx context.Context, g *errgroup.Group, msg ipc.Message) error {
	switch msg.Event {
	case ipc.EventInitWorker:
		if w.addr != nil {
			w.log.Warn().Int("port", msg.Port).Msg("already listening, init-worker ignored")
			return nil
		}
		lc := net.ListenConfig{KeepAlive: w.keepAlive}
		ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", msg.Port))
		if err != nil {
			return fmt.Errorf("listen on port %d: %w", msg.Port, err)
		}
		w.addr = ln.Addr()
		close(w.listening)
		g.Go(func() error {
			return serve(ctx, w.server, ln, w.shutdownTimeout, w.log)
		})
		w.log.Info().Str("addr", w.addr.String()).Msg("worker listening")
		return w.link.Send(ipc.WorkerListening())
	case ipc.EventRequestStatistics:
		stats, err := w.registry.Stats(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("collect statistics: %w", err)
		}
		return w.link.Send(ipc.RespondStatistics(stats))
	default:
		w.log.Debug().Str("event", msg.Event).Msg("unknown control event")
		return nil
	}
}

// Addr returns the listener address once the worker is listening.
func (w *Worker) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-w.listening:
		return w.addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
