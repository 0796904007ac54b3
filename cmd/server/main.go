package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/streamchat/internal/app"
	"github.com/vovakirdan/streamchat/internal/config"
	"github.com/vovakirdan/streamchat/internal/ipc"
	applog "github.com/vovakirdan/streamchat/internal/log"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the supervisor, its worker pool and the room lookup server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	root := &cobra.Command{
		Use:          "streamchat",
		Short:        "Live-stream chat rooms",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	worker := &cobra.Command{
		Use:    "worker",
		Short:  "Run one worker; spawned by serve",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), flags)
		},
	}

	root.AddCommand(serve, worker)
	return root
}

func loadConfig(flags *rootFlags) (config.Config, string, error) {
	bootstrap := applog.New(flags.logLevel)
	cfg, path, err := config.Load(bootstrap, flags.configPath)
	if err != nil {
		return cfg, path, fmt.Errorf("load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, path, nil
}

func runServe(ctx context.Context, flags *rootFlags) error {
	cfg, path, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := applog.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, path, logger)
	if err != nil {
		return err
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("workers", cfg.WorkerCount()).
		Int("base_port", cfg.WorkerBasePort).
		Str("config", path).
		Msg("starting streamchat")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func runWorker(ctx context.Context, flags *rootFlags) error {
	cfg, _, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := applog.Component(applog.New(cfg.LogLevel), "worker")

	// The supervisor stops workers by closing the control link; signals
	// sent to the process group are left to it.
	signal.Ignore(os.Interrupt)

	link, err := ipc.ChildLink()
	if err != nil {
		return err
	}
	worker, err := app.NewWorker(cfg, link, logger)
	if err != nil {
		return err
	}
	if err := worker.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("worker exited with error")
		return err
	}
	return nil
}
