package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a standalone worker draining forecast tasks from a shared store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("backend") && cfg.Backend == backendMemory {
				cfg.Backend = backendRedis
			}
			if cfg.Backend == backendMemory {
				return errors.New("worker requires a shared backend (redis, postgres or bun)")
			}
			if cfg.Engine.Concurrency <= 0 {
				return errors.New("worker requires a positive concurrency")
			}

			logger, err := newLogger(cfg.Log.Level)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tel, err := setupTelemetry(cfg.Telemetry, logger)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, tel.Close(context.WithoutCancel(ctx)))
			}()

			policy, err := newPolicy(cfg, logger)
			if err != nil {
				return err
			}
			eng, release, err := newEngine(ctx, cfg, policy, tel, logger)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, release())
			}()
			logger.Info("worker started",
				slog.String("backend", cfg.Backend),
				slog.String("queue", cfg.Engine.Queue),
				slog.Int("concurrency", cfg.Engine.Concurrency),
			)
			return eng.Run(ctx)
		},
	}
}
