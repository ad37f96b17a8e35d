package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xraph/itemcast/dataset"
	"github.com/xraph/itemcast/harness"
	"github.com/xraph/itemcast/series"
)

var errDiverged = errors.New("serial and distributed runs diverge")

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [dataset]",
		Short: "Forecast a dataset serially and through the engine, then reconcile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Dataset.Path = args[0]
			}
			if cfg.Dataset.Path == "" {
				return errors.New("no dataset given")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runForecast(ctx, cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("fail-fast", false, "stop both runs at the first failed item")
	cmd.Flags().StringP("output", "o", "", "write predictions to a .csv or .xlsx file")
	cmd.Flags().String("sheet", "", "workbook sheet to read")
	return cmd
}

func runForecast(ctx context.Context, cfg config, w io.Writer) (err error) {
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}

	ds, err := dataset.Load(cfg.Dataset.Path,
		dataset.WithColumns(cfg.Dataset.Columns),
		dataset.WithSheet(cfg.Dataset.Sheet),
		dataset.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	tel, err := setupTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, tel.Close(context.WithoutCancel(ctx)))
	}()

	// The serial run and the engine's forecast task share one policy.
	policy, err := newPolicy(cfg, logger)
	if err != nil {
		return err
	}
	eng, release, err := newEngine(ctx, cfg, policy, tel, logger)
	if err != nil {
		return err
	}
	if err := eng.Open(ctx); err != nil {
		return errors.Join(err, release())
	}
	defer closeEngine(eng, release, logger)

	opts := []harness.Option{harness.WithLogger(logger)}
	if cfg.FailFast {
		opts = append(opts, harness.WithFailFast())
	}

	out, err := harness.Run(ctx, ds, policy, eng, opts...)
	if err != nil {
		return err
	}

	printDiagnostics(w, out.Serial)
	printVerdict(w, out)

	if cfg.Dataset.Output != "" {
		if err := writePredictions(cfg.Dataset.Output, out.Serial.Predictions.Canonical()); err != nil {
			return err
		}
		logger.Info("predictions written", slog.String("path", cfg.Dataset.Output))
	}
	if !out.Consistent() {
		return errDiverged
	}
	return nil
}

func writePredictions(path string, t series.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return dataset.WriteXLSX(f, t)
	}
	return dataset.WriteCSV(f, t)
}
