package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xraph/itemcast/harness"
	"github.com/xraph/itemcast/series"
)

func TestRunForecast(t *testing.T) {
	dir := t.TempDir()
	var in strings.Builder
	in.WriteString("Item,YYYYMM,Sales\n")
	for i := range 24 {
		fmt.Fprintf(&in, "A,%d%02d,%d\n", 2022+i/12, i%12+1, 5+i%3)
		fmt.Fprintf(&in, "B,%d%02d,%d\n", 2022+i/12, i%12+1, 10)
	}
	src := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(src, []byte(in.String()), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	cfg := defaultConfig()
	cfg.Log.Level = "error"
	cfg.Dataset.Path = src
	cfg.Dataset.Output = filepath.Join(dir, "predictions.csv")

	var out bytes.Buffer
	if err := runForecast(context.Background(), cfg, &out); err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "MATCH") || strings.Contains(out.String(), "MISMATCH") {
		t.Fatalf("expected a match verdict, got:\n%s", out.String())
	}

	written, err := os.ReadFile(cfg.Dataset.Output)
	if err != nil {
		t.Fatalf("read predictions: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(written)), "\n")
	if len(lines) != 1+2*12 || lines[0] != "Item,YYYYMM,y_pred" {
		t.Fatalf("unexpected predictions file:\n%s", written)
	}
	if lines[1] != "A,202401,6" || lines[13] != "B,202401,10" {
		t.Fatalf("unexpected rows %q, %q", lines[1], lines[13])
	}
}

func TestNewEngine_RegistersGivenPolicy(t *testing.T) {
	ctx := context.Background()
	cfg := defaultConfig()
	cfg.Log.Level = "error"
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}

	// The policy differs from cfg.Forecast, so a task built from cfg would
	// forecast the configured twelve months instead of three.
	pcfg := cfg
	pcfg.Forecast.Horizon = 3
	policy, err := newPolicy(pcfg, logger)
	if err != nil {
		t.Fatalf("newPolicy: %v", err)
	}

	eng, release, err := newEngine(ctx, cfg, policy, &telemetry{}, logger)
	if err != nil {
		t.Fatalf("newEngine: %v", err)
	}
	if err := eng.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeEngine(eng, release, logger)

	var ds series.Dataset
	start := series.MustParseMonth("202201")
	for i := range 24 {
		ds = append(ds, series.Record{Item: "A", Month: start.Add(i), Value: 10})
	}
	res, err := harness.RunDistributed(ctx, ds, eng)
	if err != nil {
		t.Fatalf("RunDistributed: %v", err)
	}
	if len(res.Failures) != 0 || len(res.Predictions) != 3 {
		t.Fatalf("expected 3 predictions from the given policy, got %d (failures %v)", len(res.Predictions), res.Failures)
	}
}
