// Command itemcast forecasts every item of a monthly sales dataset twice,
// serially and through the task-dispatch engine, and checks that both runs
// agree.
//
//	itemcast run --config itemcast.yaml data/sample_data.csv
//	itemcast worker --redis-addr redis:6379
//	itemcast worker --backend postgres --postgres-dsn postgres://localhost/itemcast
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "itemcast",
		Short:         "Per-item monthly sales forecasting with serial/distributed reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("backend", "", "task backend (memory, redis, postgres, bun)")
	root.PersistentFlags().String("redis-addr", "", "redis address")
	root.PersistentFlags().String("postgres-dsn", "", "postgres connection URL")
	root.PersistentFlags().Int("concurrency", 0, "local worker count")
	root.PersistentFlags().Bool("traces", false, "write spans to stderr")
	root.PersistentFlags().String("metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(newRunCmd(), newWorkerCmd())
	return root
}

// resolveConfig loads the config file and environment, then applies any
// flag the user set.
func resolveConfig(cmd *cobra.Command) (config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := loadConfig(path)
	if err != nil {
		return cfg, err
	}

	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("backend") {
		cfg.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("redis-addr") {
		cfg.Redis.Addr, _ = flags.GetString("redis-addr")
	}
	if flags.Changed("postgres-dsn") {
		cfg.Postgres.DSN, _ = flags.GetString("postgres-dsn")
	}
	if flags.Changed("concurrency") {
		cfg.Engine.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("traces") {
		cfg.Telemetry.Traces, _ = flags.GetBool("traces")
	}
	if flags.Changed("metrics-addr") {
		cfg.Telemetry.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Lookup("fail-fast") != nil && flags.Changed("fail-fast") {
		cfg.FailFast, _ = flags.GetBool("fail-fast")
	}
	if flags.Lookup("output") != nil && flags.Changed("output") {
		cfg.Dataset.Output, _ = flags.GetString("output")
	}
	if flags.Lookup("sheet") != nil && flags.Changed("sheet") {
		cfg.Dataset.Sheet, _ = flags.GetString("sheet")
	}

	return cfg, cfg.validate()
}
