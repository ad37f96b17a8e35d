package itemcast

import (
	"fmt"
	"time"
)

// ForecastConfig holds the fixed parameters of the per-item forecasting
// policy.
type ForecastConfig struct {
	// Horizon is the number of future months predicted per item.
	Horizon int `yaml:"horizon" split_words:"true"`

	// Folds is the number of expanding-window cross-validation folds used
	// to rank candidate models.
	Folds int `yaml:"folds" split_words:"true"`

	// SeasonalPeriod fixes the seasonal period. Zero lets the model search
	// infer it from the series.
	SeasonalPeriod int `yaml:"seasonal_period" split_words:"true"`

	// Seed makes the model search reproducible.
	Seed uint64 `yaml:"seed" split_words:"true"`

	// Family restricts the model search to a single model family.
	Family string `yaml:"family" split_words:"true"`

	// SufficiencyFactor times Horizon is the largest history length that
	// still takes the constant-mean fallback.
	SufficiencyFactor int `yaml:"sufficiency_factor" split_words:"true"`
}

// DefaultForecastConfig returns the forecasting parameters: a 12 month
// horizon, 3 folds, an inferred seasonal period, seed 42, the ARIMA family
// and a fallback for histories of at most 60 months.
func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{
		Horizon:           12,
		Folds:             3,
		SeasonalPeriod:    0,
		Seed:              42,
		Family:            "arima",
		SufficiencyFactor: 5,
	}
}

// MinModelHistory returns the smallest history length that is fitted with
// the model search. Shorter histories use the constant-mean fallback.
func (c ForecastConfig) MinModelHistory() int {
	return c.SufficiencyFactor*c.Horizon + 1
}

// Validate reports whether the configuration can drive a forecast.
func (c ForecastConfig) Validate() error {
	switch {
	case c.Horizon <= 0:
		return fmt.Errorf("%w: horizon must be positive, got %d", ErrInvalidSetting, c.Horizon)
	case c.Folds <= 0:
		return fmt.Errorf("%w: folds must be positive, got %d", ErrInvalidSetting, c.Folds)
	case c.SeasonalPeriod < 0 || c.SeasonalPeriod == 1:
		return fmt.Errorf("%w: seasonal period must be 0 or >= 2, got %d", ErrInvalidSetting, c.SeasonalPeriod)
	case c.SufficiencyFactor < 0:
		return fmt.Errorf("%w: sufficiency factor must not be negative, got %d", ErrInvalidSetting, c.SufficiencyFactor)
	case c.Family == "":
		return fmt.Errorf("%w: model family is required", ErrInvalidSetting)
	}
	return nil
}

// Config holds configuration for the dispatch engine.
type Config struct {
	// Concurrency is the number of tasks processed concurrently by the
	// local worker pool.
	Concurrency int `yaml:"concurrency" split_words:"true"`

	// Queue is the queue forecast tasks are submitted to and polled from.
	Queue string `yaml:"queue" split_words:"true"`

	// PollInterval is how often idle workers poll for new tasks.
	PollInterval time.Duration `yaml:"poll_interval" split_words:"true"`

	// CollectInterval is how often Collect checks submitted tasks for a
	// terminal state.
	CollectInterval time.Duration `yaml:"collect_interval" split_words:"true"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`

	// HeartbeatInterval is how often running tasks send heartbeats.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" split_words:"true"`

	// StaleTaskThreshold is how long before a running task without a
	// heartbeat is handed back to the queue.
	StaleTaskThreshold time.Duration `yaml:"stale_task_threshold" split_words:"true"`

	// TaskTimeout bounds a single task's execution. Zero means unlimited.
	TaskTimeout time.Duration `yaml:"task_timeout" split_words:"true"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:        4,
		Queue:              "forecast",
		PollInterval:       50 * time.Millisecond,
		CollectInterval:    25 * time.Millisecond,
		ShutdownTimeout:    30 * time.Second,
		HeartbeatInterval:  10 * time.Second,
		StaleTaskThreshold: 60 * time.Second,
		TaskTimeout:        10 * time.Minute,
	}
}
