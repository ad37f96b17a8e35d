package forecast

import (
	"log/slog"

	"github.com/xraph/itemcast"
)

// Option configures a Policy.
type Option func(*Policy)

// WithConfig replaces the forecasting parameters.
func WithConfig(cfg itemcast.ForecastConfig) Option {
	return func(p *Policy) { p.cfg = cfg }
}

// WithHorizon sets the number of months predicted per item.
func WithHorizon(h int) Option {
	return func(p *Policy) { p.cfg.Horizon = h }
}

// WithSeed sets the model search seed.
func WithSeed(seed uint64) Option {
	return func(p *Policy) { p.cfg.Seed = seed }
}

// WithFamily restricts the model search to the named family.
func WithFamily(family string) Option {
	return func(p *Policy) { p.cfg.Family = family }
}

// WithLogger sets the policy's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Policy) { p.logger = l }
}
