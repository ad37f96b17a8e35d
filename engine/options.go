package engine

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/backoff"
	"github.com/xraph/itemcast/codec"
	"github.com/xraph/itemcast/ext"
	mw "github.com/xraph/itemcast/middleware"
	"github.com/xraph/itemcast/queue"
)

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the engine configuration.
func WithConfig(cfg itemcast.Config) Option {
	return func(eng *Engine) { eng.cfg = cfg }
}

// WithConcurrency sets the number of local worker goroutines. Zero runs no
// local workers; tasks are then executed only by other processes sharing
// the store.
func WithConcurrency(n int) Option {
	return func(eng *Engine) { eng.cfg.Concurrency = n }
}

// WithQueue sets the queue tasks are submitted to and polled from.
func WithQueue(name string) Option {
	return func(eng *Engine) { eng.cfg.Queue = name }
}

// WithPollInterval sets how often idle workers and Collect poll the store.
func WithPollInterval(d time.Duration) Option {
	return func(eng *Engine) {
		eng.cfg.PollInterval = d
		eng.cfg.CollectInterval = d
	}
}

// WithCodec sets the task payload codec. Submitters and workers must agree.
func WithCodec(c codec.Codec) Option {
	return func(eng *Engine) {
		if c != nil {
			eng.codec = c
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithExtension registers a lifecycle extension.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.exts = append(eng.exts, e) }
}

// WithMiddleware appends middleware after the built-in chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithBackoff sets the retry delay strategy. The default is
// backoff.DefaultStrategy.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.bo = b }
}

// WithQueueConfig sets per-queue concurrency and rate limits for the local
// pool.
func WithQueueConfig(configs ...queue.Config) Option {
	return func(eng *Engine) { eng.queueConfigs = append(eng.queueConfigs, configs...) }
}

// WithTracerProvider sets the OTel tracer provider used by the tracing
// middleware. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets the OTel meter provider used by the metrics
// middleware and the metrics extension. The global provider is used
// otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}
