package recgo

import (
	"log/slog"

	"github.com/tracknova/recgo/blobstore"
	"github.com/tracknova/recgo/recommend"
	"github.com/tracknova/recgo/registry"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	store            blobstore.Store
	candidates       recommend.CandidateSource
	registryObserver registry.MetricsObserver
}

// Option configures Engine constructor behavior.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := recgo.NewJSONLogger(slog.LevelInfo)
//	eng, _ := recgo.New(cfg, recgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &recgo.BasicMetricsCollector{}
//	eng, _ := recgo.New(cfg, recgo.WithMetricsCollector(metrics))
//	// ... use eng ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithStore overrides the bundle store derived from the configuration.
// Useful for tests (blobstore.MemoryStore) and custom backends.
func WithStore(s blobstore.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithCandidateSource configures the collaborator backing the artist-
// and genre-based strategies. Without one, those strategies are
// rejected.
func WithCandidateSource(cs recommend.CandidateSource) Option {
	return func(o *options) {
		o.candidates = cs
	}
}

// WithRegistryObserver configures an observer for model lifecycle
// events (loads, evictions).
func WithRegistryObserver(obs registry.MetricsObserver) Option {
	return func(o *options) {
		o.registryObserver = obs
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
