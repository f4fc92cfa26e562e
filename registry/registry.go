// Package registry loads and caches model artifacts by name.
//
// Loading is lazy and single-flight: concurrent callers requesting the
// same unloaded name observe exactly one underlying load. Loaded models
// are immutable and retained for process lifetime unless an optional LRU
// cap is configured. The registry also owns the per-kind active pointer
// used to resolve default models, swapped atomically so that in-flight
// requests holding the previous artifact finish unaffected.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/simindex"
)

// Status describes the lifecycle state of a named model.
type Status int

const (
	StatusUnloaded Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnloaded:
		return "unloaded"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Model is a loaded artifact together with its similarity index. The
// index is built once at load time so request handling never rebuilds
// cluster bitmaps.
type Model struct {
	Art   *artifact.Artifact
	Index *simindex.Index
}

// Loader resolves a model name into a loaded Model. Implementations
// must return a *LoadError (or wrap one) on failure.
type Loader func(ctx context.Context, name string) (*Model, error)

// ErrUnknownModel is returned for names absent from the configured
// model sources.
var ErrUnknownModel = errors.New("unknown model")

// LoadError indicates a bundle that is missing, corrupt, or
// shape-inconsistent. The cause is available via errors.Unwrap.
type LoadError struct {
	Name  string
	cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Name, e.cause)
}

func (e *LoadError) Unwrap() error { return e.cause }

// NewLoadError wraps a cause into the registry's load failure type.
func NewLoadError(name string, cause error) *LoadError {
	return &LoadError{Name: name, cause: cause}
}

// MetricsObserver defines the interface for observing registry events.
type MetricsObserver interface {
	// OnLoad is called when a load attempt completes.
	OnLoad(name string, duration time.Duration, rows int, err error)
	// OnEvict is called when a model is evicted by the LRU cap.
	OnEvict(name string)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnLoad(string, time.Duration, int, error) {}
func (NoopMetricsObserver) OnEvict(string)                          {}

// Options contains configuration options for the registry.
type Options struct {
	// Logger receives load lifecycle logs. Nil disables logging.
	Logger *slog.Logger
	// Observer receives registry events. Nil disables observation.
	Observer MetricsObserver
	// MaxLoaded caps resident models; least-recently-used non-active
	// models are evicted beyond it. Zero disables eviction.
	MaxLoaded int
	// MaxConcurrentLoads bounds parallel bundle loads (deserialization
	// is memory-hungry). Zero or negative means 2.
	MaxConcurrentLoads int64
	// RetryInterval throttles reload attempts of a failed model. Calls
	// inside the window get the recorded failure without a new attempt.
	// Zero means 5s.
	RetryInterval time.Duration
}

type entry struct {
	model    *Model
	status   Status
	err      error
	retry    *rate.Limiter // non-nil once failed
	lastUsed time.Time
}

// Registry caches loaded models and resolves per-kind defaults.
// Safe for concurrent use.
type Registry struct {
	loader   Loader
	logger   *slog.Logger
	observer MetricsObserver
	opts     Options

	sf      singleflight.Group
	loadSem *semaphore.Weighted

	mu      sync.Mutex
	entries map[string]*entry

	activeAudio  atomic.Pointer[Model]
	activeLyrics atomic.Pointer[Model]
}

// New creates a registry around the given loader.
func New(loader Loader, optFns ...func(o *Options)) *Registry {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Observer == nil {
		opts.Observer = NoopMetricsObserver{}
	}
	if opts.MaxConcurrentLoads <= 0 {
		opts.MaxConcurrentLoads = 2
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 5 * time.Second
	}

	return &Registry{
		loader:   loader,
		logger:   opts.Logger,
		observer: opts.Observer,
		opts:     opts,
		loadSem:  semaphore.NewWeighted(opts.MaxConcurrentLoads),
		entries:  make(map[string]*entry),
	}
}

// Get returns the named model, loading it on first use.
//
// Failures are not cached as fatal: once the retry window passes, a
// later Get attempts a fresh load.
func (r *Registry) Get(ctx context.Context, name string) (*Model, error) {
	r.mu.Lock()
	if e, ok := r.entries[name]; ok {
		switch e.status {
		case StatusReady:
			e.lastUsed = time.Now()
			m := e.model
			r.mu.Unlock()
			return m, nil
		case StatusFailed:
			if !e.retry.Allow() {
				err := e.err
				r.mu.Unlock()
				return nil, err
			}
			// Window elapsed; fall through to a fresh load attempt.
		}
	}
	r.mu.Unlock()

	v, err, _ := r.sf.Do(name, func() (any, error) {
		return r.load(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Model), nil
}

func (r *Registry) load(ctx context.Context, name string) (*Model, error) {
	// A sibling single-flight caller may have finished between the
	// status check and Do; reuse its result.
	r.mu.Lock()
	if e, ok := r.entries[name]; ok && e.status == StatusReady {
		e.lastUsed = time.Now()
		m := e.model
		r.mu.Unlock()
		return m, nil
	}
	r.entries[name] = &entry{status: StatusLoading}
	r.mu.Unlock()

	start := time.Now()
	model, err := r.doLoad(ctx, name)
	duration := time.Since(start)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.entries[name] = &entry{
			status: StatusFailed,
			err:    err,
			retry:  rate.NewLimiter(rate.Every(r.opts.RetryInterval), 1),
		}
		// Burn the initial token so the window starts now.
		r.entries[name].retry.Allow()

		r.logger.Warn("model load failed", "model", name, "duration", duration, "error", err)
		r.observer.OnLoad(name, duration, 0, err)
		return nil, err
	}

	r.entries[name] = &entry{status: StatusReady, model: model, lastUsed: time.Now()}
	r.logger.Info("model loaded",
		"model", name,
		"kind", model.Art.Kind().String(),
		"rows", model.Art.Len(),
		"dim", model.Art.Dim(),
		"duration", duration,
	)
	r.observer.OnLoad(name, duration, model.Art.Len(), nil)
	r.evictLocked()
	return model, nil
}

func (r *Registry) doLoad(ctx context.Context, name string) (*Model, error) {
	if err := r.loadSem.Acquire(ctx, 1); err != nil {
		return nil, NewLoadError(name, err)
	}
	defer r.loadSem.Release(1)

	return r.loader(ctx, name)
}

// evictLocked drops least-recently-used ready models beyond MaxLoaded.
// Models active for a kind are never evicted. Callers hold r.mu.
func (r *Registry) evictLocked() {
	if r.opts.MaxLoaded <= 0 {
		return
	}

	for {
		ready := 0
		var oldestName string
		var oldest *entry
		for name, e := range r.entries {
			if e.status != StatusReady {
				continue
			}
			ready++
			if r.isActive(e.model) {
				continue
			}
			if oldest == nil || e.lastUsed.Before(oldest.lastUsed) {
				oldestName, oldest = name, e
			}
		}
		if ready <= r.opts.MaxLoaded || oldest == nil {
			return
		}

		delete(r.entries, oldestName)
		r.logger.Info("model evicted", "model", oldestName)
		r.observer.OnEvict(oldestName)
	}
}

func (r *Registry) isActive(m *Model) bool {
	return r.activeAudio.Load() == m || r.activeLyrics.Load() == m
}

// Status reports the lifecycle state of a named model.
func (r *Registry) Status(name string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return StatusUnloaded
	}
	return e.status
}

// SwitchActive loads the named model and makes it the default for its
// kind. On failure the current active model is left untouched.
func (r *Registry) SwitchActive(ctx context.Context, name string) (*Model, error) {
	model, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	r.activePtr(model.Art.Kind()).Store(model)
	r.logger.Info("active model switched", "kind", model.Art.Kind().String(), "model", name)
	return model, nil
}

// Active returns the default model for a kind, if one has been set.
func (r *Registry) Active(kind artifact.Kind) (*Model, bool) {
	m := r.activePtr(kind).Load()
	return m, m != nil
}

func (r *Registry) activePtr(kind artifact.Kind) *atomic.Pointer[Model] {
	if kind == artifact.KindLyrics {
		return &r.activeLyrics
	}
	return &r.activeAudio
}
