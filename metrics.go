package recgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus (see the promcollector package for a ready-made adapter).
type MetricsCollector interface {
	// RecordRecommend is called after each recommendation request.
	// strategy is the requested strategy name, duration is the total
	// time taken, err is nil if successful.
	RecordRecommend(strategy string, duration time.Duration, err error)

	// RecordCompare is called after each side-by-side comparison.
	// models is the number of models compared, failed the number whose
	// run produced an individual failure.
	RecordCompare(models, failed int, duration time.Duration)

	// RecordModelLoad is called after each bundle load attempt.
	RecordModelLoad(model string, duration time.Duration, err error)

	// RecordModelSwitch is called after each active-model switch attempt.
	RecordModelSwitch(model string, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRecommend(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordCompare(int, int, time.Duration)        {}
func (NoopMetricsCollector) RecordModelLoad(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordModelSwitch(string, error)              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	RecommendCount      atomic.Int64
	RecommendErrors     atomic.Int64
	RecommendTotalNanos atomic.Int64
	CompareCount        atomic.Int64
	CompareModels       atomic.Int64
	CompareFailed       atomic.Int64
	LoadCount           atomic.Int64
	LoadErrors          atomic.Int64
	LoadTotalNanos      atomic.Int64
	SwitchCount         atomic.Int64
	SwitchErrors        atomic.Int64
}

// RecordRecommend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRecommend(strategy string, duration time.Duration, err error) {
	b.RecommendCount.Add(1)
	b.RecommendTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RecommendErrors.Add(1)
	}
}

// RecordCompare implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompare(models, failed int, duration time.Duration) {
	b.CompareCount.Add(1)
	b.CompareModels.Add(int64(models))
	b.CompareFailed.Add(int64(failed))
}

// RecordModelLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordModelLoad(model string, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordModelSwitch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordModelSwitch(model string, err error) {
	b.SwitchCount.Add(1)
	if err != nil {
		b.SwitchErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RecommendCount:    b.RecommendCount.Load(),
		RecommendErrors:   b.RecommendErrors.Load(),
		RecommendAvgNanos: b.avgNanos(&b.RecommendTotalNanos, &b.RecommendCount),
		CompareCount:      b.CompareCount.Load(),
		CompareModels:     b.CompareModels.Load(),
		CompareFailed:     b.CompareFailed.Load(),
		LoadCount:         b.LoadCount.Load(),
		LoadErrors:        b.LoadErrors.Load(),
		LoadAvgNanos:      b.avgNanos(&b.LoadTotalNanos, &b.LoadCount),
		SwitchCount:       b.SwitchCount.Load(),
		SwitchErrors:      b.SwitchErrors.Load(),
	}
}

func (b *BasicMetricsCollector) avgNanos(total, count *atomic.Int64) int64 {
	c := count.Load()
	if c == 0 {
		return 0
	}
	return total.Load() / c
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RecommendCount    int64
	RecommendErrors   int64
	RecommendAvgNanos int64
	CompareCount      int64
	CompareModels     int64
	CompareFailed     int64
	LoadCount         int64
	LoadErrors        int64
	LoadAvgNanos      int64
	SwitchCount       int64
	SwitchErrors      int64
}
