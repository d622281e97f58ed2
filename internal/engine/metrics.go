package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests atomic.Int64
	TranscriptErrors   atomic.Int64
	SessionFailures    atomic.Int64
	CaptionFetches     atomic.Int64
	CaptionEmpty       atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	CleanupFallbacks   atomic.Int64
	TitleFallbacks     atomic.Int64
}

// strategyCounters holds per-strategy hit/miss counters, keyed "<name>_hits" / "<name>_misses".
var strategyCounters sync.Map // string → *atomic.Int64

func strategyCounter(key string) *atomic.Int64 {
	if v, ok := strategyCounters.Load(key); ok {
		return v.(*atomic.Int64)
	}
	v, _ := strategyCounters.LoadOrStore(key, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	m := map[string]int64{
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"transcript_errors":   metrics.TranscriptErrors.Load(),
		"session_failures":    metrics.SessionFailures.Load(),
		"caption_fetches":     metrics.CaptionFetches.Load(),
		"caption_empty":       metrics.CaptionEmpty.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"cleanup_fallbacks":   metrics.CleanupFallbacks.Load(),
		"title_fallbacks":     metrics.TitleFallbacks.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
	strategyCounters.Range(func(k, v any) bool {
		m["strategy_"+k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return m
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptErrors()   { metrics.TranscriptErrors.Add(1) }
func IncrSessionFailures()    { metrics.SessionFailures.Add(1) }
func IncrCaptionFetches()     { metrics.CaptionFetches.Add(1) }
func IncrCaptionEmpty()       { metrics.CaptionEmpty.Add(1) }
func IncrCleanupFallbacks()   { metrics.CleanupFallbacks.Add(1) }
func IncrTitleFallbacks()     { metrics.TitleFallbacks.Add(1) }

// IncrStrategy records the outcome of one strategy attempt.
func IncrStrategy(name string, hit bool) {
	if hit {
		strategyCounter(name + "_hits").Add(1)
		return
	}
	strategyCounter(name + "_misses").Add(1)
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
