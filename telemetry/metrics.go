// Package telemetry provides Prometheus metrics, tracing helpers and correlation-id aware logging.
package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	APIRequests        *prometheus.CounterVec // labels: upstream, endpoint, status
	TokenExchanges     *prometheus.CounterVec // labels: result
	RenderSubmissions  *prometheus.CounterVec // labels: result
	RenderOutcomes     *prometheus.CounterVec // labels: outcome
	CommandInvocations *prometheus.CounterVec // labels: platform, command, result

	// Histograms (seconds)
	APIRequestDuration *prometheus.HistogramVec // labels: upstream, endpoint
	RenderWaitDuration prometheus.Observer

	// Gauges
	ActiveRenderWatchers prometheus.Gauge
	PrefixCacheSize      prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "aswo_upstream_requests_total", Help: "Upstream API requests by upstream, endpoint and HTTP status"}, []string{"upstream", "endpoint", "status"})
		TokenExchanges = promauto.NewCounterVec(prometheus.CounterOpts{Name: "aswo_osu_token_exchanges_total", Help: "osu! client-credentials token exchanges by result"}, []string{"result"})
		RenderSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "aswo_render_submissions_total", Help: "Replay render submissions by result"}, []string{"result"})
		RenderOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{Name: "aswo_render_outcomes_total", Help: "Terminal render job outcomes"}, []string{"outcome"})
		CommandInvocations = promauto.NewCounterVec(prometheus.CounterOpts{Name: "aswo_commands_total", Help: "Chat command invocations by platform, command and result"}, []string{"platform", "command", "result"})
		APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "aswo_upstream_request_duration_seconds", Help: "Upstream API request duration seconds", Buckets: prometheus.DefBuckets}, []string{"upstream", "endpoint"})
		RenderWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "aswo_render_wait_duration_seconds", Help: "Time from submission to terminal render state", Buckets: []float64{5, 15, 30, 60, 120, 300, 600}})
		ActiveRenderWatchers = promauto.NewGauge(prometheus.GaugeOpts{Name: "aswo_render_watchers_active", Help: "Open render push-channel listeners"})
		PrefixCacheSize = promauto.NewGauge(prometheus.GaugeOpts{Name: "aswo_prefix_cache_entries", Help: "Guild prefixes held in the in-memory cache"})
	})
}

// ObserveAPIRequest records one upstream request. Safe to call before Init.
func ObserveAPIRequest(upstream, endpoint string, status int, d time.Duration) {
	if APIRequests == nil {
		return
	}
	APIRequests.WithLabelValues(upstream, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(upstream, endpoint).Observe(d.Seconds())
}

// CountTokenExchange records a token exchange result ("ok" or "error").
func CountTokenExchange(result string) {
	if TokenExchanges != nil {
		TokenExchanges.WithLabelValues(result).Inc()
	}
}

// CountRenderSubmission records a render submission result.
func CountRenderSubmission(result string) {
	if RenderSubmissions != nil {
		RenderSubmissions.WithLabelValues(result).Inc()
	}
}

// CountRenderOutcome records a terminal render outcome.
func CountRenderOutcome(outcome string) {
	if RenderOutcomes != nil {
		RenderOutcomes.WithLabelValues(outcome).Inc()
	}
}

// CountCommand records a command invocation.
func CountCommand(platform, command, result string) {
	if CommandInvocations != nil {
		CommandInvocations.WithLabelValues(platform, command, result).Inc()
	}
}

// AddRenderWatchers adjusts the active watcher gauge by delta.
func AddRenderWatchers(delta float64) {
	if ActiveRenderWatchers != nil {
		ActiveRenderWatchers.Add(delta)
	}
}

// ObserveRenderWait records how long a render job stayed pending.
func ObserveRenderWait(d time.Duration) {
	if RenderWaitDuration != nil {
		RenderWaitDuration.Observe(d.Seconds())
	}
}

// SetPrefixCacheSize records the number of cached guild prefixes.
func SetPrefixCacheSize(n int) {
	if PrefixCacheSize != nil {
		PrefixCacheSize.Set(float64(n))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
