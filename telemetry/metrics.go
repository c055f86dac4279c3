// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommandsTotal *prometheus.CounterVec
	CommandErrors *prometheus.CounterVec
	VoteCounts    prometheus.Counter
	CyclesCreated prometheus.Counter
	NightsStarted prometheus.Counter
	AuditEvents   prometheus.Counter

	// Histograms (seconds)
	CommandDuration prometheus.Observer

	// Gauges
	GuildsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_commands_total", Help: "Number of command invocations dispatched",
		}, []string{"command"})
		CommandErrors = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_command_errors_total", Help: "Number of command invocations that failed",
		}, []string{"command"})
		VoteCounts = promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_vote_counts_total", Help: "Number of vote tallies computed",
		})
		CyclesCreated = promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_cycles_created_total", Help: "Number of day cycles provisioned",
		})
		NightsStarted = promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_nights_started_total", Help: "Number of night transitions completed",
		})
		AuditEvents = promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_audit_events_total", Help: "Number of edit/delete events posted to log channels",
		})
		CommandDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "warden_command_duration_seconds", Help: "Command handling duration seconds", Buckets: prometheus.DefBuckets,
		})
		GuildsGauge = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "warden_guilds", Help: "Number of guilds the gateway session is in",
		})
	})
}

// SetGuilds records the current guild count.
func SetGuilds(n int) {
	if GuildsGauge != nil {
		GuildsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
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
