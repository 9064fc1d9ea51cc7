package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	RebuildOutcomeApplied  = "applied"
	RebuildOutcomeDryRun   = "dry_run"
	RebuildOutcomeNotFound = "not_found"
	RebuildOutcomeError    = "error"
)

const (
	RowsDeleted = "deleted"
	RowsCreated = "created"
)

const (
	ErrorReasonDeadlineExceeded     = "deadline_exceeded"
	ErrorReasonDBLockTimeout        = "db_lock_timeout"
	ErrorReasonSerializationFailure = "serialization_failure"
	ErrorReasonUniqueViolation      = "unique_violation"
	ErrorReasonDB                   = "db"
	ErrorReasonUnknown              = "unknown"
)

// RebuildMetrics captures plan rebuild health for the pushed batch report.
type RebuildMetrics struct {
	relays          *prometheus.CounterVec
	rows            *prometheus.CounterVec
	errors          *prometheus.CounterVec
	drift           prometheus.Counter
	relayDuration   prometheus.Histogram
	runDuration     prometheus.Gauge
	lastSuccess     prometheus.Gauge
	outcomeCounters map[string]prometheus.Counter
}

var (
	rebuildMetricsOnce sync.Once
	rebuildMetrics     *RebuildMetrics
)

// Rebuild returns the singleton rebuild metrics registry.
func Rebuild() *RebuildMetrics {
	return RebuildWithConfig(Config{})
}

// RebuildWithConfig returns the singleton rebuild metrics registry using config labels.
func RebuildWithConfig(cfg Config) *RebuildMetrics {
	rebuildMetricsOnce.Do(func() {
		rebuildMetrics = newRebuildMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return rebuildMetrics
}

// ResetRebuildMetricsForTest resets the rebuild metrics singleton for tests.
func ResetRebuildMetricsForTest() {
	rebuildMetricsOnce = sync.Once{}
	rebuildMetrics = nil
}

func newRebuildMetrics(registerer prometheus.Registerer, cfg Config) *RebuildMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "relayplan"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	relays := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "relayplan_rebuild_relays_total",
		Help:        "Relays visited by the plan rebuild, by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "relayplan_rebuild_rows_total",
		Help:        "Plan change rows deleted or created by the rebuild.",
		ConstLabels: constLabels,
	}, []string{"op"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "relayplan_rebuild_errors_total",
		Help:        "Per-relay rebuild errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	drift := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "relayplan_rebuild_drift_total",
		Help:        "Relays whose stored plan timeline differed from the order ledger.",
		ConstLabels: constLabels,
	})
	relayDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "relayplan_rebuild_relay_duration_seconds",
		Help:        "Time spent rebuilding a single relay timeline.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	})
	runDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "relayplan_rebuild_run_duration_seconds",
		Help:        "Wall time of the last rebuild run.",
		ConstLabels: constLabels,
	})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "relayplan_rebuild_last_success_timestamp_seconds",
		Help:        "Unix time of the last rebuild run that completed without a top-level error.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(relays, rows, errs, drift, relayDuration, runDuration, lastSuccess)

	outcomeCounters := map[string]prometheus.Counter{}
	for _, outcome := range []string{RebuildOutcomeApplied, RebuildOutcomeDryRun, RebuildOutcomeNotFound, RebuildOutcomeError} {
		outcomeCounters[outcome] = relays.WithLabelValues(outcome)
	}

	return &RebuildMetrics{
		relays:          relays,
		rows:            rows,
		errors:          errs,
		drift:           drift,
		relayDuration:   relayDuration,
		runDuration:     runDuration,
		lastSuccess:     lastSuccess,
		outcomeCounters: outcomeCounters,
	}
}

// IncRelay counts a relay by rebuild outcome.
func (m *RebuildMetrics) IncRelay(outcome string) {
	if m == nil {
		return
	}
	if counter, ok := m.outcomeCounters[outcome]; ok {
		counter.Inc()
		return
	}
	m.relays.WithLabelValues(outcome).Inc()
}

// AddRows adds deleted or created plan change rows.
func (m *RebuildMetrics) AddRows(op string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.rows.WithLabelValues(op).Add(float64(count))
}

// IncError counts a relay failure with classification.
func (m *RebuildMetrics) IncError(err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(ClassifyErrorReason(err)).Inc()
}

// IncDrift counts a relay whose stored timeline was out of date.
func (m *RebuildMetrics) IncDrift() {
	if m == nil {
		return
	}
	m.drift.Inc()
}

// ObserveRelayDuration records the time spent on one relay.
func (m *RebuildMetrics) ObserveRelayDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.relayDuration.Observe(d.Seconds())
}

// SetRunFinished records the run duration and, on success, the completion time.
func (m *RebuildMetrics) SetRunFinished(finishedAt time.Time, d time.Duration, success bool) {
	if m == nil {
		return
	}
	m.runDuration.Set(d.Seconds())
	if success {
		m.lastSuccess.Set(float64(finishedAt.Unix()))
	}
}

// ClassifyErrorReason maps store errors to low-cardinality reasons.
func ClassifyErrorReason(err error) string {
	if err == nil {
		return ErrorReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return ErrorReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return ErrorReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return ErrorReasonUniqueViolation
	}
	if isDBError(err) {
		return ErrorReasonDB
	}
	return ErrorReasonUnknown
}

// IsRetryable reports whether rerunning the relay may succeed without operator action.
func IsRetryable(err error) bool {
	switch ClassifyErrorReason(err) {
	case ErrorReasonDeadlineExceeded, ErrorReasonDBLockTimeout, ErrorReasonSerializationFailure:
		return true
	default:
		return false
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrInvalidValue) ||
		errors.Is(err, gorm.ErrNotImplemented) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
