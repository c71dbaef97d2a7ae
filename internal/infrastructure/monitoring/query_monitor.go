package monitoring

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/floworx/backend/internal/infrastructure/config"
)

// OperationStats is a snapshot of one operation's recent performance
type OperationStats struct {
	Operation      string        `json:"operation"`
	TotalQueries   int64         `json:"total_queries"`
	TotalErrors    int64         `json:"total_errors"`
	SlowQueries    int64         `json:"slow_queries"`
	AverageLatency time.Duration `json:"average_latency"`
	ErrorRate      float64       `json:"error_rate"`
}

// AlertFunc receives threshold breaches. The default implementation logs.
type AlertFunc func(stats OperationStats)

type sample struct {
	duration time.Duration
	failed   bool
}

type operationWindow struct {
	samples []sample
	next    int
	filled  bool

	totalQueries int64
	totalErrors  int64
	slowQueries  int64
	lastAlert    time.Time
}

// QueryMonitor records per-operation query outcomes over a sliding
// window and raises an alert when the window's error rate crosses the
// configured threshold. Alerts are rate-limited by a cooldown so a
// sustained outage does not flood the log.
//
// The monitor is constructor-injected; there is no package-level
// instance.
type QueryMonitor struct {
	mu         sync.Mutex
	operations map[string]*operationWindow

	windowSize     int
	slowThreshold  time.Duration
	alertThreshold float64
	alertCooldown  time.Duration

	alert  AlertFunc
	logger *zap.Logger
	now    func() time.Time
}

// MonitorOption configures the QueryMonitor
type MonitorOption func(*QueryMonitor)

// WithAlertFunc replaces the default log-based alerting
func WithAlertFunc(alert AlertFunc) MonitorOption {
	return func(m *QueryMonitor) {
		m.alert = alert
	}
}

// WithClock overrides the time source (used in cooldown tests)
func WithClock(now func() time.Time) MonitorOption {
	return func(m *QueryMonitor) {
		m.now = now
	}
}

// NewQueryMonitor creates a monitor from the monitoring configuration
func NewQueryMonitor(cfg config.MonitoringConfig, logger *zap.Logger, opts ...MonitorOption) *QueryMonitor {
	m := &QueryMonitor{
		operations:     make(map[string]*operationWindow),
		windowSize:     cfg.WindowSize,
		slowThreshold:  cfg.SlowThreshold,
		alertThreshold: cfg.AlertThreshold,
		alertCooldown:  cfg.AlertCooldown,
		logger:         logger,
		now:            time.Now,
	}
	if m.windowSize <= 0 {
		m.windowSize = 100
	}
	m.alert = m.logAlert

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record adds one query outcome for the operation
func (m *QueryMonitor) Record(operation string, duration time.Duration, err error) {
	m.mu.Lock()

	window, ok := m.operations[operation]
	if !ok {
		window = &operationWindow{samples: make([]sample, m.windowSize)}
		m.operations[operation] = window
	}

	window.samples[window.next] = sample{duration: duration, failed: err != nil}
	window.next = (window.next + 1) % m.windowSize
	if window.next == 0 {
		window.filled = true
	}

	window.totalQueries++
	if err != nil {
		window.totalErrors++
	}
	if m.slowThreshold > 0 && duration >= m.slowThreshold {
		window.slowQueries++
		m.logger.Warn("slow query detected",
			zap.String("operation", operation),
			zap.Duration("duration", duration),
			zap.Duration("threshold", m.slowThreshold))
	}

	stats := m.statsLocked(operation, window)
	shouldAlert := m.alertThreshold > 0 &&
		stats.ErrorRate >= m.alertThreshold &&
		m.now().Sub(window.lastAlert) >= m.alertCooldown
	if shouldAlert {
		window.lastAlert = m.now()
	}
	m.mu.Unlock()

	// Alert outside the lock so a slow alert sink cannot stall queries
	if shouldAlert {
		m.alert(stats)
	}
}

// Stats returns the current snapshot for one operation
func (m *QueryMonitor) Stats(operation string) OperationStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	window, ok := m.operations[operation]
	if !ok {
		return OperationStats{Operation: operation}
	}
	return m.statsLocked(operation, window)
}

// Snapshot returns stats for every recorded operation
func (m *QueryMonitor) Snapshot() []OperationStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]OperationStats, 0, len(m.operations))
	for operation, window := range m.operations {
		snapshot = append(snapshot, m.statsLocked(operation, window))
	}
	return snapshot
}

// Reset discards all recorded state
func (m *QueryMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations = make(map[string]*operationWindow)
}

func (m *QueryMonitor) statsLocked(operation string, window *operationWindow) OperationStats {
	count := window.next
	if window.filled {
		count = m.windowSize
	}

	var total time.Duration
	var failed int
	for i := 0; i < count; i++ {
		total += window.samples[i].duration
		if window.samples[i].failed {
			failed++
		}
	}

	stats := OperationStats{
		Operation:    operation,
		TotalQueries: window.totalQueries,
		TotalErrors:  window.totalErrors,
		SlowQueries:  window.slowQueries,
	}
	if count > 0 {
		stats.AverageLatency = total / time.Duration(count)
		stats.ErrorRate = float64(failed) / float64(count)
	}
	return stats
}

func (m *QueryMonitor) logAlert(stats OperationStats) {
	m.logger.Error("operation error rate above threshold",
		zap.String("operation", stats.Operation),
		zap.Float64("error_rate", stats.ErrorRate),
		zap.Duration("average_latency", stats.AverageLatency),
		zap.Int64("total_errors", stats.TotalErrors))
}
