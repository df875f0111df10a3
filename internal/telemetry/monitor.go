package telemetry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultSampleCapacity is the number of recent samples kept per operation.
const DefaultSampleCapacity = 100

// DefaultSlowThreshold is the mean latency above which an operation is
// flagged as slow.
const DefaultSlowThreshold = 500 * time.Millisecond

// OperationStats is an immutable latency summary for one operation.
type OperationStats struct {
	Operation string        `json:"operation"`
	Count     int           `json:"count"`
	Mean      time.Duration `json:"mean"`
	P95       time.Duration `json:"p95"`
	Max       time.Duration `json:"max"`
	Last      time.Duration `json:"last"`
}

// Slow reports whether the operation's mean latency exceeds the threshold.
func (s OperationStats) Slow(threshold time.Duration) bool {
	return s.Count > 0 && s.Mean > threshold
}

// MonitorConfig configures the performance monitor.
type MonitorConfig struct {
	// SampleCapacity is how many recent samples to keep per operation.
	SampleCapacity int
	// SlowThreshold is the mean latency that triggers a slow-operation warning.
	SlowThreshold time.Duration
	// ReportInterval is how often the background reporter logs a summary.
	// Zero disables the reporter.
	ReportInterval time.Duration
}

// DefaultMonitorConfig returns sensible defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		SampleCapacity: DefaultSampleCapacity,
		SlowThreshold:  DefaultSlowThreshold,
	}
}

// PerformanceMonitor tracks recent operation latencies.
// Thread-safe for concurrent access.
type PerformanceMonitor struct {
	mu      sync.RWMutex
	samples map[string]*CircularBuffer[time.Duration]
	config  MonitorConfig
	logger  *slog.Logger

	stopCh chan struct{}
	once   sync.Once
}

// NewPerformanceMonitor creates a monitor with the given configuration.
// A nil logger falls back to slog.Default.
func NewPerformanceMonitor(cfg MonitorConfig, logger *slog.Logger) *PerformanceMonitor {
	if cfg.SampleCapacity <= 0 {
		cfg.SampleCapacity = DefaultSampleCapacity
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = DefaultSlowThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &PerformanceMonitor{
		samples: make(map[string]*CircularBuffer[time.Duration]),
		config:  cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	if cfg.ReportInterval > 0 {
		go m.reportLoop()
	}

	return m
}

// Record adds a latency sample for the named operation.
func (m *PerformanceMonitor) Record(operation string, d time.Duration) {
	m.mu.Lock()
	buf, ok := m.samples[operation]
	if !ok {
		buf = NewCircularBuffer[time.Duration](m.config.SampleCapacity)
		m.samples[operation] = buf
	}
	m.mu.Unlock()

	buf.Add(d)

	if d > m.config.SlowThreshold {
		m.logger.Warn("slow operation",
			"operation", operation,
			"duration_ms", d.Milliseconds(),
			"threshold_ms", m.config.SlowThreshold.Milliseconds())
	}
}

// Track records the elapsed time since start for the named operation.
// Intended for use with defer:
//
//	defer monitor.Track("search", time.Now())
func (m *PerformanceMonitor) Track(operation string, start time.Time) {
	m.Record(operation, time.Since(start))
}

// Stats returns the latency summary for a single operation.
// The second return value is false if the operation has no samples.
func (m *PerformanceMonitor) Stats(operation string) (OperationStats, bool) {
	m.mu.RLock()
	buf, ok := m.samples[operation]
	m.mu.RUnlock()

	if !ok {
		return OperationStats{}, false
	}

	items := buf.Items()
	if len(items) == 0 {
		return OperationStats{}, false
	}
	return summarize(operation, items), true
}

// Snapshot returns latency summaries for all tracked operations,
// sorted by operation name.
func (m *PerformanceMonitor) Snapshot() []OperationStats {
	m.mu.RLock()
	names := make([]string, 0, len(m.samples))
	for name := range m.samples {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)

	stats := make([]OperationStats, 0, len(names))
	for _, name := range names {
		if s, ok := m.Stats(name); ok {
			stats = append(stats, s)
		}
	}
	return stats
}

// Report returns a human-readable summary of all tracked operations.
func (m *PerformanceMonitor) Report() string {
	stats := m.Snapshot()
	if len(stats) == 0 {
		return "no operations recorded"
	}

	var sb strings.Builder
	for _, s := range stats {
		fmt.Fprintf(&sb, "%-24s count=%-4d mean=%-8s p95=%-8s max=%s",
			s.Operation, s.Count, s.Mean.Round(time.Microsecond),
			s.P95.Round(time.Microsecond), s.Max.Round(time.Microsecond))
		if s.Slow(m.config.SlowThreshold) {
			sb.WriteString("  [SLOW]")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Reset discards all recorded samples.
func (m *PerformanceMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = make(map[string]*CircularBuffer[time.Duration])
}

// Close stops the background reporter, if running.
func (m *PerformanceMonitor) Close() {
	m.once.Do(func() {
		close(m.stopCh)
	})
}

// reportLoop periodically logs a latency summary and warns about
// operations whose mean latency exceeds the threshold.
func (m *PerformanceMonitor) reportLoop() {
	ticker := time.NewTicker(m.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, s := range m.Snapshot() {
				if s.Slow(m.config.SlowThreshold) {
					m.logger.Warn("operation mean latency above threshold",
						"operation", s.Operation,
						"mean_ms", s.Mean.Milliseconds(),
						"p95_ms", s.P95.Milliseconds(),
						"samples", s.Count)
				} else {
					m.logger.Debug("operation latency",
						"operation", s.Operation,
						"mean_ms", s.Mean.Milliseconds(),
						"samples", s.Count)
				}
			}
		case <-m.stopCh:
			return
		}
	}
}

// summarize computes stats over a sample window.
func summarize(operation string, items []time.Duration) OperationStats {
	var total, max time.Duration
	for _, d := range items {
		total += d
		if d > max {
			max = d
		}
	}

	sorted := make([]time.Duration, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	// Nearest-rank p95.
	idx := (95*len(sorted) + 99) / 100
	if idx > 0 {
		idx--
	}

	return OperationStats{
		Operation: operation,
		Count:     len(items),
		Mean:      total / time.Duration(len(items)),
		P95:       sorted[idx],
		Max:       max,
		Last:      items[len(items)-1],
	}
}
