package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbassist/kbsearch/internal/logging"
)

func newTestMonitor() *PerformanceMonitor {
	return NewPerformanceMonitor(DefaultMonitorConfig(), logging.Discard())
}

func TestMonitor_RecordAndStats(t *testing.T) {
	m := newTestMonitor()
	defer m.Close()

	m.Record("search", 10*time.Millisecond)
	m.Record("search", 20*time.Millisecond)
	m.Record("search", 30*time.Millisecond)

	stats, ok := m.Stats("search")
	require.True(t, ok)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 20*time.Millisecond, stats.Mean)
	assert.Equal(t, 30*time.Millisecond, stats.Max)
	assert.Equal(t, 30*time.Millisecond, stats.Last)
}

func TestMonitor_UnknownOperation(t *testing.T) {
	m := newTestMonitor()
	defer m.Close()

	_, ok := m.Stats("nonexistent")
	assert.False(t, ok)
}

func TestMonitor_KeepsOnlyRecentSamples(t *testing.T) {
	m := NewPerformanceMonitor(MonitorConfig{SampleCapacity: 100}, logging.Discard())
	defer m.Close()

	// 150 samples: the first 50 slow ones fall out of the window.
	for i := 0; i < 50; i++ {
		m.Record("index", time.Second)
	}
	for i := 0; i < 100; i++ {
		m.Record("index", 10*time.Millisecond)
	}

	stats, ok := m.Stats("index")
	require.True(t, ok)
	assert.Equal(t, 100, stats.Count)
	assert.Equal(t, 10*time.Millisecond, stats.Mean)
}

func TestMonitor_P95(t *testing.T) {
	m := newTestMonitor()
	defer m.Close()

	// 1ms..100ms: p95 by nearest rank is the 95th value.
	for i := 1; i <= 100; i++ {
		m.Record("rank", time.Duration(i)*time.Millisecond)
	}

	stats, ok := m.Stats("rank")
	require.True(t, ok)
	assert.Equal(t, 95*time.Millisecond, stats.P95)
}

func TestMonitor_SlowFlag(t *testing.T) {
	stats := OperationStats{Count: 10, Mean: 600 * time.Millisecond}
	assert.True(t, stats.Slow(DefaultSlowThreshold))

	stats.Mean = 100 * time.Millisecond
	assert.False(t, stats.Slow(DefaultSlowThreshold))
}

func TestMonitor_SnapshotSorted(t *testing.T) {
	m := newTestMonitor()
	defer m.Close()

	m.Record("rank", time.Millisecond)
	m.Record("cache", time.Millisecond)
	m.Record("search", time.Millisecond)

	snap := m.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "cache", snap[0].Operation)
	assert.Equal(t, "rank", snap[1].Operation)
	assert.Equal(t, "search", snap[2].Operation)
}

func TestMonitor_Report(t *testing.T) {
	m := newTestMonitor()
	defer m.Close()

	assert.Equal(t, "no operations recorded", m.Report())

	m.Record("search", 5*time.Millisecond)
	report := m.Report()
	assert.Contains(t, report, "search")
	assert.Contains(t, report, "count=1")
}

func TestMonitor_Reset(t *testing.T) {
	m := newTestMonitor()
	defer m.Close()

	m.Record("search", time.Millisecond)
	m.Reset()

	_, ok := m.Stats("search")
	assert.False(t, ok)
}
