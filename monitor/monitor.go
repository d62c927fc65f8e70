package monitor

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	slog "github.com/TermGraph/syslog"

	"github.com/prometheus/client_golang/prometheus"
)

// Row and batch outcomes
const (
	Written = "written"
	Skipped = "skipped"
	Failed  = "failed"
	Done    = "done"
)

const namespace = "termgraph"

// Monitor records load statistics as Prometheus metrics and keeps running
// totals for the end of run report.
type Monitor struct {
	rows            *prometheus.CounterVec
	batches         *prometheus.CounterVec
	transformUnits  *prometheus.CounterVec
	transformGroups *prometheus.CounterVec
	batchSeconds    *prometheus.HistogramVec

	reg prometheus.Registerer

	mu     sync.RWMutex
	totals map[string]*atomic.Int64
}

// New creates the load metrics and registers them with reg.
func New(reg prometheus.Registerer) *Monitor {
	m := &Monitor{
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows processed by batch writers, by import unit kind and outcome.",
		}, []string{"kind", "outcome"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches completed, by import unit kind and outcome.",
		}, []string{"kind", "outcome"}),
		transformUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_units_total",
			Help:      "Transformation units dispatched, by premise.",
		}, []string{"premise"}),
		transformGroups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_groups_total",
			Help:      "Relationship groups dispatched for transformation, by premise.",
		}, []string{"premise"}),
		batchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Batch writer run time.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"kind"}),
		reg:    reg,
		totals: make(map[string]*atomic.Int64),
	}
	if reg != nil {
		reg.MustRegister(m.rows, m.batches, m.transformUnits, m.transformGroups, m.batchSeconds)
	}
	return m
}

// Permits exposes the state of a permit pool as gauges.
func (m *Monitor) Permits(name string, running, ceiling func() int) {
	if m.reg == nil {
		return
	}
	m.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "permits_in_use",
			Help:        "Permits currently held.",
			ConstLabels: prometheus.Labels{"pool": name},
		}, func() float64 { return float64(running()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "permits",
			Help:        "Permit pool size.",
			ConstLabels: prometheus.Labels{"pool": name},
		}, func() float64 { return float64(ceiling()) }),
	)
}

func (m *Monitor) add(key string, n int64) {
	m.mu.RLock()
	c, ok := m.totals[key]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if c, ok = m.totals[key]; !ok {
			c = new(atomic.Int64)
			m.totals[key] = c
		}
		m.mu.Unlock()
	}
	c.Add(n)
}

// Row counts one row of kind with outcome Written, Skipped or Failed.
func (m *Monitor) Row(kind, outcome string) {
	m.rows.WithLabelValues(kind, outcome).Inc()
	m.add("rows."+outcome, 1)
}

// Batch counts a completed batch and its run time in seconds.
func (m *Monitor) Batch(kind, outcome string, seconds float64) {
	m.batches.WithLabelValues(kind, outcome).Inc()
	m.batchSeconds.WithLabelValues(kind).Observe(seconds)
	m.add("batches."+outcome, 1)
}

// TransformUnit counts one dispatched unit of transformation work.
func (m *Monitor) TransformUnit(premise string, groups int) {
	m.transformUnits.WithLabelValues(premise).Inc()
	m.transformGroups.WithLabelValues(premise).Add(float64(groups))
	m.add("transform.units", 1)
	m.add("transform.groups", int64(groups))
}

// Total returns the running total for key, e.g. "rows.skipped".
func (m *Monitor) Total(key string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.totals[key]; ok {
		return c.Load()
	}
	return 0
}

func (m *Monitor) Report(w io.Writer) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.totals))
	for k := range m.totals {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)

	fmt.Fprintln(w, " ==================== LOAD STATISTICS ==============")
	for _, k := range keys {
		s := fmt.Sprintf(" %-20s %d", k, m.Total(k))
		fmt.Fprintln(w, s)
		slog.LogAlert("monitor", s)
	}
}
