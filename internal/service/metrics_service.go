package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/lecture-diary-api/internal/models"
)

const metricsNamespace = "lecture_diary"

// tally accumulates a count and total duration for averages in the snapshot.
type tally struct {
	count atomic.Uint64
	nanos atomic.Uint64
}

func (t *tally) add(d time.Duration) {
	t.count.Add(1)
	t.nanos.Add(uint64(d.Nanoseconds()))
}

func (t *tally) averageMs() float64 {
	n := t.count.Load()
	if n == 0 {
		return 0
	}
	return float64(t.nanos.Load()) / float64(n) / float64(time.Millisecond)
}

// MetricsService owns a private Prometheus registry and keeps running totals for the JSON
// snapshot. Every method is safe on a nil receiver.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration      *prometheus.HistogramVec
	cacheLookup       *prometheus.HistogramVec
	cacheWrite        prometheus.Histogram
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	dbDuration        *prometheus.HistogramVec
	leaveTransitions  *prometheus.CounterVec
	ledgerMutations   *prometheus.CounterVec
	exportsGenerated  *prometheus.CounterVec
	auditQueueDropped prometheus.Counter

	requests tally
	queries  tally
	hits     atomic.Uint64
	misses   atomic.Uint64

	mu          sync.Mutex
	transitions map[string]uint64
}

// NewMetricsService registers the application collectors plus the Go runtime and process ones.
func NewMetricsService() *MetricsService {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &MetricsService{
		registry: reg,
		handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency by route template and status.",
		}, []string{"method", "route", "status"}),
		cacheLookup: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "catalog_cache", Name: "lookup_seconds",
			Help:    "Catalog cache lookup latency by result.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"result"}),
		cacheWrite: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "catalog_cache", Name: "write_seconds",
			Help:    "Catalog cache write latency.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "catalog_cache", Name: "hits_total",
			Help: "Catalog reads served from Redis.",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "catalog_cache", Name: "misses_total",
			Help: "Catalog reads that fell through to PostgreSQL.",
		}),
		dbDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "db", Name: "tx_duration_seconds",
			Help: "Duration of instrumented database transactions.",
		}, []string{"tx"}),
		leaveTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "leave_transitions_total",
			Help: "Leave status changes by requested status and outcome.",
		}, []string{"status", "outcome"}),
		ledgerMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "ledger_mutations_total",
			Help: "Leave balance ledger writes by kind.",
		}, []string{"kind"}),
		exportsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "report_exports_total",
			Help: "Rendered report files by report and format.",
		}, []string{"report", "format"}),
		auditQueueDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "audit_queue_fallbacks_total",
			Help: "Audit entries written inline because the job pool refused them.",
		}),
		transitions: make(map[string]uint64),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
	m.requests.add(d)
}

func (m *MetricsService) RecordCacheOperation(hit bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.cacheHits.Inc()
		m.hits.Add(1)
	} else {
		m.cacheMisses.Inc()
		m.misses.Add(1)
	}
	m.cacheLookup.WithLabelValues(result).Observe(d.Seconds())
}

func (m *MetricsService) ObserveCacheWrite(d time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(d.Seconds())
}

// ObserveDBQuery times one named transaction.
func (m *MetricsService) ObserveDBQuery(tx string, d time.Duration) {
	if m == nil {
		return
	}
	m.dbDuration.WithLabelValues(tx).Observe(d.Seconds())
	m.queries.add(d)
}

// RecordLeaveTransition counts a status change attempt. outcome is "success" or a
// lower-case error code.
func (m *MetricsService) RecordLeaveTransition(status, outcome string) {
	if m == nil {
		return
	}
	m.leaveTransitions.WithLabelValues(status, outcome).Inc()
	m.mu.Lock()
	m.transitions[status+":"+outcome]++
	m.mu.Unlock()
}

// RecordLedgerMutation counts a ledger write by kind. restore_missing marks a restore with no row to credit.
func (m *MetricsService) RecordLedgerMutation(kind string) {
	if m == nil {
		return
	}
	m.ledgerMutations.WithLabelValues(kind).Inc()
}

func (m *MetricsService) RecordExport(report, format string) {
	if m == nil {
		return
	}
	m.exportsGenerated.WithLabelValues(report, format).Inc()
}

func (m *MetricsService) RecordAuditFallback() {
	if m == nil {
		return
	}
	m.auditQueueDropped.Inc()
}

// Snapshot summarises the running totals for the admin dashboard.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits, misses := m.hits.Load(), m.misses.Load()
	snap := models.SystemMetrics{
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            m.requests.count.Load(),
		AverageRequestDurationMs: m.requests.averageMs(),
		DBQueryCount:             m.queries.count.Load(),
		AverageDBQueryDurationMs: m.queries.averageMs(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
	if hits+misses > 0 {
		snap.CacheHitRatio = float64(hits) / float64(hits+misses)
	}

	m.mu.Lock()
	snap.LeaveTransitions = make(map[string]uint64, len(m.transitions))
	for k, v := range m.transitions {
		snap.LeaveTransitions[k] = v
	}
	m.mu.Unlock()
	return snap
}
