package service

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/hse-api/internal/dto"
	"github.com/noah-isme/hse-api/pkg/jobs"
)

const metricsNamespace = "hse"

// Export outcomes reported by the report worker.
const (
	ExportOutcomeFinished = "finished"
	ExportOutcomeRetried  = "retried"
	ExportOutcomeFailed   = "failed"
)

// MetricsService owns the Prometheus registry of the API: transport, cache and database timings,
// background queues, and HSE domain counters (exports, incidents, approvals).
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec
	cacheLookup  *prometheus.HistogramVec
	cacheWrite   prometheus.Histogram
	cacheRatio   prometheus.Gauge
	dbDuration   *prometheus.HistogramVec

	exportDuration *prometheus.HistogramVec
	exportTotal    *prometheus.CounterVec
	incidents      *prometheus.CounterVec
	approvals      prometheus.Counter

	queueMu sync.Mutex
	queues  map[string]func() jobs.Stats

	counts struct {
		requests, requestNanos uint64
		hits, misses           uint64
		queries, queryNanos    uint64
		exportsOK, exportsFail uint64
		incidents, approvals   uint64
	}
}

// NewMetricsService builds a private registry with every collector registered.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		queues:   map[string]func() jobs.Stats{},
	}

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "http", Name: "request_duration_seconds",
		Help: "HTTP request latency by route template.", Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.httpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by route template and status.",
	}, []string{"method", "path", "status"})
	m.cacheLookup = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "lookup_seconds",
		Help: "Dashboard cache lookup latency.", Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	m.cacheWrite = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "write_seconds",
		Help: "Dashboard cache write latency.", Buckets: prometheus.DefBuckets,
	})
	m.cacheRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "hit_ratio",
		Help: "Share of dashboard lookups served from cache.",
	})
	m.dbDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "db", Name: "query_duration_seconds",
		Help: "Duration of labelled database reads.", Buckets: prometheus.DefBuckets,
	}, []string{"query"})
	m.exportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "export", Name: "duration_seconds",
		Help: "Time spent generating export files.", Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"type", "format"})
	m.exportTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "export", Name: "jobs_total",
		Help: "Export job attempts by outcome.",
	}, []string{"type", "format", "outcome"})
	m.incidents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Name: "incidents_reported_total",
		Help: "Incidents reported by severity.",
	}, []string{"severity"})
	m.approvals = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace, Name: "risk_approvals_total",
		Help: "Risk assessments approved.",
	})
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace, Name: "goroutines",
		Help: "Goroutines currently running.",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	m.registry.MustRegister(
		m.httpDuration, m.httpTotal,
		m.cacheLookup, m.cacheWrite, m.cacheRatio,
		m.dbDuration,
		m.exportDuration, m.exportTotal, m.incidents, m.approvals,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// RegisterQueue exposes the counters of a background queue as gauges labelled by queue name.
func (m *MetricsService) RegisterQueue(name string, stats func() jobs.Stats) error {
	if m == nil || stats == nil {
		return nil
	}
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if _, ok := m.queues[name]; ok {
		return fmt.Errorf("queue %s already registered", name)
	}
	gauges := map[string]func(jobs.Stats) float64{
		"processed": func(s jobs.Stats) float64 { return float64(s.Processed) },
		"failed":    func(s jobs.Stats) float64 { return float64(s.Failed) },
		"retried":   func(s jobs.Stats) float64 { return float64(s.Retried) },
		"pending":   func(s jobs.Stats) float64 { return float64(s.Pending) },
	}
	for kind, read := range gauges {
		read := read
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "queue",
			Name:        "jobs_" + kind,
			Help:        "Background queue " + kind + " jobs.",
			ConstLabels: prometheus.Labels{"queue": name},
		}, func() float64 { return read(stats()) })
		if err := m.registry.Register(gauge); err != nil {
			return fmt.Errorf("register queue gauge: %w", err)
		}
	}
	m.queues[name] = stats
	return nil
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request under its route template.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, path, code).Inc()
	atomic.AddUint64(&m.counts.requests, 1)
	atomic.AddUint64(&m.counts.requestNanos, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a dashboard cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		atomic.AddUint64(&m.counts.hits, 1)
	} else {
		atomic.AddUint64(&m.counts.misses, 1)
	}
	m.cacheLookup.WithLabelValues(result).Observe(duration.Seconds())
	m.cacheRatio.Set(ratio(atomic.LoadUint64(&m.counts.hits), atomic.LoadUint64(&m.counts.misses)))
}

// ObserveCacheWrite tracks the duration of a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records the timing of a labelled read.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.counts.queries, 1)
	atomic.AddUint64(&m.counts.queryNanos, uint64(duration.Nanoseconds()))
}

// ObserveExport records one export attempt. Generation time is only sampled for finished jobs.
func (m *MetricsService) ObserveExport(reportType, format, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.exportTotal.WithLabelValues(reportType, format, outcome).Inc()
	switch outcome {
	case ExportOutcomeFinished:
		m.exportDuration.WithLabelValues(reportType, format).Observe(duration.Seconds())
		atomic.AddUint64(&m.counts.exportsOK, 1)
	case ExportOutcomeFailed:
		atomic.AddUint64(&m.counts.exportsFail, 1)
	}
}

// RecordIncident counts a newly reported incident.
func (m *MetricsService) RecordIncident(severity string) {
	if m == nil {
		return
	}
	m.incidents.WithLabelValues(severity).Inc()
	atomic.AddUint64(&m.counts.incidents, 1)
}

// RecordRiskApproval counts an approved risk assessment.
func (m *MetricsService) RecordRiskApproval() {
	if m == nil {
		return
	}
	m.approvals.Inc()
	atomic.AddUint64(&m.counts.approvals, 1)
}

// Snapshot returns the aggregated counters served on the admin metrics endpoint.
func (m *MetricsService) Snapshot() dto.SystemMetrics {
	if m == nil {
		return dto.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.counts.hits)
	misses := atomic.LoadUint64(&m.counts.misses)
	requests := atomic.LoadUint64(&m.counts.requests)
	queries := atomic.LoadUint64(&m.counts.queries)

	m.queueMu.Lock()
	queues := make(map[string]dto.QueueStats, len(m.queues))
	for name, stats := range m.queues {
		st := stats()
		queues[name] = dto.QueueStats{Processed: st.Processed, Failed: st.Failed, Retried: st.Retried, Pending: st.Pending}
	}
	m.queueMu.Unlock()

	return dto.SystemMetrics{
		CacheHitRatio:            ratio(hits, misses),
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: averageMs(atomic.LoadUint64(&m.counts.requestNanos), requests),
		DBQueryCount:             queries,
		AverageDBQueryDurationMs: averageMs(atomic.LoadUint64(&m.counts.queryNanos), queries),
		ExportsFinished:          atomic.LoadUint64(&m.counts.exportsOK),
		ExportsFailed:            atomic.LoadUint64(&m.counts.exportsFail),
		IncidentsReported:        atomic.LoadUint64(&m.counts.incidents),
		RiskApprovals:            atomic.LoadUint64(&m.counts.approvals),
		Goroutines:               runtime.NumGoroutine(),
		Queues:                   queues,
		GeneratedAt:              time.Now().UTC(),
	}
}

func ratio(hits, misses uint64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

func averageMs(totalNanos, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return float64(totalNanos) / float64(n) / float64(time.Millisecond)
}
