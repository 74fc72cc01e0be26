package dto

import "time"

// SystemMetrics is a lightweight snapshot of process instrumentation served to super admins.
type SystemMetrics struct {
	CacheHitRatio            float64               `json:"cache_hit_ratio"`
	CacheHits                uint64                `json:"cache_hits"`
	CacheMisses              uint64                `json:"cache_misses"`
	RequestsTotal            uint64                `json:"requests_total"`
	AverageRequestDurationMs float64               `json:"average_request_duration_ms"`
	DBQueryCount             uint64                `json:"db_query_count"`
	AverageDBQueryDurationMs float64               `json:"average_db_query_duration_ms"`
	ExportsFinished          uint64                `json:"exports_finished"`
	ExportsFailed            uint64                `json:"exports_failed"`
	IncidentsReported        uint64                `json:"incidents_reported"`
	RiskApprovals            uint64                `json:"risk_approvals"`
	Goroutines               int                   `json:"goroutines"`
	Queues                   map[string]QueueStats `json:"queues,omitempty"`
	GeneratedAt              time.Time             `json:"generated_at"`
}

// QueueStats mirrors the counters of a background queue.
type QueueStats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Retried   int64 `json:"retried"`
	Pending   int   `json:"pending"`
}
