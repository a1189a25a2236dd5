// Package observability provides Prometheus metrics and the commission audit
// trail.
//
// The audit trail is a diagnostic record of every commission computation —
// which withdrawal triggered it, how many pages completed, whether the
// full-withdrawal override fired. It is not required for correctness: the
// ledger entries are the authoritative trace. Records live in an in-memory
// ring buffer for inspection over the API.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/susu-network/susu/internal/domain"
)

// ─── Prometheus Metrics ─────────────────────────────────────────────────────

// Metrics holds the ledger engine's Prometheus collectors.
type Metrics struct {
	WithdrawalsTotal     prometheus.Counter
	DepositsTotal        prometheus.Counter
	ReversalsTotal       prometheus.Counter
	RateChangesTotal     prometheus.Counter
	PagesCompletedTotal  prometheus.Counter
	CycleNormalizations  prometheus.Counter
	InsufficientBalances prometheus.Counter
	OperationDuration    *prometheus.HistogramVec
}

// NewMetrics registers and returns the engine metrics on the default
// registry.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers on a caller-supplied registry (tests).
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WithdrawalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "susu_withdrawals_total",
			Help: "Successfully processed withdrawals.",
		}),
		DepositsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "susu_deposits_total",
			Help: "Successfully processed deposits.",
		}),
		ReversalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "susu_reversals_total",
			Help: "Successfully reversed withdrawals.",
		}),
		RateChangesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "susu_rate_changes_total",
			Help: "Account box-rate updates.",
		}),
		PagesCompletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "susu_pages_completed_total",
			Help: "Pages completed across all accounts (each earns one box of commission).",
		}),
		CycleNormalizations: factory.NewCounter(prometheus.CounterOpts{
			Name: "susu_cycle_normalizations_total",
			Help: "Cycle accumulators found at or above threshold and normalized via modulo.",
		}),
		InsufficientBalances: factory.NewCounter(prometheus.CounterOpts{
			Name: "susu_insufficient_balance_total",
			Help: "Withdrawals rejected for insufficient balance.",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "susu_operation_duration_seconds",
			Help:    "Ledger operation latency by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// ─── Commission Audit Trail ─────────────────────────────────────────────────

// AuditTrail is a bounded in-memory record of commission computations.
// It implements domain.AuditSink. When full, the oldest records are dropped.
type AuditTrail struct {
	mu      sync.Mutex
	records []domain.CommissionRecord
	max     int
}

// NewAuditTrail creates an audit trail holding up to max records
// (default 10_000 when max ≤ 0).
func NewAuditTrail(max int) *AuditTrail {
	if max <= 0 {
		max = 10_000
	}
	return &AuditTrail{records: make([]domain.CommissionRecord, 0, 64), max: max}
}

// RecordCommission appends a commission computation record.
func (a *AuditTrail) RecordCommission(rec domain.CommissionRecord) {
	rec.RecordedAt = time.Now().UTC()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	if len(a.records) > a.max {
		a.records = a.records[len(a.records)-a.max:]
	}
}

// Records returns a copy of the stored records, oldest first.
func (a *AuditTrail) Records() []domain.CommissionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.CommissionRecord, len(a.records))
	copy(out, a.records)
	return out
}

// ForAccount returns records for one account, oldest first.
func (a *AuditTrail) ForAccount(accountID string) []domain.CommissionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.CommissionRecord
	for _, r := range a.records {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out
}
