// Package engine implements the commission cycle ledger engine: withdrawal
// processing with page-filling commission, reversals, rate changes, and the
// cycle accumulator operations.
//
// The commission rule: a client withdraws savings in boxes of their account
// rate; every 31 boxes of withdrawal completes a page and earns the agent
// exactly one box of commission. The engine tracks progress into the current
// page per account and settles commission at each page boundary.
//
// Every mutating operation runs as a single transaction under a per-account
// lock: the balance and the page accumulator are one unit of state, and two
// mutations on the same account never interleave. Mutations on different
// accounts proceed in parallel.
package engine

import (
	"log"
	"time"

	"github.com/susu-network/susu/internal/domain"
	"github.com/susu-network/susu/internal/infra/dsa"
	"github.com/susu-network/susu/internal/infra/observability"
	"github.com/susu-network/susu/internal/infra/sqlite"
)

// FullWithdrawalComparator names the comparison used to decide whether a
// withdrawal empties the account down to its last box. The original books
// were kept with the at-or-below rule; it is configurable because the two
// readings disagree exactly at the account's last box, where they change
// both commission collected and insufficient-balance outcomes.
type FullWithdrawalComparator int

const (
	// FullAtOrBelow treats a withdrawal as full when the starting balance
	// minus the requested amount is ≤ one box.
	FullAtOrBelow FullWithdrawalComparator = iota
	// FullStrictlyBelow treats it as full only when strictly < one box.
	FullStrictlyBelow
)

// Config controls engine behavior.
type Config struct {
	// FullWithdrawal selects the full-withdrawal comparator. The comparison
	// is evaluated once per withdrawal against the starting balance, never
	// re-evaluated per page.
	FullWithdrawal FullWithdrawalComparator
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{FullWithdrawal: FullAtOrBelow}
}

// Engine is the ledger engine. All operations are safe for concurrent use.
type Engine struct {
	db      *sqlite.DB
	locks   *dsa.KeyedMutex
	config  Config
	clock   domain.Clock
	audit   domain.AuditSink
	metrics *observability.Metrics
}

// New creates a ledger engine on top of the given store.
func New(db *sqlite.DB, cfg Config) *Engine {
	return &Engine{
		db:     db,
		locks:  dsa.NewKeyedMutex(),
		config: cfg,
		clock:  domain.ClockFunc(time.Now),
	}
}

// SetAuditSink attaches a commission audit sink. Diagnostic only; the
// engine notifies it after a withdrawal has committed.
func (e *Engine) SetAuditSink(sink domain.AuditSink) { e.audit = sink }

// SetMetrics attaches Prometheus metrics.
func (e *Engine) SetMetrics(m *observability.Metrics) { e.metrics = m }

// SetClock overrides the engine clock (tests).
func (e *Engine) SetClock(c domain.Clock) { e.clock = c }

// DB exposes the underlying store for read-only projections.
func (e *Engine) DB() *sqlite.DB { return e.db }

// observe records operation latency when metrics are attached.
func (e *Engine) observe(op string, start time.Time) {
	if e.metrics != nil {
		e.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) warnf(format string, args ...any) {
	log.Printf("WARN "+format, args...)
}
