package domain

import "time"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the application layer depends on them.

// AuditSink receives a structured record of each commission computation.
// Diagnostic only — implementations must not affect correctness, and the
// engine calls it after the transaction has committed.
type AuditSink interface {
	RecordCommission(rec CommissionRecord)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }
