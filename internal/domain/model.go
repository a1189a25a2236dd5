// Package domain contains the pure business types of the ledger. It has no
// infrastructure imports; the only dependency is the decimal money
// representation.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BoxesPerPage is the number of boxes a client must withdraw to complete
// one page. Completing a page earns the agent exactly one box of commission.
const BoxesPerPage = 31

// ─── Account Types ──────────────────────────────────────────────────────────

// Account is a client's savings account. Rate is the box value — the fixed
// unit the client saves in. Balance never goes negative.
type Account struct {
	ID        string          `json:"id"`
	Holder    string          `json:"holder,omitempty"`
	Rate      decimal.Decimal `json:"rate"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Threshold returns the page size in currency for the account's rate.
func (a Account) Threshold() decimal.Decimal {
	return PageThreshold(a.Rate)
}

// PageThreshold computes the page size in currency for a given box rate:
// BoxesPerPage × rate.
func PageThreshold(rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(BoxesPerPage))
}

// ─── Ledger Types ───────────────────────────────────────────────────────────

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryDeposit    EntryKind = "deposit"
	EntryWithdrawal EntryKind = "withdrawal"
	EntryCommission EntryKind = "commission"
	EntryReversal   EntryKind = "reversal"
)

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	switch k {
	case EntryDeposit, EntryWithdrawal, EntryCommission, EntryReversal:
		return true
	}
	return false
}

// LedgerEntry is a single immutable row in the account ledger. Entries are
// append-only; corrections are new entries, never mutation. Amount is signed:
// deposits and reversals positive, withdrawals and commissions negative.
//
// RelatedEntryID links a commission to the withdrawal that triggered it, and
// a reversal to the entry it compensates. Seq is a monotonic sequence used to
// break ties between entries on the same date; the ledger's total order is
// (OccurredOn, Seq).
type LedgerEntry struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Kind           EntryKind       `json:"kind"`
	OccurredOn     time.Time       `json:"occurred_on"`
	RelatedEntryID string          `json:"related_entry_id,omitempty"`
	Memo           string          `json:"memo,omitempty"`
	Seq            int64           `json:"seq"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ─── Cycle Types ────────────────────────────────────────────────────────────

// CycleState is the per-account commission accumulator: how far (in currency)
// the client is into the current page. Cumulative lives in [0, threshold); a
// stored value at or above threshold indicates drift and is normalized via
// modulo before use.
type CycleState struct {
	AccountID  string          `json:"account_id"`
	Cumulative decimal.Decimal `json:"cumulative"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CycleStatus is the read-only view of an account's page progress.
type CycleStatus struct {
	AccountID  string          `json:"account_id"`
	Cumulative decimal.Decimal `json:"cumulative"`
	Threshold  decimal.Decimal `json:"threshold"`
	Remaining  decimal.Decimal `json:"remaining"`
	Reached    bool            `json:"reached"`
}

// ─── Operation Results ──────────────────────────────────────────────────────

// WithdrawalResult reports the outcome of a processed withdrawal.
type WithdrawalResult struct {
	Withdrawal     LedgerEntry     `json:"withdrawal"`
	Commission     *LedgerEntry    `json:"commission,omitempty"`
	ClientGets     decimal.Decimal `json:"client_gets"`
	CommissionPaid decimal.Decimal `json:"commission_paid"`
	TotalDeduction decimal.Decimal `json:"total_deduction"`
	NewBalance     decimal.Decimal `json:"new_balance"`
	NewCumulative  decimal.Decimal `json:"new_cumulative"`
	PagesCompleted int             `json:"pages_completed"`
	FullWithdrawal bool            `json:"full_withdrawal"`
}

// DepositResult reports the outcome of a deposit.
type DepositResult struct {
	Deposit    LedgerEntry     `json:"deposit"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// ReversalResult reports the outcome of reversing a withdrawal.
type ReversalResult struct {
	Reversal           LedgerEntry     `json:"reversal"`
	CommissionReversal *LedgerEntry    `json:"commission_reversal,omitempty"`
	RestoredBalance    decimal.Decimal `json:"restored_balance"`
	RestoredCumulative decimal.Decimal `json:"restored_cumulative"`
}

// RateChangeResult reports the outcome of a rate update.
type RateChangeResult struct {
	AccountID          string          `json:"account_id"`
	OldRate            decimal.Decimal `json:"old_rate"`
	NewRate            decimal.Decimal `json:"new_rate"`
	CumulativeAdjusted bool            `json:"cumulative_adjusted"`
	NewCumulative      decimal.Decimal `json:"new_cumulative"`
}

// ─── Reporting Types ────────────────────────────────────────────────────────

// LedgerTotals aggregates an account's ledger over a date range, by kind.
// Per-kind sums are of absolute amounts.
type LedgerTotals struct {
	AccountID   string          `json:"account_id"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Deposits    decimal.Decimal `json:"deposits"`
	Withdrawals decimal.Decimal `json:"withdrawals"`
	Commissions decimal.Decimal `json:"commissions"`
	Reversals   decimal.Decimal `json:"reversals"`
	EntryCount  int             `json:"entry_count"`
}

// CommissionRecord is one commission computation, as seen by the audit sink.
type CommissionRecord struct {
	AccountID      string          `json:"account_id"`
	WithdrawalID   string          `json:"withdrawal_id"`
	Commission     decimal.Decimal `json:"commission"`
	PagesCompleted int             `json:"pages_completed"`
	FullWithdrawal bool            `json:"full_withdrawal"`
	OccurredOn     time.Time       `json:"occurred_on"`
	RecordedAt     time.Time       `json:"recorded_at"`
}
