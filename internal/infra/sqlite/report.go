// Read-only ledger projections for reporting. These are plain filtered
// queries over the entry table; none of the commission logic lives here.

package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/susu-network/susu/internal/domain"
)

// ─── Reporting Projections ──────────────────────────────────────────────────

// CommissionHistory returns every commission entry for an account in ledger
// order.
func (d *DB) CommissionHistory(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	return d.ListEntries(ctx, EntryFilter{AccountID: accountID, Kind: domain.EntryCommission})
}

// TotalsByDateRange sums an account's entries per kind over [from, to]
// inclusive. Sums are of absolute amounts.
func (d *DB) TotalsByDateRange(ctx context.Context, accountID string, from, to time.Time) (*domain.LedgerTotals, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT kind, amount FROM ledger_entries
		WHERE account_id = ? AND occurred_on >= ? AND occurred_on <= ?
	`, accountID, encodeDate(from), encodeDate(to))
	if err != nil {
		return nil, fmt.Errorf("totals query: %w", err)
	}
	defer rows.Close()

	totals := &domain.LedgerTotals{
		AccountID:   accountID,
		From:        from,
		To:          to,
		Deposits:    decimal.Zero,
		Withdrawals: decimal.Zero,
		Commissions: decimal.Zero,
		Reversals:   decimal.Zero,
	}
	for rows.Next() {
		var kindStr, amountStr string
		if err := rows.Scan(&kindStr, &amountStr); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("totals: bad amount %q: %w", amountStr, err)
		}
		abs := amount.Abs()
		switch domain.EntryKind(kindStr) {
		case domain.EntryDeposit:
			totals.Deposits = totals.Deposits.Add(abs)
		case domain.EntryWithdrawal:
			totals.Withdrawals = totals.Withdrawals.Add(abs)
		case domain.EntryCommission:
			totals.Commissions = totals.Commissions.Add(abs)
		case domain.EntryReversal:
			totals.Reversals = totals.Reversals.Add(abs)
		}
		totals.EntryCount++
	}
	return totals, rows.Err()
}
