package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/susu-network/susu/internal/domain"
	"github.com/susu-network/susu/internal/infra/sqlite"
)

// ReverseWithdrawal undoes a previously processed withdrawal and its linked
// commission by appending compensating entries — the originals are never
// mutated. Balance restoration is exact: the account gets back the payout
// plus the commission, to the unit. Accumulator restoration is best-effort:
// no snapshot of the pre-withdrawal accumulator was kept, so it is
// reconstructed by walking completed pages backwards (see restoreCumulative).
//
// A withdrawal can be reversed at most once.
func (e *Engine) ReverseWithdrawal(ctx context.Context, withdrawalID, reason string) (*domain.ReversalResult, error) {
	defer e.observe("reverse", time.Now())

	// Resolve the account before taking its lock. The entry is immutable,
	// so the pre-lock read cannot go stale.
	target, err := e.db.GetEntry(ctx, withdrawalID)
	if err != nil {
		return nil, fmt.Errorf("reverse withdrawal: %w", err)
	}
	if target.Kind != domain.EntryWithdrawal {
		return nil, fmt.Errorf("reverse withdrawal: %w", domain.ErrNotAWithdrawal)
	}

	e.locks.Lock(target.AccountID)
	defer e.locks.Unlock(target.AccountID)

	var result *domain.ReversalResult
	err = e.db.InTx(ctx, func(tx *sqlite.Tx) error {
		prior, err := tx.FindRelated(ctx, withdrawalID, domain.EntryReversal)
		if err != nil {
			return err
		}
		if prior != nil {
			return domain.ErrAlreadyReversed
		}

		commission, err := tx.FindRelated(ctx, withdrawalID, domain.EntryCommission)
		if err != nil {
			return err
		}

		acct, err := tx.GetAccount(ctx, target.AccountID)
		if err != nil {
			return err
		}
		cs, err := tx.GetOrCreateCycleState(ctx, target.AccountID)
		if err != nil {
			return err
		}

		withdrawn := target.Amount.Abs()
		commissionAmt := decimal.Zero
		if commission != nil {
			commissionAmt = commission.Amount.Abs()
		}

		// Conservation of money: the exact total deducted comes back.
		restoredBalance := acct.Balance.Add(withdrawn).Add(commissionAmt)
		restoredCumulative := restoreCumulative(cs.Cumulative, withdrawn, commissionAmt, acct.Rate)

		now := e.clock.Now().UTC()
		reversal := domain.LedgerEntry{
			ID:             uuid.NewString(),
			AccountID:      target.AccountID,
			Amount:         withdrawn,
			Kind:           domain.EntryReversal,
			OccurredOn:     now,
			RelatedEntryID: target.ID,
			Memo:           reason,
			CreatedAt:      now,
		}
		if err := tx.InsertEntry(ctx, &reversal); err != nil {
			return err
		}

		var commissionReversal *domain.LedgerEntry
		if commission != nil {
			commissionReversal = &domain.LedgerEntry{
				ID:             uuid.NewString(),
				AccountID:      target.AccountID,
				Amount:         commissionAmt,
				Kind:           domain.EntryReversal,
				OccurredOn:     now,
				RelatedEntryID: commission.ID,
				Memo:           reason,
				CreatedAt:      now,
			}
			if err := tx.InsertEntry(ctx, commissionReversal); err != nil {
				return err
			}
		}

		if err := tx.UpdateBalance(ctx, target.AccountID, restoredBalance); err != nil {
			return err
		}
		if err := tx.UpdateCumulative(ctx, target.AccountID, restoredCumulative); err != nil {
			return err
		}

		result = &domain.ReversalResult{
			Reversal:           reversal,
			CommissionReversal: commissionReversal,
			RestoredBalance:    restoredBalance,
			RestoredCumulative: restoredCumulative,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reverse withdrawal: %w", err)
	}

	if e.metrics != nil {
		e.metrics.ReversalsTotal.Inc()
	}
	return result, nil
}

// restoreCumulative reconstructs the pre-withdrawal accumulator.
//
// The forward algorithm consumed (payout + commission) out of the page
// trajectory, resetting the accumulator at each boundary. Walking back:
// subtract the gross deduction, then re-add one threshold per completed page
// (inferred from commission ÷ rate) while the running value is negative.
// The result is clamped to ≥ 0 — for withdrawals that force-settled an
// incomplete page the true prior value is unrecoverable, so this is
// best-effort by construction. Balance restoration never depends on it.
func restoreCumulative(cumulative, withdrawn, commission, rate decimal.Decimal) decimal.Decimal {
	if commission.IsZero() {
		restored := cumulative.Sub(withdrawn)
		if restored.IsNegative() {
			return decimal.Zero
		}
		return restored
	}

	pages := int64(0)
	if rate.IsPositive() {
		pages = commission.Div(rate).IntPart()
	}
	threshold := domain.PageThreshold(rate)

	tmp := cumulative.Sub(withdrawn).Sub(commission)
	for tmp.IsNegative() && pages > 0 {
		tmp = tmp.Add(threshold)
		pages--
	}
	if tmp.IsNegative() {
		return decimal.Zero
	}
	return tmp
}
