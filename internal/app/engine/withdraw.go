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

// ProcessWithdrawal runs the page-filling algorithm for a withdrawal request
// and commits the resulting ledger entries, balance, and accumulator as one
// transaction.
//
// The requested amount is consumed page by page. Each completed page settles
// one box of commission and pays the client the page's client share; leftover
// below a page boundary accrues into the accumulator and is paid out in full.
// A full withdrawal — one that drains the account to its last box — force-
// settles the open page: commission is still collected, funded from the
// account balance rather than the payout, so the client receives the
// requested amount undiminished.
func (e *Engine) ProcessWithdrawal(ctx context.Context, accountID string, amount decimal.Decimal, date time.Time) (*domain.WithdrawalResult, error) {
	defer e.observe("withdraw", time.Now())

	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	e.locks.Lock(accountID)
	defer e.locks.Unlock(accountID)

	var result *domain.WithdrawalResult
	err := e.db.InTx(ctx, func(tx *sqlite.Tx) error {
		acct, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if !acct.Rate.IsPositive() {
			return domain.ErrInvalidRate
		}

		cs, err := tx.GetOrCreateCycleState(ctx, accountID)
		if err != nil {
			return err
		}

		threshold := acct.Threshold()
		cumulative := e.normalized(accountID, cs.Cumulative, threshold)

		split := fillPages(pageInput{
			Rate:       acct.Rate,
			Threshold:  threshold,
			Cumulative: cumulative,
			Amount:     amount,
			IsFull:     e.isFull(acct.Balance, amount, acct.Rate),
		})

		total := split.ClientGets.Add(split.Commission)
		if acct.Balance.LessThan(total) {
			if e.metrics != nil {
				e.metrics.InsufficientBalances.Inc()
			}
			return &domain.InsufficientBalanceError{
				AccountID: accountID,
				Balance:   acct.Balance,
				Required:  total,
			}
		}

		now := e.clock.Now().UTC()
		withdrawal := domain.LedgerEntry{
			ID:         uuid.NewString(),
			AccountID:  accountID,
			Amount:     split.ClientGets.Neg(),
			Kind:       domain.EntryWithdrawal,
			OccurredOn: date,
			CreatedAt:  now,
		}
		if err := tx.InsertEntry(ctx, &withdrawal); err != nil {
			return err
		}

		var commission *domain.LedgerEntry
		if split.Commission.IsPositive() {
			commission = &domain.LedgerEntry{
				ID:             uuid.NewString(),
				AccountID:      accountID,
				Amount:         split.Commission.Neg(),
				Kind:           domain.EntryCommission,
				OccurredOn:     date,
				RelatedEntryID: withdrawal.ID,
				CreatedAt:      now,
			}
			if err := tx.InsertEntry(ctx, commission); err != nil {
				return err
			}
		}

		newBalance := acct.Balance.Sub(total)
		if err := tx.UpdateBalance(ctx, accountID, newBalance); err != nil {
			return err
		}
		if err := tx.UpdateCumulative(ctx, accountID, split.Cumulative); err != nil {
			return err
		}

		result = &domain.WithdrawalResult{
			Withdrawal:     withdrawal,
			Commission:     commission,
			ClientGets:     split.ClientGets,
			CommissionPaid: split.Commission,
			TotalDeduction: total,
			NewBalance:     newBalance,
			NewCumulative:  split.Cumulative,
			PagesCompleted: split.Pages,
			FullWithdrawal: split.IsFull,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("process withdrawal: %w", err)
	}

	if e.metrics != nil {
		e.metrics.WithdrawalsTotal.Inc()
		e.metrics.PagesCompletedTotal.Add(float64(result.PagesCompleted))
	}
	if e.audit != nil && result.Commission != nil {
		e.audit.RecordCommission(domain.CommissionRecord{
			AccountID:      accountID,
			WithdrawalID:   result.Withdrawal.ID,
			Commission:     result.CommissionPaid,
			PagesCompleted: result.PagesCompleted,
			FullWithdrawal: result.FullWithdrawal,
			OccurredOn:     date,
		})
	}
	return result, nil
}

// isFull applies the configured full-withdrawal comparator once, against the
// balance before the withdrawal.
func (e *Engine) isFull(startingBalance, requested, rate decimal.Decimal) bool {
	after := startingBalance.Sub(requested)
	if e.config.FullWithdrawal == FullStrictlyBelow {
		return after.LessThan(rate)
	}
	return after.LessThanOrEqual(rate)
}

// normalized guards against accumulator drift: a stored cumulative at or
// above threshold is folded back via modulo. Never expected in a correct
// run, hence the warning.
func (e *Engine) normalized(accountID string, cumulative, threshold decimal.Decimal) decimal.Decimal {
	if cumulative.LessThan(threshold) {
		return cumulative
	}
	folded := cumulative.Mod(threshold)
	e.warnf("cycle state for account %s at %s exceeds threshold %s, normalized to %s",
		accountID, cumulative, threshold, folded)
	if e.metrics != nil {
		e.metrics.CycleNormalizations.Inc()
	}
	return folded
}

// pageInput is the state the page-filling computation runs on.
type pageInput struct {
	Rate       decimal.Decimal
	Threshold  decimal.Decimal
	Cumulative decimal.Decimal
	Amount     decimal.Decimal
	IsFull     bool
}

// pageSplit is the computed commission/payout split.
type pageSplit struct {
	ClientGets decimal.Decimal
	Commission decimal.Decimal
	Cumulative decimal.Decimal
	Pages      int
	IsFull     bool
}

// fillPages consumes the requested amount against the account's pages.
// Pure computation — no storage access, fully deterministic.
//
// Per-page the client share is threshold minus one box; the carry in the
// accumulator is paid out alongside it when the boundary is crossed. A
// request large enough to cross several boundaries settles one box of
// commission per page.
func fillPages(in pageInput) pageSplit {
	out := pageSplit{
		ClientGets: decimal.Zero,
		Commission: decimal.Zero,
		Cumulative: in.Cumulative,
		IsFull:     in.IsFull,
	}
	remaining := in.Amount

	for remaining.IsPositive() {
		needed := in.Threshold.Sub(out.Cumulative)
		switch {
		case remaining.GreaterThanOrEqual(needed):
			// Page boundary crossed: settle one box, pay the carry plus
			// the page remainder net of commission.
			out.Commission = out.Commission.Add(in.Rate)
			out.ClientGets = out.ClientGets.Add(out.Cumulative).Add(needed.Sub(in.Rate))
			remaining = remaining.Sub(needed)
			out.Cumulative = decimal.Zero
			out.Pages++
		case in.IsFull:
			// Account drained to its last box: force-settle the open page.
			// Commission comes out of the balance, not the payout — the
			// client receives the requested amount undiminished.
			out.Commission = out.Commission.Add(in.Rate)
			out.ClientGets = out.ClientGets.Add(out.Cumulative).Add(remaining)
			remaining = decimal.Zero
			out.Cumulative = decimal.Zero
			out.Pages++
		default:
			// Below the boundary: accrue and pay out in full.
			out.Cumulative = out.Cumulative.Add(remaining)
			out.ClientGets = out.ClientGets.Add(remaining)
			remaining = decimal.Zero
		}
	}
	return out
}
