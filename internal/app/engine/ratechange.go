package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/susu-network/susu/internal/domain"
	"github.com/susu-network/susu/internal/infra/sqlite"
)

// UpdateRate changes an account's box rate mid-cycle.
//
// Lowering the rate shrinks the box; if the accumulator already holds at
// least one new-size box, one box's worth is settled immediately under the
// new rate so the client is not asked to re-save progress they had already
// made. Raising the rate, or lowering it with less than one new box
// accrued, leaves the accumulator untouched.
func (e *Engine) UpdateRate(ctx context.Context, accountID string, newRate decimal.Decimal) (*domain.RateChangeResult, error) {
	defer e.observe("rate_change", time.Now())

	if !newRate.IsPositive() {
		return nil, domain.ErrInvalidRate
	}

	e.locks.Lock(accountID)
	defer e.locks.Unlock(accountID)

	var result *domain.RateChangeResult
	err := e.db.InTx(ctx, func(tx *sqlite.Tx) error {
		acct, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		cs, err := tx.GetOrCreateCycleState(ctx, accountID)
		if err != nil {
			return err
		}

		cumulative := cs.Cumulative
		adjusted := false
		if newRate.LessThan(acct.Rate) && cumulative.GreaterThanOrEqual(newRate) {
			cumulative = cumulative.Sub(newRate)
			adjusted = true
			if err := tx.UpdateCumulative(ctx, accountID, cumulative); err != nil {
				return err
			}
		}

		if err := tx.UpdateRate(ctx, accountID, newRate); err != nil {
			return err
		}

		result = &domain.RateChangeResult{
			AccountID:          accountID,
			OldRate:            acct.Rate,
			NewRate:            newRate,
			CumulativeAdjusted: adjusted,
			NewCumulative:      cumulative,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update rate: %w", err)
	}

	if e.metrics != nil {
		e.metrics.RateChangesTotal.Inc()
	}
	return result, nil
}
