package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/susu-network/susu/internal/domain"
	"github.com/susu-network/susu/internal/infra/sqlite"
)

// ─── Cycle Tracker ──────────────────────────────────────────────────────────

// CycleState reports an account's page progress. Read-only: a drifted
// accumulator is reported as found, with Reached set, and is normalized by
// the next withdrawal rather than here.
func (e *Engine) CycleState(ctx context.Context, accountID string) (*domain.CycleStatus, error) {
	acct, err := e.db.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("cycle state: %w", err)
	}
	cs, err := e.db.GetCycleState(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("cycle state: %w", err)
	}

	threshold := acct.Threshold()
	remaining := threshold.Sub(cs.Cumulative)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return &domain.CycleStatus{
		AccountID:  accountID,
		Cumulative: cs.Cumulative,
		Threshold:  threshold,
		Remaining:  remaining,
		Reached:    cs.Cumulative.GreaterThanOrEqual(threshold),
	}, nil
}

// ResetCycle sets the account's accumulator to zero.
func (e *Engine) ResetCycle(ctx context.Context, accountID string) error {
	return e.setCycle(ctx, accountID, decimal.Zero)
}

// AdjustCycle force-sets the accumulator — an administrative correction
// that bypasses the page-filling algorithm. Negative values clamp to zero.
func (e *Engine) AdjustCycle(ctx context.Context, accountID string, value decimal.Decimal) error {
	if value.IsNegative() {
		value = decimal.Zero
	}
	return e.setCycle(ctx, accountID, value)
}

func (e *Engine) setCycle(ctx context.Context, accountID string, value decimal.Decimal) error {
	defer e.observe("cycle_set", time.Now())

	e.locks.Lock(accountID)
	defer e.locks.Unlock(accountID)

	err := e.db.InTx(ctx, func(tx *sqlite.Tx) error {
		if _, err := tx.GetAccount(ctx, accountID); err != nil {
			return err
		}
		if _, err := tx.GetOrCreateCycleState(ctx, accountID); err != nil {
			return err
		}
		return tx.UpdateCumulative(ctx, accountID, value)
	})
	if err != nil {
		return fmt.Errorf("set cycle: %w", err)
	}
	return nil
}

// ─── Account Registry ───────────────────────────────────────────────────────
// Minimal account surface so the service is operable on its own. The engine
// is the sole writer of balance and cycle state; holder details belong to
// the surrounding client registry.

// CreateAccount registers an account with a box rate and opening balance.
func (e *Engine) CreateAccount(ctx context.Context, id, holder string, rate, openingBalance decimal.Decimal) (*domain.Account, error) {
	if !rate.IsPositive() {
		return nil, domain.ErrInvalidRate
	}
	if openingBalance.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	now := e.clock.Now().UTC()
	acct := domain.Account{
		ID:        id,
		Holder:    holder,
		Rate:      rate,
		Balance:   openingBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.db.CreateAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &acct, nil
}

// GetAccount retrieves an account.
func (e *Engine) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return e.db.GetAccount(ctx, id)
}
