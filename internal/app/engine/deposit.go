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

// Deposit appends a deposit entry and credits the balance. Deposits never
// touch the page accumulator — pages are filled by withdrawal only.
func (e *Engine) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, date time.Time) (*domain.DepositResult, error) {
	defer e.observe("deposit", time.Now())

	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	e.locks.Lock(accountID)
	defer e.locks.Unlock(accountID)

	var result *domain.DepositResult
	err := e.db.InTx(ctx, func(tx *sqlite.Tx) error {
		acct, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}

		entry := domain.LedgerEntry{
			ID:         uuid.NewString(),
			AccountID:  accountID,
			Amount:     amount,
			Kind:       domain.EntryDeposit,
			OccurredOn: date,
			CreatedAt:  e.clock.Now().UTC(),
		}
		if err := tx.InsertEntry(ctx, &entry); err != nil {
			return err
		}

		newBalance := acct.Balance.Add(amount)
		if err := tx.UpdateBalance(ctx, accountID, newBalance); err != nil {
			return err
		}

		result = &domain.DepositResult{Deposit: entry, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("process deposit: %w", err)
	}

	if e.metrics != nil {
		e.metrics.DepositsTotal.Inc()
	}
	return result, nil
}
