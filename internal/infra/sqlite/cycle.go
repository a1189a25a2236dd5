package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/susu-network/susu/internal/domain"
)

// ─── Cycle State Operations ─────────────────────────────────────────────────

// GetOrCreateCycleState returns the account's accumulator row, creating it
// at zero the first time the account is touched.
func (t *Tx) GetOrCreateCycleState(ctx context.Context, accountID string) (*domain.CycleState, error) {
	cs, err := getCycleState(ctx, t.tx, accountID)
	if err == nil {
		return cs, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO cycle_states (account_id, cumulative, updated_at) VALUES (?, '0', ?)
	`, accountID, now.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("create cycle state: %w", err)
	}
	return &domain.CycleState{
		AccountID:  accountID,
		Cumulative: decimal.Zero,
		UpdatedAt:  now,
	}, nil
}

// GetCycleState returns the account's accumulator row without creating it.
// A missing row reads as cumulative zero.
func (d *DB) GetCycleState(ctx context.Context, accountID string) (*domain.CycleState, error) {
	cs, err := getCycleState(ctx, d.db, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.CycleState{AccountID: accountID, Cumulative: decimal.Zero}, nil
	}
	return cs, err
}

func getCycleState(ctx context.Context, q querier, accountID string) (*domain.CycleState, error) {
	var (
		cs            domain.CycleState
		cumulativeStr string
		updatedStr    string
	)
	err := q.QueryRowContext(ctx, `
		SELECT account_id, cumulative, updated_at FROM cycle_states WHERE account_id = ?
	`, accountID).Scan(&cs.AccountID, &cumulativeStr, &updatedStr)
	if err != nil {
		return nil, err
	}
	if cs.Cumulative, err = decimal.NewFromString(cumulativeStr); err != nil {
		return nil, fmt.Errorf("cycle state %s: bad cumulative %q: %w", accountID, cumulativeStr, err)
	}
	cs.UpdatedAt = decodeTimestamp(updatedStr)
	return &cs, nil
}

// UpdateCumulative writes a new accumulator value for the account.
func (t *Tx) UpdateCumulative(ctx context.Context, accountID string, cumulative decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO cycle_states (account_id, cumulative, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			cumulative = excluded.cumulative,
			updated_at = excluded.updated_at
	`, accountID, cumulative.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("update cumulative: %w", err)
	}
	return nil
}
