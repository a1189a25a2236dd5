package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/susu-network/susu/internal/domain"
)

// ─── Account Operations ─────────────────────────────────────────────────────

// CreateAccount inserts a new account. The opening balance may be zero.
func (d *DB) CreateAccount(ctx context.Context, a domain.Account) error {
	return createAccount(ctx, d.db, a)
}

// CreateAccount inserts a new account inside the transaction.
func (t *Tx) CreateAccount(ctx context.Context, a domain.Account) error {
	return createAccount(ctx, t.tx, a)
}

func createAccount(ctx context.Context, q querier, a domain.Account) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts (id, holder, rate, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Holder, a.Rate.String(), a.Balance.String(),
		a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by id.
func (d *DB) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return getAccount(ctx, d.db, id)
}

// GetAccount retrieves an account by id inside the transaction.
func (t *Tx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return getAccount(ctx, t.tx, id)
}

func getAccount(ctx context.Context, q querier, id string) (*domain.Account, error) {
	var (
		a                    domain.Account
		rateStr, balanceStr  string
		createdStr, savedStr string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, holder, rate, balance, created_at, updated_at
		FROM accounts WHERE id = ?
	`, id).Scan(&a.ID, &a.Holder, &rateStr, &balanceStr, &createdStr, &savedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	if a.Rate, err = decimal.NewFromString(rateStr); err != nil {
		return nil, fmt.Errorf("account %s: bad rate %q: %w", id, rateStr, err)
	}
	if a.Balance, err = decimal.NewFromString(balanceStr); err != nil {
		return nil, fmt.Errorf("account %s: bad balance %q: %w", id, balanceStr, err)
	}
	a.CreatedAt = decodeTimestamp(createdStr)
	a.UpdatedAt = decodeTimestamp(savedStr)
	return &a, nil
}

// UpdateBalance writes a new balance for the account.
func (t *Tx) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?
	`, balance.String(), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return checkAffected(res)
}

// UpdateRate writes a new box rate for the account.
func (t *Tx) UpdateRate(ctx context.Context, id string, rate decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE accounts SET rate = ?, updated_at = ? WHERE id = ?
	`, rate.String(), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("update rate: %w", err)
	}
	return checkAffected(res)
}

// ListAccounts returns all accounts ordered by id.
func (d *DB) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, holder, rate, balance, created_at, updated_at
		FROM accounts ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		var (
			a                    domain.Account
			rateStr, balanceStr  string
			createdStr, savedStr string
		)
		if err := rows.Scan(&a.ID, &a.Holder, &rateStr, &balanceStr, &createdStr, &savedStr); err != nil {
			return nil, err
		}
		if a.Rate, err = decimal.NewFromString(rateStr); err != nil {
			return nil, fmt.Errorf("account %s: bad rate %q: %w", a.ID, rateStr, err)
		}
		if a.Balance, err = decimal.NewFromString(balanceStr); err != nil {
			return nil, fmt.Errorf("account %s: bad balance %q: %w", a.ID, balanceStr, err)
		}
		a.CreatedAt = decodeTimestamp(createdStr)
		a.UpdatedAt = decodeTimestamp(savedStr)
		result = append(result, a)
	}
	return result, rows.Err()
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// it does not export a typed error for them.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
