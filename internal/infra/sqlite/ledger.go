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

// ─── Ledger Entry Operations ────────────────────────────────────────────────
// The ledger is append-only: inserts only, no update or delete statements
// exist in this file.

// InsertEntry appends a ledger entry and fills in its assigned Seq.
func (t *Tx) InsertEntry(ctx context.Context, e *domain.LedgerEntry) error {
	var related any
	if e.RelatedEntryID != "" {
		related = e.RelatedEntryID
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, account_id, amount, kind, occurred_on, related_entry_id, memo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.AccountID, e.Amount.String(), string(e.Kind),
		encodeDate(e.OccurredOn), related, e.Memo, e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	e.Seq, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("ledger entry seq: %w", err)
	}
	return nil
}

// GetEntry retrieves a ledger entry by id.
func (d *DB) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	return getEntry(ctx, d.db, id)
}

// GetEntry retrieves a ledger entry by id inside the transaction.
func (t *Tx) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	return getEntry(ctx, t.tx, id)
}

func getEntry(ctx context.Context, q querier, id string) (*domain.LedgerEntry, error) {
	row := q.QueryRowContext(ctx, `
		SELECT seq, id, account_id, amount, kind, occurred_on, related_entry_id, memo, created_at
		FROM ledger_entries WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReversalTargetNotFound
	}
	return e, err
}

// FindRelated returns the entry of the given kind whose related_entry_id
// points at entryID, or nil if none exists. Used to locate the commission
// belonging to a withdrawal, and to detect prior reversals.
func (t *Tx) FindRelated(ctx context.Context, entryID string, kind domain.EntryKind) (*domain.LedgerEntry, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT seq, id, account_id, amount, kind, occurred_on, related_entry_id, memo, created_at
		FROM ledger_entries
		WHERE related_entry_id = ? AND kind = ?
		ORDER BY seq LIMIT 1
	`, entryID, string(kind))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// EntryFilter narrows ListEntries. Zero values mean "no constraint".
type EntryFilter struct {
	AccountID string
	Kind      domain.EntryKind
	From      time.Time
	To        time.Time
}

// ListEntries returns entries matching the filter in ledger order
// (occurred_on, seq). Replaying the result reproduces the account's
// cumulative trajectory.
func (d *DB) ListEntries(ctx context.Context, f EntryFilter) ([]domain.LedgerEntry, error) {
	query := `
		SELECT seq, id, account_id, amount, kind, occurred_on, related_entry_id, memo, created_at
		FROM ledger_entries WHERE 1=1`
	var args []any
	if f.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID)
	}
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if !f.From.IsZero() {
		query += ` AND occurred_on >= ?`
		args = append(args, encodeDate(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND occurred_on <= ?`
		args = append(args, encodeDate(f.To))
	}
	query += ` ORDER BY occurred_on, seq`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var result []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*domain.LedgerEntry, error) {
	var (
		e          domain.LedgerEntry
		amountStr  string
		kindStr    string
		dateStr    string
		relatedStr sql.NullString
		createdStr string
	)
	if err := s.Scan(&e.Seq, &e.ID, &e.AccountID, &amountStr, &kindStr, &dateStr, &relatedStr, &e.Memo, &createdStr); err != nil {
		return nil, err
	}
	var err error
	if e.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("entry %s: bad amount %q: %w", e.ID, amountStr, err)
	}
	e.Kind = domain.EntryKind(kindStr)
	e.OccurredOn = decodeDate(dateStr)
	if relatedStr.Valid {
		e.RelatedEntryID = relatedStr.String
	}
	e.CreatedAt = decodeTimestamp(createdStr)
	return &e, nil
}
