package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrInvalidRate     = errors.New("rate must be positive")

	// Withdrawal errors
	ErrInvalidAmount = errors.New("amount must be positive")

	// Reversal errors
	ErrReversalTargetNotFound = errors.New("withdrawal entry not found")
	ErrNotAWithdrawal         = errors.New("entry is not a withdrawal")
	ErrAlreadyReversed        = errors.New("withdrawal already reversed")
)

// InsufficientBalanceError reports a withdrawal whose total deduction
// (client payout plus commission) exceeds the account balance. It carries
// the shortfall so callers can tell the client exactly how much is missing.
type InsufficientBalanceError struct {
	AccountID string
	Balance   decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on account %s: have %s, need %s (short %s)",
		e.AccountID, e.Balance, e.Required, e.Shortfall())
}

// Shortfall returns the amount missing from the account.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Balance)
}

// IsInsufficientBalance reports whether err is an InsufficientBalanceError.
func IsInsufficientBalance(err error) bool {
	var ib *InsufficientBalanceError
	return errors.As(err, &ib)
}
