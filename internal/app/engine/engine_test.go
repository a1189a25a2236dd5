package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/susu-network/susu/internal/domain"
	"github.com/susu-network/susu/internal/infra/sqlite"
)

// ─── Test Helpers ───────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var testDate = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEngineWith(t, DefaultConfig())
}

func newTestEngineWith(t *testing.T, cfg Config) *Engine {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "susu.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, cfg)
}

// seedAccount creates an account with the given rate and balance.
func seedAccount(t *testing.T, e *Engine, id, rate, balance string) {
	t.Helper()
	if _, err := e.CreateAccount(context.Background(), id, "", dec(rate), dec(balance)); err != nil {
		t.Fatalf("seed account %s: %v", id, err)
	}
}

func mustWithdraw(t *testing.T, e *Engine, id, amount string) *domain.WithdrawalResult {
	t.Helper()
	res, err := e.ProcessWithdrawal(context.Background(), id, dec(amount), testDate)
	if err != nil {
		t.Fatalf("withdraw %s from %s: %v", amount, id, err)
	}
	return res
}

func wantEq(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

// ─── Account Registry ───────────────────────────────────────────────────────

func TestCreateAccount(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct, err := e.CreateAccount(ctx, "acc-1", "Ama", dec("5"), dec("200"))
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	wantEq(t, "Rate", acct.Rate, dec("5"))
	wantEq(t, "Balance", acct.Balance, dec("200"))

	if _, err := e.CreateAccount(ctx, "acc-1", "Ama", dec("5"), dec("0")); !errors.Is(err, domain.ErrAccountExists) {
		t.Errorf("duplicate create error = %v, want ErrAccountExists", err)
	}
	if _, err := e.CreateAccount(ctx, "acc-2", "", dec("0"), dec("0")); !errors.Is(err, domain.ErrInvalidRate) {
		t.Errorf("zero rate error = %v, want ErrInvalidRate", err)
	}
	if _, err := e.CreateAccount(ctx, "acc-3", "", dec("5"), dec("-1")); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("negative opening balance error = %v, want ErrInvalidAmount", err)
	}
}

// ─── Deposit ────────────────────────────────────────────────────────────────

func TestDeposit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, e, "acc-1", "5", "0")

	res, err := e.Deposit(ctx, "acc-1", dec("25"), testDate)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	wantEq(t, "NewBalance", res.NewBalance, dec("25"))
	wantEq(t, "entry amount", res.Deposit.Amount, dec("25"))
	if res.Deposit.Kind != domain.EntryDeposit {
		t.Errorf("entry kind = %q, want deposit", res.Deposit.Kind)
	}

	// Deposits never advance the page accumulator.
	cs, err := e.CycleState(ctx, "acc-1")
	if err != nil {
		t.Fatalf("CycleState: %v", err)
	}
	wantEq(t, "Cumulative", cs.Cumulative, decimal.Zero)
}

func TestDeposit_Invalid(t *testing.T) {
	e := newTestEngine(t)
	seedAccount(t, e, "acc-1", "5", "0")

	if _, err := e.Deposit(context.Background(), "acc-1", dec("0"), testDate); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("zero deposit error = %v, want ErrInvalidAmount", err)
	}
	if _, err := e.Deposit(context.Background(), "nope", dec("5"), testDate); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("missing account error = %v, want ErrAccountNotFound", err)
	}
}

// ─── Cycle Tracker ──────────────────────────────────────────────────────────

func TestCycleState_FreshAccount(t *testing.T) {
	e := newTestEngine(t)
	seedAccount(t, e, "acc-1", "5", "200")

	cs, err := e.CycleState(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("CycleState: %v", err)
	}
	wantEq(t, "Cumulative", cs.Cumulative, decimal.Zero)
	wantEq(t, "Threshold", cs.Threshold, dec("155"))
	wantEq(t, "Remaining", cs.Remaining, dec("155"))
	if cs.Reached {
		t.Error("Reached = true, want false")
	}
}

func TestCycleState_ReportsDriftWithoutFixing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, e, "acc-1", "5", "200")

	// Administrative adjust can push the accumulator past threshold;
	// the read-only view reports it as found.
	if err := e.AdjustCycle(ctx, "acc-1", dec("160")); err != nil {
		t.Fatalf("AdjustCycle: %v", err)
	}
	cs, err := e.CycleState(ctx, "acc-1")
	if err != nil {
		t.Fatalf("CycleState: %v", err)
	}
	wantEq(t, "Cumulative", cs.Cumulative, dec("160"))
	wantEq(t, "Remaining", cs.Remaining, decimal.Zero)
	if !cs.Reached {
		t.Error("Reached = false, want true")
	}
}

func TestResetCycle(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, e, "acc-1", "5", "200")
	mustWithdraw(t, e, "acc-1", "100")

	if err := e.ResetCycle(ctx, "acc-1"); err != nil {
		t.Fatalf("ResetCycle: %v", err)
	}
	cs, _ := e.CycleState(ctx, "acc-1")
	wantEq(t, "Cumulative", cs.Cumulative, decimal.Zero)
}

func TestAdjustCycle_ClampsNegative(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	seedAccount(t, e, "acc-1", "5", "200")

	if err := e.AdjustCycle(ctx, "acc-1", dec("-40")); err != nil {
		t.Fatalf("AdjustCycle: %v", err)
	}
	cs, _ := e.CycleState(ctx, "acc-1")
	wantEq(t, "Cumulative", cs.Cumulative, decimal.Zero)
}

func TestCycleOps_MissingAccount(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.CycleState(context.Background(), "nope"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("CycleState error = %v, want ErrAccountNotFound", err)
	}
	if err := e.ResetCycle(context.Background(), "nope"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("ResetCycle error = %v, want ErrAccountNotFound", err)
	}
}

// ─── Rate Change ────────────────────────────────────────────────────────────

func TestUpdateRate(t *testing.T) {
	tests := []struct {
		name         string
		oldRate      string
		cumulative   string
		newRate      string
		wantAdjusted bool
		wantCum      string
	}{
		{
			// Lowering with at least one new-size box accrued settles one
			// box immediately under the new rate.
			name:    "lowered with settle",
			oldRate: "10", cumulative: "7", newRate: "5",
			wantAdjusted: true, wantCum: "2",
		},
		{
			name:    "lowered below accrued box",
			oldRate: "10", cumulative: "3", newRate: "5",
			wantAdjusted: false, wantCum: "3",
		},
		{
			name:    "raised leaves accumulator",
			oldRate: "5", cumulative: "7", newRate: "10",
			wantAdjusted: false, wantCum: "7",
		},
		{
			name:    "unchanged rate",
			oldRate: "5", cumulative: "7", newRate: "5",
			wantAdjusted: false, wantCum: "7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			ctx := context.Background()
			seedAccount(t, e, "acc-1", tt.oldRate, "1000")
			if err := e.AdjustCycle(ctx, "acc-1", dec(tt.cumulative)); err != nil {
				t.Fatalf("AdjustCycle: %v", err)
			}

			res, err := e.UpdateRate(ctx, "acc-1", dec(tt.newRate))
			if err != nil {
				t.Fatalf("UpdateRate: %v", err)
			}
			wantEq(t, "OldRate", res.OldRate, dec(tt.oldRate))
			wantEq(t, "NewRate", res.NewRate, dec(tt.newRate))
			if res.CumulativeAdjusted != tt.wantAdjusted {
				t.Errorf("CumulativeAdjusted = %v, want %v", res.CumulativeAdjusted, tt.wantAdjusted)
			}
			wantEq(t, "NewCumulative", res.NewCumulative, dec(tt.wantCum))

			acct, err := e.GetAccount(ctx, "acc-1")
			if err != nil {
				t.Fatalf("GetAccount: %v", err)
			}
			wantEq(t, "stored rate", acct.Rate, dec(tt.newRate))
		})
	}
}

func TestUpdateRate_Invalid(t *testing.T) {
	e := newTestEngine(t)
	seedAccount(t, e, "acc-1", "5", "0")

	if _, err := e.UpdateRate(context.Background(), "acc-1", dec("0")); !errors.Is(err, domain.ErrInvalidRate) {
		t.Errorf("zero rate error = %v, want ErrInvalidRate", err)
	}
	if _, err := e.UpdateRate(context.Background(), "nope", dec("5")); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("missing account error = %v, want ErrAccountNotFound", err)
	}
}
