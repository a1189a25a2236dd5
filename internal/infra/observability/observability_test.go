package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/susu-network/susu/internal/domain"
)

func TestNewMetricsWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)
	if m.WithdrawalsTotal == nil || m.OperationDuration == nil {
		t.Fatal("metrics not initialized")
	}

	m.WithdrawalsTotal.Inc()
	m.PagesCompletedTotal.Add(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	if len(families) == 0 {
		t.Error("no metric families registered")
	}
}

func TestAuditTrail_RecordAndQuery(t *testing.T) {
	trail := NewAuditTrail(0)

	trail.RecordCommission(domain.CommissionRecord{
		AccountID:      "acc-1",
		WithdrawalID:   "w-1",
		Commission:     decimal.RequireFromString("5"),
		PagesCompleted: 1,
	})
	trail.RecordCommission(domain.CommissionRecord{
		AccountID:    "acc-2",
		WithdrawalID: "w-2",
		Commission:   decimal.RequireFromString("10"),
	})

	if got := len(trail.Records()); got != 2 {
		t.Fatalf("Records() length = %d, want 2", got)
	}

	recs := trail.ForAccount("acc-1")
	if len(recs) != 1 {
		t.Fatalf("ForAccount(acc-1) length = %d, want 1", len(recs))
	}
	if recs[0].WithdrawalID != "w-1" {
		t.Errorf("WithdrawalID = %q, want %q", recs[0].WithdrawalID, "w-1")
	}
	if recs[0].RecordedAt.IsZero() {
		t.Error("RecordedAt should be stamped")
	}
}

func TestAuditTrail_Bounded(t *testing.T) {
	trail := NewAuditTrail(3)
	for i := 0; i < 10; i++ {
		trail.RecordCommission(domain.CommissionRecord{AccountID: "acc-1"})
	}
	if got := len(trail.Records()); got != 3 {
		t.Errorf("Records() length = %d, want 3", got)
	}
}
