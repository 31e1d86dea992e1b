package payout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"stellarsignals/internal/errs"
	"stellarsignals/internal/models"
	"stellarsignals/internal/money"
	memrepository "stellarsignals/internal/repository/memory"
)

func newLedger() (*Ledger, *memrepository.Store) {
	store := memrepository.New()
	return &Ledger{Repo: store}, store
}

func recordSample(t *testing.T, ledger *Ledger) *models.ProviderRevenuePayout {
	t.Helper()
	item, err := ledger.Record(context.Background(), RecordParams{
		ProviderID:         "p1",
		TierLevel:          models.TierGold,
		BaseRevenue:        decimal.RequireFromString("1000"),
		SharePercentage:    decimal.RequireFromString("8"),
		RevenueShareAmount: decimal.RequireFromString("80"),
		BonusAmount:        decimal.RequireFromString("20"),
		WalletAddress:      "GABC123",
		PeriodYear:         2026,
		PeriodMonth:        7,
	})
	if err != nil {
		t.Fatalf("record payout: %v", err)
	}
	return item
}

func TestRecordComputesTotalAndDefaults(t *testing.T) {
	ledger, _ := newLedger()
	item := recordSample(t, ledger)

	if item.Status != models.PayoutStatusPending {
		t.Fatalf("new payout status = %s, want PENDING", item.Status)
	}
	if got := money.Format(item.TotalPayout); got != "100.00000000" {
		t.Fatalf("total = %s, want 100.00000000", got)
	}
	if item.AssetCode != models.PayoutAssetCode {
		t.Fatalf("asset code = %s, want %s", item.AssetCode, models.PayoutAssetCode)
	}
}

func TestRecordRequiresWallet(t *testing.T) {
	ledger, _ := newLedger()
	_, err := ledger.Record(context.Background(), RecordParams{
		ProviderID:  "p1",
		TierLevel:   models.TierGold,
		BonusAmount: decimal.RequireFromString("10"),
	})
	if !errs.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestConfirmLifecycle(t *testing.T) {
	ledger, _ := newLedger()
	item := recordSample(t, ledger)
	ctx := context.Background()

	confirmed, err := ledger.Confirm(ctx, item.ID, "abc123hash")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != models.PayoutStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", confirmed.Status)
	}
	if confirmed.StellarTxHash == nil || *confirmed.StellarTxHash != "abc123hash" {
		t.Fatalf("tx hash not stored: %v", confirmed.StellarTxHash)
	}
	if confirmed.PaidAt == nil {
		t.Fatal("paid_at must be set")
	}

	// Second confirm is an idempotent no-op.
	again, err := ledger.Confirm(ctx, item.ID, "different")
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if *again.StellarTxHash != "abc123hash" {
		t.Fatalf("idempotent confirm must not overwrite the hash, got %s", *again.StellarTxHash)
	}
}

func TestMarkFailedAndRetry(t *testing.T) {
	ledger, _ := newLedger()
	item := recordSample(t, ledger)
	ctx := context.Background()

	failed, err := ledger.MarkFailed(ctx, item.ID, "horizon timeout")
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if failed.Status != models.PayoutStatusFailed {
		t.Fatalf("status = %s, want FAILED", failed.Status)
	}
	if failed.FailureReason == nil || *failed.FailureReason != "horizon timeout" {
		t.Fatalf("failure reason not stored: %v", failed.FailureReason)
	}
	if failed.RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", failed.RetryCount)
	}

	retried, err := ledger.Retry(ctx, item.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Status != models.PayoutStatusPending {
		t.Fatalf("status = %s, want PENDING after retry", retried.Status)
	}
	if retried.FailureReason != nil {
		t.Fatalf("failure reason must be cleared, got %v", *retried.FailureReason)
	}
}

func TestRetryOnlyFromFailed(t *testing.T) {
	ledger, _ := newLedger()
	item := recordSample(t, ledger)

	_, err := ledger.Retry(context.Background(), item.ID)
	if !errs.IsInvalidState(err) {
		t.Fatalf("expected invalid state for PENDING retry, got %v", err)
	}
}

func TestRetryCapExceeded(t *testing.T) {
	ledger, _ := newLedger()
	item := recordSample(t, ledger)
	ctx := context.Background()

	for i := 0; i < models.MaxPayoutRetries; i++ {
		if _, err := ledger.MarkFailed(ctx, item.ID, "boom"); err != nil {
			t.Fatalf("fail %d: %v", i, err)
		}
		if i == models.MaxPayoutRetries-1 {
			break
		}
		if _, err := ledger.Retry(ctx, item.ID); err != nil {
			t.Fatalf("retry %d: %v", i, err)
		}
	}

	_, err := ledger.Retry(ctx, item.ID)
	if !errs.IsLimitExceeded(err) {
		t.Fatalf("expected limit exceeded after %d retries, got %v", models.MaxPayoutRetries, err)
	}
}

func TestFailCompletedPayoutRejected(t *testing.T) {
	ledger, _ := newLedger()
	item := recordSample(t, ledger)
	ctx := context.Background()

	if _, err := ledger.Confirm(ctx, item.ID, "hash"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	_, err := ledger.MarkFailed(ctx, item.ID, "late failure")
	if !errs.IsInvalidState(err) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestEscalate(t *testing.T) {
	ledger, _ := newLedger()
	item := recordSample(t, ledger)
	ctx := context.Background()

	escalated, err := ledger.Escalate(ctx, item.ID)
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if escalated.Status != models.PayoutStatusProcessing {
		t.Fatalf("status = %s, want PROCESSING", escalated.Status)
	}

	// Escalating again is an invalid transition.
	if _, err := ledger.Escalate(ctx, item.ID); !errs.IsInvalidState(err) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestGetUnknownPayout(t *testing.T) {
	ledger, _ := newLedger()
	_, err := ledger.Confirm(context.Background(), 999, "hash")
	if !errs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
