package revshare

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"stellarsignals/internal/errs"
	"stellarsignals/internal/models"
	"stellarsignals/internal/money"
	"stellarsignals/internal/payout"
	"stellarsignals/internal/provider"
	"stellarsignals/internal/repository"
	memrepository "stellarsignals/internal/repository/memory"
	"stellarsignals/internal/tier"
)

type stubMetrics struct {
	byID    map[string]provider.Metrics
	streaks map[string]int
}

func (s *stubMetrics) Metrics(ctx context.Context, providerID string) (provider.Metrics, error) {
	m, ok := s.byID[providerID]
	if !ok {
		return provider.Metrics{ProviderID: providerID}, nil
	}
	return m, nil
}

func (s *stubMetrics) List(ctx context.Context) ([]provider.Metrics, error) {
	out := make([]provider.Metrics, 0, len(s.byID))
	for _, m := range s.byID {
		out = append(out, m)
	}
	return out, nil
}

func (s *stubMetrics) Streak(ctx context.Context, providerID string) (int, error) {
	return s.streaks[providerID], nil
}

type stubWallets struct {
	byID map[string]string
}

func (s *stubWallets) WalletAddress(ctx context.Context, providerID string) (string, error) {
	addr, ok := s.byID[providerID]
	if !ok {
		return "", fmt.Errorf("%w: provider %s has no wallet address", errs.ErrNotFound, providerID)
	}
	return addr, nil
}

type fixture struct {
	store   *memrepository.Store
	catalog *tier.Catalog
	metrics *stubMetrics
	wallets *stubWallets
	calc    *Calculator
	batch   *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memrepository.New()
	catalog := &tier.Catalog{Repo: store}
	if err := catalog.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}
	metrics := &stubMetrics{byID: map[string]provider.Metrics{}, streaks: map[string]int{}}
	wallets := &stubWallets{byID: map[string]string{}}
	ledger := &payout.Ledger{Repo: store}
	evaluator := &tier.Evaluator{
		Repo:    store,
		Catalog: catalog,
		Ledger:  ledger,
		Metrics: metrics,
		Wallets: wallets,
	}
	calc := &Calculator{
		Repo:      store,
		Catalog:   catalog,
		Evaluator: evaluator,
		Ledger:    ledger,
		Metrics:   metrics,
		Wallets:   wallets,
	}
	batch := &Orchestrator{
		Repo:    store,
		Calc:    calc,
		Catalog: catalog,
		Ledger:  ledger,
		Wallets: wallets,
	}
	return &fixture{
		store:   store,
		catalog: catalog,
		metrics: metrics,
		wallets: wallets,
		calc:    calc,
		batch:   batch,
	}
}

// assignTier pins a provider's tier directly, bypassing evaluation.
func (f *fixture) assignTier(t *testing.T, providerID string, level models.TierLevel) {
	t.Helper()
	err := f.store.UpsertAssignment(context.Background(), &models.ProviderTierAssignment{
		ProviderID:  providerID,
		CurrentTier: level,
	})
	if err != nil {
		t.Fatalf("assign tier: %v", err)
	}
}

func TestCalculateGoldWithBonus(t *testing.T) {
	f := newFixture(t)
	f.assignTier(t, "p1", models.TierGold)

	calc, err := f.calc.Calculate(context.Background(), "p1", decimal.RequireFromString("1000"), true)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if calc.TierLevel != models.TierGold {
		t.Fatalf("tier = %s, want GOLD", calc.TierLevel)
	}
	if got := money.Format(calc.RevenueShareAmount); got != "80.00000000" {
		t.Fatalf("share = %s, want 80.00000000", got)
	}
	if got := money.Format(calc.BonusAmount); got != "20.00000000" {
		t.Fatalf("bonus = %s, want 20.00000000", got)
	}
	if got := money.Format(calc.TotalPayout); got != "100.00000000" {
		t.Fatalf("total = %s, want 100.00000000", got)
	}
	if calc.BonusType == nil || *calc.BonusType != models.BonusMonthlyTop {
		t.Fatalf("bonus type = %v, want MONTHLY_TOP", calc.BonusType)
	}
}

func TestCalculateWithoutBonus(t *testing.T) {
	f := newFixture(t)
	f.assignTier(t, "p1", models.TierGold)

	calc, err := f.calc.Calculate(context.Background(), "p1", decimal.RequireFromString("1000"), false)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !calc.BonusAmount.IsZero() || calc.BonusType != nil {
		t.Fatalf("expected zero bonus, got %+v", calc)
	}
	if got := money.Format(calc.TotalPayout); got != "80.00000000" {
		t.Fatalf("total = %s, want 80.00000000", got)
	}
}

func TestCalculateRejectsNonPositiveRevenue(t *testing.T) {
	f := newFixture(t)
	f.assignTier(t, "p1", models.TierGold)

	for _, raw := range []string{"0", "-5"} {
		_, err := f.calc.Calculate(context.Background(), "p1", decimal.RequireFromString(raw), true)
		if !errs.IsInvalidArgument(err) {
			t.Fatalf("base revenue %s: expected invalid argument, got %v", raw, err)
		}
	}
}

func TestCalculateFirstTimeProviderEvaluates(t *testing.T) {
	f := newFixture(t)

	// No assignment yet; zero metrics resolve to the BRONZE floor at 5%.
	calc, err := f.calc.Calculate(context.Background(), "newcomer", decimal.RequireFromString("200"), false)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if calc.TierLevel != models.TierBronze {
		t.Fatalf("tier = %s, want BRONZE", calc.TierLevel)
	}
	if got := money.Format(calc.RevenueShareAmount); got != "10.00000000" {
		t.Fatalf("share = %s, want 10.00000000", got)
	}

	assignment, err := f.store.GetAssignmentByProviderID(context.Background(), "newcomer")
	if err != nil {
		t.Fatalf("load assignment: %v", err)
	}
	if assignment == nil {
		t.Fatal("first-time calculation must persist an assignment")
	}
}

func TestProcessProviderPayoutEscalatesTopTiers(t *testing.T) {
	f := newFixture(t)
	f.wallets.byID["p1"] = "GELITE1"
	f.assignTier(t, "p1", models.TierElite)

	item, err := f.calc.ProcessProviderPayout(context.Background(), "p1", decimal.RequireFromString("1000"), PayoutOptions{
		IncludeBonus: true,
		PeriodYear:   2026,
		PeriodMonth:  7,
	})
	if err != nil {
		t.Fatalf("process payout: %v", err)
	}
	if item.Status != models.PayoutStatusProcessing {
		t.Fatalf("ELITE payout status = %s, want PROCESSING", item.Status)
	}
	// 12.5% of 1000 plus the 100 retention bonus.
	if got := money.Format(item.TotalPayout); got != "225.00000000" {
		t.Fatalf("total = %s, want 225.00000000", got)
	}
}

func TestProcessProviderPayoutLowerTierStaysPending(t *testing.T) {
	f := newFixture(t)
	f.wallets.byID["p1"] = "GGOLD1"
	f.assignTier(t, "p1", models.TierGold)

	item, err := f.calc.ProcessProviderPayout(context.Background(), "p1", decimal.RequireFromString("1000"), PayoutOptions{})
	if err != nil {
		t.Fatalf("process payout: %v", err)
	}
	if item.Status != models.PayoutStatusPending {
		t.Fatalf("GOLD payout status = %s, want PENDING", item.Status)
	}
}

func TestProcessProviderPayoutMissingWallet(t *testing.T) {
	f := newFixture(t)
	f.assignTier(t, "p1", models.TierGold)

	_, err := f.calc.ProcessProviderPayout(context.Background(), "p1", decimal.RequireFromString("1000"), PayoutOptions{})
	if !errs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProcessProviderPayoutBonusOverride(t *testing.T) {
	f := newFixture(t)
	f.wallets.byID["p1"] = "GGOLD1"
	f.assignTier(t, "p1", models.TierGold)

	override := decimal.RequireFromString("33.5")
	item, err := f.calc.ProcessProviderPayout(context.Background(), "p1", decimal.RequireFromString("1000"), PayoutOptions{
		IncludeBonus:  true,
		BonusOverride: &override,
	})
	if err != nil {
		t.Fatalf("process payout: %v", err)
	}
	if got := money.Format(item.BonusAmount); got != "33.50000000" {
		t.Fatalf("bonus = %s, want 33.50000000", got)
	}
	if got := money.Format(item.TotalPayout); got != "113.50000000" {
		t.Fatalf("total = %s, want 113.50000000", got)
	}
}

func TestAwardPerformanceBonus(t *testing.T) {
	f := newFixture(t)
	f.wallets.byID["p1"] = "GGOLD1"
	f.assignTier(t, "p1", models.TierGold)

	item, err := f.calc.AwardPerformanceBonus(context.Background(), "p1", decimal.RequireFromString("40"), models.BonusPerformance, "top signal of the week")
	if err != nil {
		t.Fatalf("award bonus: %v", err)
	}
	if !item.BaseRevenue.IsZero() || !item.RevenueShareAmount.IsZero() {
		t.Fatalf("bonus-only payout must carry no revenue share, got %+v", item)
	}
	if got := money.Format(item.TotalPayout); got != "40.00000000" {
		t.Fatalf("total = %s, want 40.00000000", got)
	}
}

func TestStreakBonusThresholds(t *testing.T) {
	cases := []struct {
		streak int
		want   string // formatted bonus, "" for none
	}{
		{4, ""},
		{5, "25.00000000"},
		{7, ""},
		{10, "75.00000000"},
		{15, "25.00000000"}, // 15 is not a multiple of 10, falls to the 5 threshold
		{20, "200.00000000"},
		{30, "75.00000000"}, // multiple of 10, not of 20
		{40, "200.00000000"},
	}
	for _, tc := range cases {
		f := newFixture(t)
		f.wallets.byID["p1"] = "GSTREAK1"
		f.assignTier(t, "p1", models.TierGold)
		f.metrics.streaks["p1"] = tc.streak

		item, err := f.calc.CheckAndIssueStreakBonus(context.Background(), "p1")
		if err != nil {
			t.Fatalf("streak %d: %v", tc.streak, err)
		}
		if tc.want == "" {
			if item != nil {
				t.Fatalf("streak %d: expected no bonus, got %s", tc.streak, money.Format(item.BonusAmount))
			}
			continue
		}
		if item == nil {
			t.Fatalf("streak %d: expected bonus %s, got none", tc.streak, tc.want)
		}
		if got := money.Format(item.BonusAmount); got != tc.want {
			t.Fatalf("streak %d: bonus = %s, want %s", tc.streak, got, tc.want)
		}
		if item.BonusType == nil || *item.BonusType != models.BonusStreak {
			t.Fatalf("streak %d: bonus type = %v, want STREAK", tc.streak, item.BonusType)
		}
	}
}

func TestStreakBonusOncePerMonth(t *testing.T) {
	f := newFixture(t)
	f.wallets.byID["p1"] = "GSTREAK1"
	f.assignTier(t, "p1", models.TierGold)
	f.metrics.streaks["p1"] = 10

	first, err := f.calc.CheckAndIssueStreakBonus(context.Background(), "p1")
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if first == nil {
		t.Fatal("expected a streak bonus")
	}

	second, err := f.calc.CheckAndIssueStreakBonus(context.Background(), "p1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if second != nil {
		t.Fatal("second check in the same month must not issue another bonus")
	}

	payouts, err := f.store.ListPayouts(context.Background(), repository.ListPayoutsParams{Limit: 100})
	if err != nil {
		t.Fatalf("list payouts: %v", err)
	}
	if len(payouts) != 1 {
		t.Fatalf("expected 1 payout, got %d", len(payouts))
	}
}
