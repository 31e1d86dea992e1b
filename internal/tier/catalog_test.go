package tier

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"stellarsignals/internal/errs"
	"stellarsignals/internal/models"
	"stellarsignals/internal/provider"
	memrepository "stellarsignals/internal/repository/memory"
)

func newSeededCatalog(t *testing.T) (*Catalog, *memrepository.Store) {
	t.Helper()
	store := memrepository.New()
	catalog := &Catalog{Repo: store}
	if err := catalog.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}
	return catalog, store
}

func TestSeedDefaultsIdempotent(t *testing.T) {
	catalog, store := newSeededCatalog(t)

	ensureCount := func() {
		t.Helper()
		items, err := store.ListTierDefinitions(context.Background(), false)
		if err != nil {
			t.Fatalf("list definitions: %v", err)
		}
		if len(items) != 5 {
			t.Fatalf("expected 5 tier definitions, got %d", len(items))
		}
	}
	ensureCount()

	if err := catalog.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	ensureCount()
}

func TestSeedDoesNotOverwriteTunedRow(t *testing.T) {
	catalog, _ := newSeededCatalog(t)

	pct := decimal.RequireFromString("9.5")
	if _, err := catalog.Update(context.Background(), models.TierGold, DefinitionUpdate{RevenueSharePercentage: &pct}); err != nil {
		t.Fatalf("update gold: %v", err)
	}
	if err := catalog.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	def, err := catalog.Definition(models.TierGold)
	if err != nil {
		t.Fatalf("get gold: %v", err)
	}
	if !def.RevenueSharePercentage.Equal(pct) {
		t.Fatalf("expected tuned percentage 9.5 to survive re-seed, got %s", def.RevenueSharePercentage)
	}
}

func TestUpdateRejectsOutOfRangePercentage(t *testing.T) {
	catalog, _ := newSeededCatalog(t)

	pct := decimal.RequireFromString("101")
	_, err := catalog.Update(context.Background(), models.TierGold, DefinitionUpdate{RevenueSharePercentage: &pct})
	if !errs.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestUpdateUnknownTier(t *testing.T) {
	catalog, _ := newSeededCatalog(t)

	name := "Mythril"
	_, err := catalog.Update(context.Background(), models.TierLevel("MYTHRIL"), DefinitionUpdate{Name: &name})
	if !errs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolveBronzeFloor(t *testing.T) {
	catalog, _ := newSeededCatalog(t)

	got := catalog.Resolve(provider.Metrics{ProviderID: "p1"})
	if got != models.TierBronze {
		t.Fatalf("zero metrics should resolve to BRONZE, got %s", got)
	}
}

func TestResolveExactThresholds(t *testing.T) {
	catalog, _ := newSeededCatalog(t)

	elite := provider.Metrics{
		ProviderID:      "p1",
		WinRate:         65,
		TotalSignals:    500,
		TotalCopiers:    400,
		ReputationScore: 90,
	}
	if got := catalog.Resolve(elite); got != models.TierElite {
		t.Fatalf("exact ELITE thresholds should resolve to ELITE, got %s", got)
	}

	// One point shy of ELITE win rate falls through to PLATINUM.
	almost := elite
	almost.WinRate = 64.9
	if got := catalog.Resolve(almost); got != models.TierPlatinum {
		t.Fatalf("expected PLATINUM, got %s", got)
	}
}

func TestResolveRequiresAllThresholds(t *testing.T) {
	catalog, _ := newSeededCatalog(t)

	// GOLD-level everything except copiers.
	m := provider.Metrics{
		ProviderID:      "p1",
		WinRate:         58,
		TotalSignals:    200,
		TotalCopiers:    49,
		ReputationScore: 75,
	}
	if got := catalog.Resolve(m); got != models.TierSilver {
		t.Fatalf("expected SILVER when copiers miss GOLD, got %s", got)
	}
}
