// Package tier implements the tier catalog, the metrics-to-tier resolver and
// the stateful per-provider tier evaluator.
package tier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stellarsignals/internal/errs"
	"stellarsignals/internal/models"
	"stellarsignals/internal/repository"
)

// Catalog owns tier_definitions rows and serves them from an in-process cache.
// The cache is a read replica: rebuilt synchronously after every mutation, so
// resolver reads never touch storage.
type Catalog struct {
	Repo   repository.Repository
	Logger *zap.Logger

	mu    sync.RWMutex
	cache []models.TierDefinition
}

// defaultDefinitions is the built-in catalog seeded at startup. Thresholds
// are non-decreasing with sort order; BRONZE is the all-zero floor.
func defaultDefinitions() []models.TierDefinition {
	return []models.TierDefinition{
		{
			TierLevel:                 models.TierBronze,
			Name:                      "Bronze",
			RevenueSharePercentage:    dec("5"),
			PerformanceBonusUsdc:      decimal.Zero,
			MonthlyRetentionBonusUsdc: decimal.Zero,
			IsActive:                  true,
			SortOrder:                 1,
		},
		{
			TierLevel:                 models.TierSilver,
			Name:                      "Silver",
			RevenueSharePercentage:    dec("6.5"),
			MinWinRate:                50,
			MinSignals:                50,
			MinCopiers:                10,
			MinReputationScore:        60,
			PerformanceBonusUsdc:      dec("10"),
			MonthlyRetentionBonusUsdc: decimal.Zero,
			IsActive:                  true,
			SortOrder:                 2,
		},
		{
			TierLevel:                 models.TierGold,
			Name:                      "Gold",
			RevenueSharePercentage:    dec("8"),
			MinWinRate:                55,
			MinSignals:                150,
			MinCopiers:                50,
			MinReputationScore:        70,
			PerformanceBonusUsdc:      dec("25"),
			MonthlyRetentionBonusUsdc: dec("20"),
			IsActive:                  true,
			SortOrder:                 3,
		},
		{
			TierLevel:                 models.TierPlatinum,
			Name:                      "Platinum",
			RevenueSharePercentage:    dec("10"),
			MinWinRate:                60,
			MinSignals:                300,
			MinCopiers:                150,
			MinReputationScore:        80,
			PerformanceBonusUsdc:      dec("50"),
			MonthlyRetentionBonusUsdc: dec("50"),
			IsActive:                  true,
			SortOrder:                 4,
		},
		{
			TierLevel:                 models.TierElite,
			Name:                      "Elite",
			RevenueSharePercentage:    dec("12.5"),
			MinWinRate:                65,
			MinSignals:                500,
			MinCopiers:                400,
			MinReputationScore:        90,
			PerformanceBonusUsdc:      dec("100"),
			MonthlyRetentionBonusUsdc: dec("100"),
			IsActive:                  true,
			SortOrder:                 5,
		},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SeedDefaults inserts any built-in definition whose tier level has no row
// yet. Idempotent: safe to call on every startup, existing rows (including
// admin-tuned ones) are never overwritten. Refreshes the cache afterwards.
func (c *Catalog) SeedDefaults(ctx context.Context) error {
	if c == nil || c.Repo == nil {
		return nil
	}
	seeded := 0
	for _, def := range defaultDefinitions() {
		existing, err := c.Repo.GetTierDefinition(ctx, def.TierLevel)
		if err != nil {
			return fmt.Errorf("seed %s: %w", def.TierLevel, err)
		}
		if existing != nil {
			continue
		}
		item := def
		if err := c.Repo.InsertTierDefinition(ctx, &item); err != nil {
			return fmt.Errorf("seed %s: %w", def.TierLevel, err)
		}
		seeded++
	}
	if seeded > 0 && c.Logger != nil {
		c.Logger.Info("tier catalog seeded", zap.Int("inserted", seeded))
	}
	return c.RefreshCache(ctx)
}

// RefreshCache reloads all active definitions ordered by sort_order into the
// in-process cache.
func (c *Catalog) RefreshCache(ctx context.Context) error {
	if c == nil || c.Repo == nil {
		return nil
	}
	items, err := c.Repo.ListTierDefinitions(ctx, true)
	if err != nil {
		return fmt.Errorf("refresh tier cache: %w", err)
	}
	c.mu.Lock()
	c.cache = items
	c.mu.Unlock()
	return nil
}

// Definition returns the cached definition for level, failing with
// ErrNotFound for unknown or inactive levels.
func (c *Catalog) Definition(level models.TierLevel) (models.TierDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, def := range c.cache {
		if def.TierLevel == level {
			return def, nil
		}
	}
	return models.TierDefinition{}, fmt.Errorf("%w: tier %s", errs.ErrNotFound, level)
}

// ListActive returns a copy of the cached active definitions, ordered by
// sort order.
func (c *Catalog) ListActive() []models.TierDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.TierDefinition, len(c.cache))
	copy(out, c.cache)
	return out
}

// DefinitionUpdate carries the admin-mutable fields of a tier definition.
// Nil fields are left untouched.
type DefinitionUpdate struct {
	Name                      *string
	RevenueSharePercentage    *decimal.Decimal
	MinWinRate                *float64
	MinSignals                *int
	MinCopiers                *int
	MinReputationScore        *float64
	PerformanceBonusUsdc      *decimal.Decimal
	MonthlyRetentionBonusUsdc *decimal.Decimal
	IsActive                  *bool
}

// Update mutates the allowed fields of one tier definition and refreshes the
// cache before returning. Unknown tier levels fail with ErrNotFound.
func (c *Catalog) Update(ctx context.Context, level models.TierLevel, upd DefinitionUpdate) (*models.TierDefinition, error) {
	if c == nil || c.Repo == nil {
		return nil, nil
	}
	updates := map[string]any{}
	if upd.Name != nil {
		updates["name"] = *upd.Name
	}
	if upd.RevenueSharePercentage != nil {
		pct := *upd.RevenueSharePercentage
		if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("%w: revenue share percentage %s out of range", errs.ErrInvalidArgument, pct)
		}
		updates["revenue_share_percentage"] = pct
	}
	if upd.MinWinRate != nil {
		updates["min_win_rate"] = *upd.MinWinRate
	}
	if upd.MinSignals != nil {
		updates["min_signals"] = *upd.MinSignals
	}
	if upd.MinCopiers != nil {
		updates["min_copiers"] = *upd.MinCopiers
	}
	if upd.MinReputationScore != nil {
		updates["min_reputation_score"] = *upd.MinReputationScore
	}
	if upd.PerformanceBonusUsdc != nil {
		updates["performance_bonus_usdc"] = *upd.PerformanceBonusUsdc
	}
	if upd.MonthlyRetentionBonusUsdc != nil {
		updates["monthly_retention_bonus_usdc"] = *upd.MonthlyRetentionBonusUsdc
	}
	if upd.IsActive != nil {
		updates["is_active"] = *upd.IsActive
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", errs.ErrInvalidArgument)
	}
	updates["updated_at"] = time.Now().UTC()

	affected, err := c.Repo.UpdateTierDefinition(ctx, level, updates)
	if err != nil {
		return nil, fmt.Errorf("update tier %s: %w", level, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: tier %s", errs.ErrNotFound, level)
	}
	if err := c.RefreshCache(ctx); err != nil {
		return nil, err
	}
	item, err := c.Repo.GetTierDefinition(ctx, level)
	if err != nil {
		return nil, err
	}
	if c.Logger != nil {
		c.Logger.Info("tier definition updated", zap.String("tier", string(level)))
	}
	return item, nil
}
