// Package revshare turns provider performance into money: revenue-share
// calculation, payout processing, discretionary bonuses and streak bonuses.
package revshare

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stellarsignals/internal/errs"
	"stellarsignals/internal/models"
	"stellarsignals/internal/money"
	"stellarsignals/internal/payout"
	"stellarsignals/internal/provider"
	"stellarsignals/internal/repository"
	"stellarsignals/internal/tier"
)

// streakThresholds maps consecutive-win milestones to bonus amounts,
// checked highest first. A streak earns the bonus for the highest threshold
// it both meets and divides exactly, so the bonus repeats every N additional
// wins instead of firing continuously.
var streakThresholds = []struct {
	Wins  int
	Bonus decimal.Decimal
}{
	{20, decimal.NewFromInt(200)},
	{10, decimal.NewFromInt(75)},
	{5, decimal.NewFromInt(25)},
}

type Calculator struct {
	Repo      repository.Repository
	Catalog   *tier.Catalog
	Evaluator *tier.Evaluator
	Ledger    *payout.Ledger
	Metrics   provider.MetricsSource
	Wallets   provider.WalletDirectory
	Logger    *zap.Logger
}

// Calculation is a preview of a payout: nothing is persisted.
type Calculation struct {
	ProviderID         string            `json:"provider_id"`
	TierLevel          models.TierLevel  `json:"tier_level"`
	BaseRevenue        decimal.Decimal   `json:"base_revenue"`
	SharePercentage    decimal.Decimal   `json:"share_percentage"`
	RevenueShareAmount decimal.Decimal   `json:"revenue_share_amount"`
	BonusAmount        decimal.Decimal   `json:"bonus_amount"`
	BonusType          *models.BonusType `json:"bonus_type,omitempty"`
	TotalPayout        decimal.Decimal   `json:"total_payout"`
}

// Calculate computes the share and optional retention bonus for baseRevenue
// at the provider's current tier. A provider with no assignment yet gets a
// first-time evaluation. Non-positive baseRevenue fails with
// ErrInvalidArgument.
func (c *Calculator) Calculate(ctx context.Context, providerID string, baseRevenue decimal.Decimal, includeBonus bool) (*Calculation, error) {
	if c == nil || c.Repo == nil || c.Catalog == nil {
		return nil, nil
	}
	if !baseRevenue.IsPositive() {
		return nil, fmt.Errorf("%w: base revenue must be positive, got %s", errs.ErrInvalidArgument, baseRevenue)
	}
	level, err := c.currentTier(ctx, providerID)
	if err != nil {
		return nil, err
	}
	def, err := c.Catalog.Definition(level)
	if err != nil {
		return nil, err
	}

	share := money.ApplyPercent(baseRevenue, def.RevenueSharePercentage)
	bonus := money.Round(decimal.Zero)
	var bonusType *models.BonusType
	if includeBonus && def.MonthlyRetentionBonusUsdc.IsPositive() {
		bonus = money.Round(def.MonthlyRetentionBonusUsdc)
		bt := models.BonusMonthlyTop
		bonusType = &bt
	}

	return &Calculation{
		ProviderID:         providerID,
		TierLevel:          level,
		BaseRevenue:        money.Round(baseRevenue),
		SharePercentage:    def.RevenueSharePercentage,
		RevenueShareAmount: share,
		BonusAmount:        bonus,
		BonusType:          bonusType,
		TotalPayout:        money.Sum(share, bonus),
	}, nil
}

// PayoutOptions tunes ProcessProviderPayout.
type PayoutOptions struct {
	IncludeBonus  bool
	BonusOverride *decimal.Decimal
	PeriodYear    int
	PeriodMonth   int
}

// ProcessProviderPayout calculates and records a payout for the billing
// period. ELITE and PLATINUM payouts are auto-escalated to PROCESSING; lower
// tiers stay PENDING for manual approval before dispatch. Fails with
// ErrNotFound when the provider has no payable wallet address.
func (c *Calculator) ProcessProviderPayout(ctx context.Context, providerID string, baseRevenue decimal.Decimal, opts PayoutOptions) (*models.ProviderRevenuePayout, error) {
	if c == nil || c.Ledger == nil || c.Wallets == nil {
		return nil, nil
	}
	calc, err := c.Calculate(ctx, providerID, baseRevenue, opts.IncludeBonus)
	if err != nil {
		return nil, err
	}
	wallet, err := c.Wallets.WalletAddress(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("resolve wallet for %s: %w", providerID, err)
	}

	bonus := calc.BonusAmount
	bonusType := calc.BonusType
	if opts.BonusOverride != nil {
		bonus = money.Round(*opts.BonusOverride)
		if bonusType == nil && bonus.IsPositive() {
			bt := models.BonusMonthlyTop
			bonusType = &bt
		}
	}

	item, err := c.Ledger.Record(ctx, payout.RecordParams{
		ProviderID:         providerID,
		TierLevel:          calc.TierLevel,
		BaseRevenue:        calc.BaseRevenue,
		SharePercentage:    calc.SharePercentage,
		RevenueShareAmount: calc.RevenueShareAmount,
		BonusAmount:        bonus,
		BonusType:          bonusType,
		WalletAddress:      wallet,
		PeriodYear:         opts.PeriodYear,
		PeriodMonth:        opts.PeriodMonth,
	})
	if err != nil {
		return nil, err
	}

	if calc.TierLevel == models.TierElite || calc.TierLevel == models.TierPlatinum {
		item, err = c.Ledger.Escalate(ctx, item.ID)
		if err != nil {
			return nil, err
		}
	}
	return item, nil
}

// AwardPerformanceBonus records a bonus-only payout (zero base revenue and
// share) at the provider's current tier.
func (c *Calculator) AwardPerformanceBonus(ctx context.Context, providerID string, amount decimal.Decimal, bonusType models.BonusType, reason string) (*models.ProviderRevenuePayout, error) {
	if c == nil || c.Ledger == nil || c.Wallets == nil {
		return nil, nil
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: bonus amount must be positive, got %s", errs.ErrInvalidArgument, amount)
	}
	level, err := c.currentTier(ctx, providerID)
	if err != nil {
		return nil, err
	}
	wallet, err := c.Wallets.WalletAddress(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("resolve wallet for %s: %w", providerID, err)
	}
	if c.Logger != nil && strings.TrimSpace(reason) != "" {
		c.Logger.Info("awarding bonus",
			zap.String("provider_id", providerID),
			zap.String("bonus_type", string(bonusType)),
			zap.String("amount", money.Format(amount)),
			zap.String("reason", reason),
		)
	}
	return c.Ledger.Record(ctx, payout.RecordParams{
		ProviderID:    providerID,
		TierLevel:     level,
		BonusAmount:   amount,
		BonusType:     &bonusType,
		WalletAddress: wallet,
	})
}

// CheckAndIssueStreakBonus reads the provider's consecutive-win streak and
// issues a STREAK bonus when the streak is an exact multiple of the highest
// threshold it satisfies. At most one STREAK bonus per provider per calendar
// month. Returns (nil, nil) when no bonus is due.
func (c *Calculator) CheckAndIssueStreakBonus(ctx context.Context, providerID string) (*models.ProviderRevenuePayout, error) {
	if c == nil || c.Repo == nil || c.Metrics == nil {
		return nil, nil
	}
	streak, err := c.Metrics.Streak(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("fetch streak for %s: %w", providerID, err)
	}

	var bonus decimal.Decimal
	matched := false
	for _, t := range streakThresholds {
		if streak >= t.Wins && streak%t.Wins == 0 {
			bonus = t.Bonus
			matched = true
			break
		}
	}
	if !matched {
		return nil, nil
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	already, err := c.Repo.HasBonusPayoutSince(ctx, providerID, models.BonusStreak, monthStart)
	if err != nil {
		return nil, fmt.Errorf("check streak bonus window for %s: %w", providerID, err)
	}
	if already {
		if c.Logger != nil {
			c.Logger.Info("streak bonus already issued this month",
				zap.String("provider_id", providerID),
				zap.Int("streak", streak),
			)
		}
		return nil, nil
	}
	return c.AwardPerformanceBonus(ctx, providerID, bonus, models.BonusStreak,
		fmt.Sprintf("%d consecutive wins", streak))
}

// currentTier returns the provider's assigned tier, running a first-time
// evaluation when no assignment exists yet.
func (c *Calculator) currentTier(ctx context.Context, providerID string) (models.TierLevel, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return "", fmt.Errorf("%w: provider id is required", errs.ErrInvalidArgument)
	}
	assignment, err := c.Repo.GetAssignmentByProviderID(ctx, providerID)
	if err != nil {
		return "", fmt.Errorf("load assignment for %s: %w", providerID, err)
	}
	if assignment != nil {
		return assignment.CurrentTier, nil
	}
	if c.Evaluator == nil {
		return models.TierBronze, nil
	}
	res, err := c.Evaluator.EvaluateProvider(ctx, providerID)
	if err != nil {
		return "", err
	}
	if res == nil {
		return models.TierBronze, nil
	}
	return res.NewTier, nil
}
