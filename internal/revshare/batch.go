package revshare

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"stellarsignals/internal/errs"
	"stellarsignals/internal/models"
	"stellarsignals/internal/money"
	"stellarsignals/internal/payout"
	"stellarsignals/internal/provider"
	"stellarsignals/internal/repository"
	"stellarsignals/internal/tier"
)

// Orchestrator runs batch payout rounds. One provider failing never aborts
// the round; every outcome is captured in a BatchRun audit row.
type Orchestrator struct {
	Repo    repository.Repository
	Calc    *Calculator
	Catalog *tier.Catalog
	Ledger  *payout.Ledger
	Wallets provider.WalletDirectory
	Logger  *zap.Logger
}

const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// ProviderOutcome is one provider's result within a batch round.
type ProviderOutcome struct {
	ProviderID  string `json:"provider_id"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	PayoutID    uint64 `json:"payout_id,omitempty"`
	TotalPayout string `json:"total_payout,omitempty"`
}

// BatchResult summarizes a completed round.
type BatchResult struct {
	RunID           string            `json:"run_id"`
	Kind            string            `json:"kind"`
	PeriodYear      int               `json:"period_year"`
	PeriodMonth     int               `json:"period_month"`
	SuccessCount    int               `json:"success_count"`
	FailureCount    int               `json:"failure_count"`
	SkippedCount    int               `json:"skipped_count"`
	TotalDispatched decimal.Decimal   `json:"total_dispatched"`
	Outcomes        []ProviderOutcome `json:"outcomes"`
}

// PreviousPeriod returns the calendar month before t in UTC. Computed from
// the first of t's month, since AddDate on a month-end date normalizes the
// overflow day back into the current month.
func PreviousPeriod(t time.Time) (year, month int) {
	t = t.UTC()
	prev := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return prev.Year(), int(prev.Month())
}

// ProcessMonthlyBatch records one payout per provider for the given billing
// period. Providers with zero or negative revenue are skipped, not failed.
func (o *Orchestrator) ProcessMonthlyBatch(ctx context.Context, year, month int, revenueByProvider map[string]decimal.Decimal) (*BatchResult, error) {
	if o == nil || o.Calc == nil || o.Repo == nil {
		return nil, nil
	}
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	startedAt := time.Now().UTC()

	ids := make([]string, 0, len(revenueByProvider))
	for id := range revenueByProvider {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := &BatchResult{
		RunID:           uuid.NewString(),
		Kind:            models.BatchKindMonthlyPayout,
		PeriodYear:      year,
		PeriodMonth:     month,
		TotalDispatched: decimal.Zero,
	}
	for _, id := range ids {
		revenue := revenueByProvider[id]
		if !revenue.IsPositive() {
			result.SkippedCount++
			result.Outcomes = append(result.Outcomes, ProviderOutcome{
				ProviderID: id,
				Status:     OutcomeSkipped,
				Reason:     "zero revenue",
			})
			continue
		}
		item, err := o.Calc.ProcessProviderPayout(ctx, id, revenue, PayoutOptions{
			IncludeBonus: true,
			PeriodYear:   year,
			PeriodMonth:  month,
		})
		if err != nil {
			result.FailureCount++
			result.Outcomes = append(result.Outcomes, ProviderOutcome{
				ProviderID: id,
				Status:     OutcomeFailed,
				Reason:     err.Error(),
			})
			if o.Logger != nil {
				o.Logger.Warn("monthly payout failed",
					zap.String("provider_id", id),
					zap.Error(err),
				)
			}
			continue
		}
		result.SuccessCount++
		result.TotalDispatched = money.Sum(result.TotalDispatched, item.TotalPayout)
		result.Outcomes = append(result.Outcomes, ProviderOutcome{
			ProviderID:  id,
			Status:      OutcomeSuccess,
			PayoutID:    item.ID,
			TotalPayout: money.Format(item.TotalPayout),
		})
	}

	if err := o.persistRun(ctx, result, startedAt); err != nil {
		return nil, err
	}
	if o.Logger != nil {
		o.Logger.Info("monthly payout batch finished",
			zap.String("run_id", result.RunID),
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Int("success", result.SuccessCount),
			zap.Int("failed", result.FailureCount),
			zap.Int("skipped", result.SkippedCount),
			zap.String("total_dispatched", money.Format(result.TotalDispatched)),
		)
	}
	return result, nil
}

// retentionTiers are the tiers covered by the monthly retention round.
// Lower tiers receive their retention bonus only through the revenue payout
// path (IncludeBonus), never as a standalone credit.
var retentionTiers = []models.TierLevel{models.TierPlatinum, models.TierElite}

// RunRetentionBonusRound credits the monthly retention bonus to every
// provider currently assigned to a top tier.
func (o *Orchestrator) RunRetentionBonusRound(ctx context.Context, year, month int) (*BatchResult, error) {
	if o == nil || o.Repo == nil || o.Catalog == nil || o.Ledger == nil || o.Wallets == nil {
		return nil, nil
	}
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	startedAt := time.Now().UTC()

	result := &BatchResult{
		RunID:           uuid.NewString(),
		Kind:            models.BatchKindRetentionBonus,
		PeriodYear:      year,
		PeriodMonth:     month,
		TotalDispatched: decimal.Zero,
	}
	for _, level := range retentionTiers {
		def, err := o.Catalog.Definition(level)
		if err != nil || !def.MonthlyRetentionBonusUsdc.IsPositive() {
			continue
		}
		assignments, err := o.Repo.ListAssignmentsByTier(ctx, level)
		if err != nil {
			return nil, fmt.Errorf("list %s assignments: %w", level, err)
		}
		for _, a := range assignments {
			o.creditRetentionBonus(ctx, result, a.ProviderID, level, def.MonthlyRetentionBonusUsdc, year, month)
		}
	}

	if err := o.persistRun(ctx, result, startedAt); err != nil {
		return nil, err
	}
	if o.Logger != nil {
		o.Logger.Info("retention bonus round finished",
			zap.String("run_id", result.RunID),
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Int("success", result.SuccessCount),
			zap.Int("failed", result.FailureCount),
			zap.String("total_dispatched", money.Format(result.TotalDispatched)),
		)
	}
	return result, nil
}

func (o *Orchestrator) creditRetentionBonus(ctx context.Context, result *BatchResult, providerID string, level models.TierLevel, bonus decimal.Decimal, year, month int) {
	wallet, err := o.Wallets.WalletAddress(ctx, providerID)
	if err != nil {
		result.FailureCount++
		result.Outcomes = append(result.Outcomes, ProviderOutcome{
			ProviderID: providerID,
			Status:     OutcomeFailed,
			Reason:     err.Error(),
		})
		if o.Logger != nil {
			o.Logger.Warn("retention bonus skipped, no wallet",
				zap.String("provider_id", providerID),
				zap.Error(err),
			)
		}
		return
	}
	bt := models.BonusMonthlyTop
	item, err := o.Ledger.Record(ctx, payout.RecordParams{
		ProviderID:    providerID,
		TierLevel:     level,
		BonusAmount:   bonus,
		BonusType:     &bt,
		WalletAddress: wallet,
		PeriodYear:    year,
		PeriodMonth:   month,
	})
	if err != nil {
		result.FailureCount++
		result.Outcomes = append(result.Outcomes, ProviderOutcome{
			ProviderID: providerID,
			Status:     OutcomeFailed,
			Reason:     err.Error(),
		})
		return
	}
	result.SuccessCount++
	result.TotalDispatched = money.Sum(result.TotalDispatched, item.TotalPayout)
	result.Outcomes = append(result.Outcomes, ProviderOutcome{
		ProviderID:  providerID,
		Status:      OutcomeSuccess,
		PayoutID:    item.ID,
		TotalPayout: money.Format(item.TotalPayout),
	})
}

func (o *Orchestrator) persistRun(ctx context.Context, result *BatchResult, startedAt time.Time) error {
	details, err := json.Marshal(result.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal batch outcomes: %w", err)
	}
	run := &models.BatchRun{
		ID:              result.RunID,
		Kind:            result.Kind,
		PeriodYear:      result.PeriodYear,
		PeriodMonth:     result.PeriodMonth,
		SuccessCount:    result.SuccessCount,
		FailureCount:    result.FailureCount,
		SkippedCount:    result.SkippedCount,
		TotalDispatched: result.TotalDispatched,
		Details:         datatypes.JSON(details),
		StartedAt:       startedAt,
		FinishedAt:      time.Now().UTC(),
	}
	if err := o.Repo.InsertBatchRun(ctx, run); err != nil {
		return fmt.Errorf("persist batch run: %w", err)
	}
	return nil
}

func validatePeriod(year, month int) error {
	if year < 2000 || month < 1 || month > 12 {
		return fmt.Errorf("%w: invalid billing period %d-%d", errs.ErrInvalidArgument, year, month)
	}
	return nil
}
