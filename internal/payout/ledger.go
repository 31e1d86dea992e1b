// Package payout implements the payout ledger: the single creation path for
// provider payout rows and their lifecycle transitions
// (PENDING → PROCESSING → COMPLETED, or → FAILED with bounded retries).
package payout

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
	"stellarsignals/internal/repository"
)

type Ledger struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// RecordParams describes a payout to be recorded. Period fields default to
// the current calendar year/month when zero.
type RecordParams struct {
	ProviderID         string
	TierLevel          models.TierLevel
	BaseRevenue        decimal.Decimal
	SharePercentage    decimal.Decimal
	RevenueShareAmount decimal.Decimal
	BonusAmount        decimal.Decimal
	BonusType          *models.BonusType
	WalletAddress      string
	PeriodYear         int
	PeriodMonth        int
}

// Record creates a new PENDING payout. This is the only path that creates
// payout rows; TotalPayout is computed here so the share+bonus invariant
// holds by construction.
func (l *Ledger) Record(ctx context.Context, p RecordParams) (*models.ProviderRevenuePayout, error) {
	if l == nil || l.Repo == nil {
		return nil, nil
	}
	if strings.TrimSpace(p.ProviderID) == "" {
		return nil, fmt.Errorf("%w: provider id is required", errs.ErrInvalidArgument)
	}
	if strings.TrimSpace(p.WalletAddress) == "" {
		return nil, fmt.Errorf("%w: wallet address is required", errs.ErrInvalidArgument)
	}
	now := time.Now().UTC()
	year, month := p.PeriodYear, p.PeriodMonth
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	share := money.Round(p.RevenueShareAmount)
	bonus := money.Round(p.BonusAmount)
	item := &models.ProviderRevenuePayout{
		ProviderID:            strings.TrimSpace(p.ProviderID),
		TierLevel:             p.TierLevel,
		BaseRevenue:           money.Round(p.BaseRevenue),
		SharePercentage:       p.SharePercentage,
		RevenueShareAmount:    share,
		BonusAmount:           bonus,
		BonusType:             p.BonusType,
		TotalPayout:           money.Sum(share, bonus),
		AssetCode:             models.PayoutAssetCode,
		ProviderWalletAddress: strings.TrimSpace(p.WalletAddress),
		Status:                models.PayoutStatusPending,
		PeriodYear:            year,
		PeriodMonth:           month,
	}
	if err := l.Repo.InsertPayout(ctx, item); err != nil {
		return nil, fmt.Errorf("record payout: %w", err)
	}
	if l.Logger != nil {
		l.Logger.Info("payout recorded",
			zap.Uint64("payout_id", item.ID),
			zap.String("provider_id", item.ProviderID),
			zap.String("tier", string(item.TierLevel)),
			zap.String("total", money.Format(item.TotalPayout)),
		)
	}
	return item, nil
}

// Confirm transitions a payout to COMPLETED, storing the Stellar transaction
// hash and the paid-at timestamp. Confirming an already-COMPLETED payout is
// an idempotent no-op that returns the unchanged record.
func (l *Ledger) Confirm(ctx context.Context, id uint64, txHash string) (*models.ProviderRevenuePayout, error) {
	item, err := l.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == models.PayoutStatusCompleted {
		if l.Logger != nil {
			l.Logger.Warn("payout already completed, confirm is a no-op", zap.Uint64("payout_id", id))
		}
		return item, nil
	}
	now := time.Now().UTC()
	updates := map[string]any{
		"status":          models.PayoutStatusCompleted,
		"stellar_tx_hash": strings.TrimSpace(txHash),
		"paid_at":         now,
		"updated_at":      now,
	}
	if err := l.Repo.UpdatePayout(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("confirm payout %d: %w", id, err)
	}
	return l.get(ctx, id)
}

// MarkFailed transitions a payout to FAILED from any non-COMPLETED state,
// storing the reason and incrementing the retry counter.
func (l *Ledger) MarkFailed(ctx context.Context, id uint64, reason string) (*models.ProviderRevenuePayout, error) {
	item, err := l.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == models.PayoutStatusCompleted {
		return nil, fmt.Errorf("%w: payout %d already completed", errs.ErrInvalidState, id)
	}
	now := time.Now().UTC()
	updates := map[string]any{
		"status":         models.PayoutStatusFailed,
		"failure_reason": strings.TrimSpace(reason),
		"retry_count":    item.RetryCount + 1,
		"updated_at":     now,
	}
	if err := l.Repo.UpdatePayout(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("mark payout %d failed: %w", id, err)
	}
	if l.Logger != nil {
		l.Logger.Warn("payout failed",
			zap.Uint64("payout_id", id),
			zap.String("reason", reason),
			zap.Int("retry_count", item.RetryCount+1),
		)
	}
	return l.get(ctx, id)
}

// Retry resets a FAILED payout back to PENDING for the dispatcher to pick up
// again. Fails with ErrInvalidState for non-FAILED payouts and with
// ErrLimitExceeded once the retry cap is reached.
func (l *Ledger) Retry(ctx context.Context, id uint64) (*models.ProviderRevenuePayout, error) {
	item, err := l.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != models.PayoutStatusFailed {
		return nil, fmt.Errorf("%w: payout %d is %s, only FAILED payouts can be retried", errs.ErrInvalidState, id, item.Status)
	}
	if item.RetryCount >= models.MaxPayoutRetries {
		return nil, fmt.Errorf("%w: payout %d exhausted %d retries", errs.ErrLimitExceeded, id, item.RetryCount)
	}
	updates := map[string]any{
		"status":         models.PayoutStatusPending,
		"failure_reason": nil,
		"updated_at":     time.Now().UTC(),
	}
	if err := l.Repo.UpdatePayout(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("retry payout %d: %w", id, err)
	}
	return l.get(ctx, id)
}

// Escalate moves a PENDING payout to PROCESSING. Used by the top-tier
// auto-approval policy; lower tiers stay PENDING for manual approval.
func (l *Ledger) Escalate(ctx context.Context, id uint64) (*models.ProviderRevenuePayout, error) {
	item, err := l.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != models.PayoutStatusPending {
		return nil, fmt.Errorf("%w: payout %d is %s, only PENDING payouts can be escalated", errs.ErrInvalidState, id, item.Status)
	}
	updates := map[string]any{
		"status":     models.PayoutStatusProcessing,
		"updated_at": time.Now().UTC(),
	}
	if err := l.Repo.UpdatePayout(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("escalate payout %d: %w", id, err)
	}
	return l.get(ctx, id)
}

// Pending returns PENDING payouts oldest-first, capped at limit. This feeds
// the external on-chain payment dispatcher.
func (l *Ledger) Pending(ctx context.Context, limit int) ([]models.ProviderRevenuePayout, error) {
	if l == nil || l.Repo == nil {
		return nil, nil
	}
	return l.Repo.ListPendingPayouts(ctx, limit)
}

func (l *Ledger) get(ctx context.Context, id uint64) (*models.ProviderRevenuePayout, error) {
	if l == nil || l.Repo == nil {
		return nil, nil
	}
	item, err := l.Repo.GetPayoutByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load payout %d: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: payout %d", errs.ErrNotFound, id)
	}
	return item, nil
}
