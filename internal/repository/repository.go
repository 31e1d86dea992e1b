package repository

import (
	"context"
	"time"

	"stellarsignals/internal/models"
)

// Repository is the persistence capability the revenue-share core consumes.
// Get* methods return (nil, nil) when no row exists; callers decide whether
// absence is an error.
type Repository interface {
	// Tier catalog. Rows are owned by tier.Catalog exclusively.
	InsertTierDefinition(ctx context.Context, item *models.TierDefinition) error
	GetTierDefinition(ctx context.Context, level models.TierLevel) (*models.TierDefinition, error)
	ListTierDefinitions(ctx context.Context, activeOnly bool) ([]models.TierDefinition, error)
	UpdateTierDefinition(ctx context.Context, level models.TierLevel, updates map[string]any) (int64, error)

	// Tier assignments. Owned by tier.Evaluator.
	GetAssignmentByProviderID(ctx context.Context, providerID string) (*models.ProviderTierAssignment, error)
	UpsertAssignment(ctx context.Context, item *models.ProviderTierAssignment) error
	// MarkPromotionBonusPaid flips promotion_bonus_paid only when it is still
	// false and reports whether this call won the flip. Concurrent evaluators
	// race through this conditional update, so at most one issues the bonus.
	MarkPromotionBonusPaid(ctx context.Context, providerID string) (bool, error)
	// ClearPromotionBonusPaid re-arms the flag after a claimed bonus failed to
	// produce a ledger row.
	ClearPromotionBonusPaid(ctx context.Context, providerID string) error
	ListAssignmentsByTier(ctx context.Context, level models.TierLevel) ([]models.ProviderTierAssignment, error)

	// Payout ledger. Rows are created through payout.Ledger only.
	InsertPayout(ctx context.Context, item *models.ProviderRevenuePayout) error
	GetPayoutByID(ctx context.Context, id uint64) (*models.ProviderRevenuePayout, error)
	UpdatePayout(ctx context.Context, id uint64, updates map[string]any) error
	ListPendingPayouts(ctx context.Context, limit int) ([]models.ProviderRevenuePayout, error)
	ListPayouts(ctx context.Context, params ListPayoutsParams) ([]models.ProviderRevenuePayout, error)
	CountPayouts(ctx context.Context, params ListPayoutsParams) (int64, error)
	HasBonusPayoutSince(ctx context.Context, providerID string, bonusType models.BonusType, since time.Time) (bool, error)

	// Batch audit records.
	InsertBatchRun(ctx context.Context, item *models.BatchRun) error
}

type ListPayoutsParams struct {
	Limit       int
	Offset      int
	ProviderID  *string
	Status      *models.PayoutStatus
	BonusType   *models.BonusType
	PeriodYear  *int
	PeriodMonth *int
	OrderBy     string
	Asc         *bool
}
