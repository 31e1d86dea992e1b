package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stellarsignals/internal/models"
	"stellarsignals/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- tier definitions -------------------------------------------------------

func (s *Store) InsertTierDefinition(ctx context.Context, item *models.TierDefinition) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetTierDefinition(ctx context.Context, level models.TierLevel) (*models.TierDefinition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.TierDefinition
	err := s.db.WithContext(ctx).
		Model(&models.TierDefinition{}).
		Where("tier_level = ?", level).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTierDefinitions(ctx context.Context, activeOnly bool) ([]models.TierDefinition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TierDefinition{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var items []models.TierDefinition
	if err := query.Order("sort_order asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateTierDefinition(ctx context.Context, level models.TierLevel, updates map[string]any) (int64, error) {
	if s == nil || s.db == nil || len(updates) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.TierDefinition{}).
		Where("tier_level = ?", level).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// --- tier assignments -------------------------------------------------------

func (s *Store) GetAssignmentByProviderID(ctx context.Context, providerID string) (*models.ProviderTierAssignment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, nil
	}
	var item models.ProviderTierAssignment
	err := s.db.WithContext(ctx).
		Model(&models.ProviderTierAssignment{}).
		Where("provider_id = ?", providerID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertAssignment(ctx context.Context, item *models.ProviderTierAssignment) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.ProviderID) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_tier",
			"previous_tier",
			"win_rate",
			"total_signals",
			"total_copiers",
			"reputation_score",
			"last_evaluated_at",
			"promotion_bonus_paid",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) MarkPromotionBonusPaid(ctx context.Context, providerID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.ProviderTierAssignment{}).
		Where("provider_id = ? AND promotion_bonus_paid = ?", strings.TrimSpace(providerID), false).
		Update("promotion_bonus_paid", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ClearPromotionBonusPaid(ctx context.Context, providerID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.ProviderTierAssignment{}).
		Where("provider_id = ?", strings.TrimSpace(providerID)).
		Update("promotion_bonus_paid", false).Error
}

func (s *Store) ListAssignmentsByTier(ctx context.Context, level models.TierLevel) ([]models.ProviderTierAssignment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ProviderTierAssignment
	if err := s.db.WithContext(ctx).
		Model(&models.ProviderTierAssignment{}).
		Where("current_tier = ?", level).
		Order("provider_id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- payouts ----------------------------------------------------------------

func (s *Store) InsertPayout(ctx context.Context, item *models.ProviderRevenuePayout) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPayoutByID(ctx context.Context, id uint64) (*models.ProviderRevenuePayout, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.ProviderRevenuePayout
	err := s.db.WithContext(ctx).
		Model(&models.ProviderRevenuePayout{}).
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdatePayout(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.ProviderRevenuePayout{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) ListPendingPayouts(ctx context.Context, limit int) ([]models.ProviderRevenuePayout, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ProviderRevenuePayout
	if err := s.db.WithContext(ctx).
		Model(&models.ProviderRevenuePayout{}).
		Where("status = ?", models.PayoutStatusPending).
		Order("created_at asc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListPayouts(ctx context.Context, params repository.ListPayoutsParams) ([]models.ProviderRevenuePayout, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyPayoutFilters(s.db.WithContext(ctx).Model(&models.ProviderRevenuePayout{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.ProviderRevenuePayout
	if err := query.
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPayouts(ctx context.Context, params repository.ListPayoutsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyPayoutFilters(s.db.WithContext(ctx).Model(&models.ProviderRevenuePayout{}), params).
		Count(&total).Error
	return total, err
}

func (s *Store) HasBonusPayoutSince(ctx context.Context, providerID string, bonusType models.BonusType, since time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.ProviderRevenuePayout{}).
		Where("provider_id = ?", strings.TrimSpace(providerID)).
		Where("bonus_type = ?", bonusType).
		Where("created_at >= ?", since).
		Count(&total).Error
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

// --- batch runs -------------------------------------------------------------

func (s *Store) InsertBatchRun(ctx context.Context, item *models.BatchRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// --- helpers ----------------------------------------------------------------

func applyPayoutFilters(query *gorm.DB, params repository.ListPayoutsParams) *gorm.DB {
	if params.ProviderID != nil && strings.TrimSpace(*params.ProviderID) != "" {
		query = query.Where("provider_id = ?", strings.TrimSpace(*params.ProviderID))
	}
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.BonusType != nil && *params.BonusType != "" {
		query = query.Where("bonus_type = ?", *params.BonusType)
	}
	if params.PeriodYear != nil && *params.PeriodYear > 0 {
		query = query.Where("period_year = ?", *params.PeriodYear)
	}
	if params.PeriodMonth != nil && *params.PeriodMonth > 0 {
		query = query.Where("period_month = ?", *params.PeriodMonth)
	}
	return query
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
