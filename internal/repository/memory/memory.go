// Package memrepository provides an in-memory Repository used by service
// tests. Behavior mirrors the gorm store: Get* return (nil, nil) on absence,
// upserts key on provider_id, payout IDs auto-increment.
package memrepository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stellarsignals/internal/models"
	"stellarsignals/internal/repository"
)

type Store struct {
	mu sync.Mutex

	tiers       map[models.TierLevel]*models.TierDefinition
	assignments map[string]*models.ProviderTierAssignment
	payouts     map[uint64]*models.ProviderRevenuePayout
	batchRuns   []models.BatchRun

	nextTierID       uint64
	nextAssignmentID uint64
	nextPayoutID     uint64
}

func New() *Store {
	return &Store{
		tiers:       map[models.TierLevel]*models.TierDefinition{},
		assignments: map[string]*models.ProviderTierAssignment{},
		payouts:     map[uint64]*models.ProviderRevenuePayout{},
	}
}

// --- tier definitions -------------------------------------------------------

func (s *Store) InsertTierDefinition(ctx context.Context, item *models.TierDefinition) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTierID++
	cp := *item
	cp.ID = s.nextTierID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.tiers[cp.TierLevel] = &cp
	item.ID = cp.ID
	return nil
}

func (s *Store) GetTierDefinition(ctx context.Context, level models.TierLevel) (*models.TierDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.tiers[level]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *Store) ListTierDefinitions(ctx context.Context, activeOnly bool) ([]models.TierDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.TierDefinition
	for _, item := range s.tiers {
		if activeOnly && !item.IsActive {
			continue
		}
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SortOrder < items[j].SortOrder })
	return items, nil
}

func (s *Store) UpdateTierDefinition(ctx context.Context, level models.TierLevel, updates map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.tiers[level]
	if !ok {
		return 0, nil
	}
	for key, val := range updates {
		switch key {
		case "name":
			item.Name = val.(string)
		case "revenue_share_percentage":
			item.RevenueSharePercentage = val.(decimal.Decimal)
		case "min_win_rate":
			item.MinWinRate = val.(float64)
		case "min_signals":
			item.MinSignals = val.(int)
		case "min_copiers":
			item.MinCopiers = val.(int)
		case "min_reputation_score":
			item.MinReputationScore = val.(float64)
		case "performance_bonus_usdc":
			item.PerformanceBonusUsdc = val.(decimal.Decimal)
		case "monthly_retention_bonus_usdc":
			item.MonthlyRetentionBonusUsdc = val.(decimal.Decimal)
		case "is_active":
			item.IsActive = val.(bool)
		case "updated_at":
			item.UpdatedAt = val.(time.Time)
		}
	}
	return 1, nil
}

// --- tier assignments -------------------------------------------------------

func (s *Store) GetAssignmentByProviderID(ctx context.Context, providerID string) (*models.ProviderTierAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.assignments[strings.TrimSpace(providerID)]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *Store) UpsertAssignment(ctx context.Context, item *models.ProviderTierAssignment) error {
	if item == nil || strings.TrimSpace(item.ProviderID) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	existing, ok := s.assignments[cp.ProviderID]
	if ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	} else {
		s.nextAssignmentID++
		cp.ID = s.nextAssignmentID
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = time.Now().UTC()
	s.assignments[cp.ProviderID] = &cp
	item.ID = cp.ID
	return nil
}

func (s *Store) MarkPromotionBonusPaid(ctx context.Context, providerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.assignments[strings.TrimSpace(providerID)]
	if !ok || item.PromotionBonusPaid {
		return false, nil
	}
	item.PromotionBonusPaid = true
	return true, nil
}

func (s *Store) ClearPromotionBonusPaid(ctx context.Context, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.assignments[strings.TrimSpace(providerID)]; ok {
		item.PromotionBonusPaid = false
	}
	return nil
}

func (s *Store) ListAssignmentsByTier(ctx context.Context, level models.TierLevel) ([]models.ProviderTierAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.ProviderTierAssignment
	for _, item := range s.assignments {
		if item.CurrentTier == level {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProviderID < items[j].ProviderID })
	return items, nil
}

// --- payouts ----------------------------------------------------------------

func (s *Store) InsertPayout(ctx context.Context, item *models.ProviderRevenuePayout) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPayoutID++
	cp := *item
	cp.ID = s.nextPayoutID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.payouts[cp.ID] = &cp
	item.ID = cp.ID
	item.CreatedAt = cp.CreatedAt
	return nil
}

func (s *Store) GetPayoutByID(ctx context.Context, id uint64) (*models.ProviderRevenuePayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.payouts[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *Store) UpdatePayout(ctx context.Context, id uint64, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.payouts[id]
	if !ok {
		return nil
	}
	for key, val := range updates {
		switch key {
		case "status":
			item.Status = val.(models.PayoutStatus)
		case "stellar_tx_hash":
			hash := val.(string)
			item.StellarTxHash = &hash
		case "failure_reason":
			switch v := val.(type) {
			case nil:
				item.FailureReason = nil
			case string:
				item.FailureReason = &v
			}
		case "retry_count":
			item.RetryCount = val.(int)
		case "paid_at":
			at := val.(time.Time)
			item.PaidAt = &at
		case "updated_at":
			item.UpdatedAt = val.(time.Time)
		}
	}
	return nil
}

func (s *Store) ListPendingPayouts(ctx context.Context, limit int) ([]models.ProviderRevenuePayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.ProviderRevenuePayout
	for _, item := range s.payouts {
		if item.Status == models.PayoutStatusPending {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListPayouts(ctx context.Context, params repository.ListPayoutsParams) ([]models.ProviderRevenuePayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.ProviderRevenuePayout
	for _, item := range s.payouts {
		if matchesPayout(item, params) {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if params.Offset > 0 {
		if params.Offset >= len(items) {
			return nil, nil
		}
		items = items[params.Offset:]
	}
	if params.Limit > 0 && len(items) > params.Limit {
		items = items[:params.Limit]
	}
	return items, nil
}

func (s *Store) CountPayouts(ctx context.Context, params repository.ListPayoutsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, item := range s.payouts {
		if matchesPayout(item, params) {
			total++
		}
	}
	return total, nil
}

func (s *Store) HasBonusPayoutSince(ctx context.Context, providerID string, bonusType models.BonusType, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.payouts {
		if item.ProviderID != strings.TrimSpace(providerID) {
			continue
		}
		if item.BonusType == nil || *item.BonusType != bonusType {
			continue
		}
		if !item.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// --- batch runs -------------------------------------------------------------

func (s *Store) InsertBatchRun(ctx context.Context, item *models.BatchRun) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchRuns = append(s.batchRuns, *item)
	return nil
}

// BatchRuns returns recorded batch runs, newest last. Test helper.
func (s *Store) BatchRuns() []models.BatchRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BatchRun, len(s.batchRuns))
	copy(out, s.batchRuns)
	return out
}

func matchesPayout(item *models.ProviderRevenuePayout, params repository.ListPayoutsParams) bool {
	if params.ProviderID != nil && item.ProviderID != strings.TrimSpace(*params.ProviderID) {
		return false
	}
	if params.Status != nil && item.Status != *params.Status {
		return false
	}
	if params.BonusType != nil {
		if item.BonusType == nil || *item.BonusType != *params.BonusType {
			return false
		}
	}
	if params.PeriodYear != nil && item.PeriodYear != *params.PeriodYear {
		return false
	}
	if params.PeriodMonth != nil && item.PeriodMonth != *params.PeriodMonth {
		return false
	}
	return true
}
