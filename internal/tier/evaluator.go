package tier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"stellarsignals/internal/errs"
	"stellarsignals/internal/models"
	"stellarsignals/internal/payout"
	"stellarsignals/internal/provider"
	"stellarsignals/internal/repository"
)

// Evaluator re-classifies providers against the tier catalog. Evaluation for
// a single provider is serialized by a per-provider mutex, and the promotion
// bonus additionally rides on a conditional update of promotion_bonus_paid,
// so two concurrent evaluations can never double-issue a bonus.
type Evaluator struct {
	Repo    repository.Repository
	Catalog *Catalog
	Ledger  *payout.Ledger
	Metrics provider.MetricsSource
	Wallets provider.WalletDirectory
	Logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Evaluation is the outcome of one provider evaluation.
type Evaluation struct {
	ProviderID   string                        `json:"provider_id"`
	PreviousTier *models.TierLevel             `json:"previous_tier,omitempty"`
	NewTier      models.TierLevel              `json:"new_tier"`
	Promoted     bool                          `json:"promoted"`
	Demoted      bool                          `json:"demoted"`
	BonusPayout  *models.ProviderRevenuePayout `json:"bonus_payout,omitempty"`
}

// EvaluateProvider fetches the provider's metrics snapshot and evaluates it.
// Providers the metrics source has no data for evaluate as all-zero, which
// resolves to the BRONZE floor.
func (e *Evaluator) EvaluateProvider(ctx context.Context, providerID string) (*Evaluation, error) {
	if e == nil || e.Metrics == nil {
		return nil, nil
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, fmt.Errorf("%w: provider id is required", errs.ErrInvalidArgument)
	}
	m, err := e.Metrics.Metrics(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("fetch metrics for %s: %w", providerID, err)
	}
	m.ProviderID = providerID
	return e.Evaluate(ctx, m)
}

// Evaluate resolves the tier for a metrics snapshot, persists the refreshed
// assignment unconditionally, and on promotion issues the one-time
// performance bonus for the new tier.
func (e *Evaluator) Evaluate(ctx context.Context, m provider.Metrics) (*Evaluation, error) {
	if e == nil || e.Repo == nil || e.Catalog == nil {
		return nil, nil
	}
	providerID := strings.TrimSpace(m.ProviderID)
	if providerID == "" {
		return nil, fmt.Errorf("%w: provider id is required", errs.ErrInvalidArgument)
	}

	lock := e.providerLock(providerID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := e.Repo.GetAssignmentByProviderID(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("load assignment for %s: %w", providerID, err)
	}

	newTier := e.Catalog.Resolve(m)
	result := &Evaluation{ProviderID: providerID, NewTier: newTier}

	assignment := models.ProviderTierAssignment{
		ProviderID:      providerID,
		CurrentTier:     newTier,
		WinRate:         m.WinRate,
		TotalSignals:    m.TotalSignals,
		TotalCopiers:    m.TotalCopiers,
		ReputationScore: m.ReputationScore,
		LastEvaluatedAt: time.Now().UTC(),
	}
	if existing != nil {
		prev := existing.CurrentTier
		result.PreviousTier = &prev
		result.Promoted = models.TierRank(newTier) > models.TierRank(prev)
		result.Demoted = models.TierRank(newTier) < models.TierRank(prev)
		assignment.PreviousTier = &prev
		// A promotion re-arms the bonus flag for the new tier; otherwise the
		// flag carries over so repeated evaluations stay bonus-free.
		assignment.PromotionBonusPaid = existing.PromotionBonusPaid && !result.Promoted
	}

	if err := e.Repo.UpsertAssignment(ctx, &assignment); err != nil {
		return nil, fmt.Errorf("persist assignment for %s: %w", providerID, err)
	}

	if result.Promoted {
		bonus, err := e.issuePromotionBonus(ctx, providerID, newTier, m.WalletAddress)
		if err != nil {
			return nil, err
		}
		result.BonusPayout = bonus
	}

	if e.Logger != nil {
		e.Logger.Info("provider evaluated",
			zap.String("provider_id", providerID),
			zap.String("tier", string(newTier)),
			zap.Bool("promoted", result.Promoted),
			zap.Bool("demoted", result.Demoted),
		)
	}
	return result, nil
}

// issuePromotionBonus records the one-time PERFORMANCE payout for a freshly
// promoted provider. Missing wallet or zero bonus skips silently; demotion
// never reverses a bonus already paid.
func (e *Evaluator) issuePromotionBonus(ctx context.Context, providerID string, newTier models.TierLevel, wallet string) (*models.ProviderRevenuePayout, error) {
	def, err := e.Catalog.Definition(newTier)
	if err != nil {
		return nil, err
	}
	if !def.PerformanceBonusUsdc.IsPositive() {
		return nil, nil
	}
	wallet = strings.TrimSpace(wallet)
	if wallet == "" && e.Wallets != nil {
		addr, err := e.Wallets.WalletAddress(ctx, providerID)
		if err == nil {
			wallet = addr
		} else if !errs.IsNotFound(err) {
			return nil, fmt.Errorf("resolve wallet for %s: %w", providerID, err)
		}
	}
	if wallet == "" {
		if e.Logger != nil {
			e.Logger.Warn("promotion bonus skipped, no wallet address",
				zap.String("provider_id", providerID),
				zap.String("tier", string(newTier)),
			)
		}
		return nil, nil
	}

	if e.Ledger == nil {
		return nil, nil
	}
	won, err := e.Repo.MarkPromotionBonusPaid(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("mark promotion bonus for %s: %w", providerID, err)
	}
	if !won {
		// A concurrent evaluation already claimed this promotion.
		return nil, nil
	}
	bonusType := models.BonusPerformance
	item, err := e.Ledger.Record(ctx, payout.RecordParams{
		ProviderID:    providerID,
		TierLevel:     newTier,
		BonusAmount:   def.PerformanceBonusUsdc,
		BonusType:     &bonusType,
		WalletAddress: wallet,
	})
	if err != nil {
		// The flag is only allowed to stay set when a payout row exists.
		// Re-arm it so the bonus is not lost to a failed write.
		if cerr := e.Repo.ClearPromotionBonusPaid(ctx, providerID); cerr != nil && e.Logger != nil {
			e.Logger.Warn("re-arm promotion bonus flag failed",
				zap.String("provider_id", providerID),
				zap.Error(cerr),
			)
		}
		return nil, err
	}
	return item, nil
}

// EvaluateAll runs an evaluation for every provider the metrics source knows
// about. Per-provider failures are logged and excluded from the results; one
// failure never aborts the sweep.
func (e *Evaluator) EvaluateAll(ctx context.Context) ([]Evaluation, error) {
	if e == nil || e.Metrics == nil {
		return nil, nil
	}
	snapshots, err := e.Metrics.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list provider metrics: %w", err)
	}
	results := make([]Evaluation, 0, len(snapshots))
	for _, m := range snapshots {
		res, err := e.Evaluate(ctx, m)
		if err != nil {
			if e.Logger != nil {
				e.Logger.Warn("provider evaluation failed",
					zap.String("provider_id", m.ProviderID),
					zap.Error(err),
				)
			}
			continue
		}
		if res != nil {
			results = append(results, *res)
		}
	}
	return results, nil
}

func (e *Evaluator) providerLock(providerID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locks == nil {
		e.locks = map[string]*sync.Mutex{}
	}
	lock, ok := e.locks[providerID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[providerID] = lock
	}
	return lock
}
