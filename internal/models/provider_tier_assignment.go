package models

import (
	"time"
)

// ProviderTierAssignment is one row per provider: the tier the provider
// currently holds plus the metrics snapshot that produced it. Created on the
// first evaluation and updated on every re-evaluation (even when the tier is
// unchanged, to record freshness).
type ProviderTierAssignment struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	ProviderID string `gorm:"type:varchar(100);uniqueIndex;not null"`

	CurrentTier  TierLevel  `gorm:"type:varchar(20);not null;index"`
	PreviousTier *TierLevel `gorm:"type:varchar(20)"`

	WinRate         float64 `gorm:"not null"`
	TotalSignals    int     `gorm:"not null"`
	TotalCopiers    int     `gorm:"not null"`
	ReputationScore float64 `gorm:"not null"`

	LastEvaluatedAt    time.Time `gorm:"type:timestamptz;not null"`
	PromotionBonusPaid bool      `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ProviderTierAssignment) TableName() string {
	return "provider_tier_assignments"
}
