package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TierLevel identifies a provider classification tier.
type TierLevel string

const (
	TierBronze   TierLevel = "BRONZE"
	TierSilver   TierLevel = "SILVER"
	TierGold     TierLevel = "GOLD"
	TierPlatinum TierLevel = "PLATINUM"
	TierElite    TierLevel = "ELITE"
)

// TierOrder is the explicit precedence contract: slice position is rank.
// Promotion/demotion detection compares ranks here, never const declaration order.
var TierOrder = []TierLevel{TierBronze, TierSilver, TierGold, TierPlatinum, TierElite}

// TierRank returns the precedence rank of level, or -1 for an unknown level.
func TierRank(level TierLevel) int {
	for i, l := range TierOrder {
		if l == level {
			return i
		}
	}
	return -1
}

// TierDefinition is a row of the tier catalog: qualification thresholds plus
// the revenue-share percentage and bonuses granted at that tier. Seeded once
// at startup, mutated only through explicit admin updates, never deleted.
type TierDefinition struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	TierLevel TierLevel `gorm:"type:varchar(20);uniqueIndex;not null"`
	Name      string    `gorm:"type:varchar(50);not null"`

	RevenueSharePercentage decimal.Decimal `gorm:"type:numeric(5,2);not null"`

	MinWinRate         float64 `gorm:"not null"`
	MinSignals         int     `gorm:"not null"`
	MinCopiers         int     `gorm:"not null"`
	MinReputationScore float64 `gorm:"not null"`

	PerformanceBonusUsdc      decimal.Decimal `gorm:"type:numeric(30,8);not null"`
	MonthlyRetentionBonusUsdc decimal.Decimal `gorm:"type:numeric(30,8);not null"`

	IsActive  bool `gorm:"default:true;index"`
	SortOrder int  `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TierDefinition) TableName() string {
	return "tier_definitions"
}
