package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BatchRun is an audit record of one batch round (monthly payout run or
// retention-bonus round). Details holds the per-provider outcome list as JSON.
type BatchRun struct {
	ID   string `gorm:"type:uuid;primaryKey"`
	Kind string `gorm:"type:varchar(30);not null;index"`

	PeriodYear  int `gorm:"not null;index"`
	PeriodMonth int `gorm:"not null;index"`

	SuccessCount int `gorm:"not null"`
	FailureCount int `gorm:"not null"`
	SkippedCount int `gorm:"not null"`

	TotalDispatched decimal.Decimal `gorm:"type:numeric(30,8);not null"`
	Details         datatypes.JSON  `gorm:"type:jsonb"`

	StartedAt  time.Time `gorm:"type:timestamptz;not null"`
	FinishedAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

const (
	BatchKindMonthlyPayout  = "monthly_payout"
	BatchKindRetentionBonus = "retention_bonus"
)

func (BatchRun) TableName() string {
	return "batch_runs"
}
