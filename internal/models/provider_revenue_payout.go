package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the payout lifecycle state.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "PENDING"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusCompleted  PayoutStatus = "COMPLETED"
	PayoutStatusFailed     PayoutStatus = "FAILED"
)

// BonusType classifies the bonus component of a payout.
type BonusType string

const (
	BonusPerformance BonusType = "PERFORMANCE"
	BonusMonthlyTop  BonusType = "MONTHLY_TOP"
	BonusStreak      BonusType = "STREAK"
)

// PayoutAssetCode is the only settlement asset; pinned by the ledger.
const PayoutAssetCode = "USDC"

// MaxPayoutRetries caps retries of a FAILED payout.
const MaxPayoutRetries = 5

// ProviderRevenuePayout is a ledger record representing money owed to a
// provider. Invariant: TotalPayout = RevenueShareAmount + BonusAmount to 8
// fractional digits. Rows are created only through the payout ledger.
type ProviderRevenuePayout struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	ProviderID string    `gorm:"type:varchar(100);not null;index"`
	TierLevel  TierLevel `gorm:"type:varchar(20);not null"`

	BaseRevenue        decimal.Decimal `gorm:"type:numeric(30,8);not null"`
	SharePercentage    decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	RevenueShareAmount decimal.Decimal `gorm:"type:numeric(30,8);not null"`
	BonusAmount        decimal.Decimal `gorm:"type:numeric(30,8);not null"`
	BonusType          *BonusType      `gorm:"type:varchar(20);index"`
	TotalPayout        decimal.Decimal `gorm:"type:numeric(30,8);not null"`

	AssetCode             string `gorm:"type:varchar(12);not null;default:'USDC'"`
	ProviderWalletAddress string `gorm:"type:varchar(56);not null"`

	Status PayoutStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`

	PeriodYear  int `gorm:"not null;index"`
	PeriodMonth int `gorm:"not null;index"`

	StellarTxHash *string `gorm:"type:varchar(64)"`
	FailureReason *string `gorm:"type:varchar(255)"`
	RetryCount    int     `gorm:"not null;default:0"`

	PaidAt    *time.Time `gorm:"type:timestamptz"`
	CreatedAt time.Time  `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ProviderRevenuePayout) TableName() string {
	return "provider_revenue_payouts"
}
