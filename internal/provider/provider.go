// Package provider defines the collaborator contracts the revenue-share core
// consumes: performance metrics snapshots and the provider wallet directory.
package provider

import "context"

// Metrics is a transient performance snapshot for one signal provider.
// It is sourced externally and never persisted as-is; the tier evaluator
// copies the fields it needs into the provider's tier assignment.
type Metrics struct {
	ProviderID      string  `json:"provider_id"`
	WinRate         float64 `json:"win_rate"`         // 0-100
	TotalSignals    int     `json:"total_signals"`    // >= 0
	TotalCopiers    int     `json:"total_copiers"`    // >= 0
	ReputationScore float64 `json:"reputation_score"` // 0-100
	WalletAddress   string  `json:"wallet_address,omitempty"`
}

// MetricsSource supplies provider performance snapshots. Implementations
// return a zero-valued Metrics (not an error) when no data exists for the
// provider; the zero snapshot resolves to the BRONZE floor tier.
type MetricsSource interface {
	Metrics(ctx context.Context, providerID string) (Metrics, error)
	List(ctx context.Context) ([]Metrics, error)
	Streak(ctx context.Context, providerID string) (int, error)
}

// WalletDirectory resolves a provider's payable Stellar wallet address.
// Implementations fail with errs.ErrNotFound when the provider is unknown or
// has no wallet on file.
type WalletDirectory interface {
	WalletAddress(ctx context.Context, providerID string) (string, error)
}
