package tier

import (
	"stellarsignals/internal/models"
	"stellarsignals/internal/provider"
)

// Resolve maps a metrics snapshot to the highest qualifying tier. It walks
// the cached active definitions from highest to lowest precedence and returns
// the first tier whose four thresholds are all met. Zero metrics (and any
// snapshot matching nothing) land on the BRONZE floor. Pure read of the cache
// snapshot: deterministic for a given cache state and metrics.
func (c *Catalog) Resolve(m provider.Metrics) models.TierLevel {
	defs := c.ListActive()
	for i := len(defs) - 1; i >= 0; i-- {
		def := defs[i]
		if qualifies(m, def) {
			return def.TierLevel
		}
	}
	return models.TierBronze
}

func qualifies(m provider.Metrics, def models.TierDefinition) bool {
	return m.WinRate >= def.MinWinRate &&
		m.TotalSignals >= def.MinSignals &&
		m.TotalCopiers >= def.MinCopiers &&
		m.ReputationScore >= def.MinReputationScore
}
