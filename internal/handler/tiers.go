package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stellarsignals/internal/models"
	"stellarsignals/internal/money"
	"stellarsignals/internal/tier"
)

type TierHandler struct {
	Catalog *tier.Catalog
	Logger  *zap.Logger
}

func (h *TierHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/tiers")
	group.GET("", h.listTiers)
	group.GET("/:level", h.getTier)
	group.PATCH("/:level", h.updateTier)
}

func (h *TierHandler) listTiers(c *gin.Context) {
	if h.Catalog == nil {
		Error(c, http.StatusInternalServerError, "catalog unavailable", nil)
		return
	}
	Ok(c, h.Catalog.ListActive(), nil)
}

func (h *TierHandler) getTier(c *gin.Context) {
	if h.Catalog == nil {
		Error(c, http.StatusInternalServerError, "catalog unavailable", nil)
		return
	}
	level := models.TierLevel(strings.ToUpper(strings.TrimSpace(c.Param("level"))))
	def, err := h.Catalog.Definition(level)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, def, nil)
}

type updateTierRequest struct {
	Name                      *string  `json:"name"`
	RevenueSharePercentage    *string  `json:"revenue_share_percentage"`
	MinWinRate                *float64 `json:"min_win_rate"`
	MinSignals                *int     `json:"min_signals"`
	MinCopiers                *int     `json:"min_copiers"`
	MinReputationScore        *float64 `json:"min_reputation_score"`
	PerformanceBonusUsdc      *string  `json:"performance_bonus_usdc"`
	MonthlyRetentionBonusUsdc *string  `json:"monthly_retention_bonus_usdc"`
	IsActive                  *bool    `json:"is_active"`
}

func (h *TierHandler) updateTier(c *gin.Context) {
	if h.Catalog == nil {
		Error(c, http.StatusInternalServerError, "catalog unavailable", nil)
		return
	}
	var req updateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	upd := tier.DefinitionUpdate{
		Name:               req.Name,
		MinWinRate:         req.MinWinRate,
		MinSignals:         req.MinSignals,
		MinCopiers:         req.MinCopiers,
		MinReputationScore: req.MinReputationScore,
		IsActive:           req.IsActive,
	}
	if req.RevenueSharePercentage != nil {
		pct, err := money.Parse(*req.RevenueSharePercentage)
		if err != nil {
			Fail(c, err)
			return
		}
		upd.RevenueSharePercentage = &pct
	}
	if req.PerformanceBonusUsdc != nil {
		amount, err := money.Parse(*req.PerformanceBonusUsdc)
		if err != nil {
			Fail(c, err)
			return
		}
		upd.PerformanceBonusUsdc = &amount
	}
	if req.MonthlyRetentionBonusUsdc != nil {
		amount, err := money.Parse(*req.MonthlyRetentionBonusUsdc)
		if err != nil {
			Fail(c, err)
			return
		}
		upd.MonthlyRetentionBonusUsdc = &amount
	}

	level := models.TierLevel(strings.ToUpper(strings.TrimSpace(c.Param("level"))))
	def, err := h.Catalog.Update(c.Request.Context(), level, upd)
	if err != nil {
		Fail(c, err)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("tier definition updated", zap.String("tier", string(level)))
	}
	Ok(c, def, nil)
}
