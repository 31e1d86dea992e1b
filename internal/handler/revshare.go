package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"stellarsignals/internal/errs"
	"stellarsignals/internal/models"
	"stellarsignals/internal/money"
	"stellarsignals/internal/revshare"
)

type RevShareHandler struct {
	Calc  *revshare.Calculator
	Batch *revshare.Orchestrator
}

func (h *RevShareHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/revshare")
	group.POST("/calculate", h.calculate)
	group.POST("/payout", h.processPayout)
	group.POST("/bonus", h.awardBonus)
	group.POST("/streak-check", h.streakCheck)
	group.POST("/batch/monthly", h.monthlyBatch)
	group.POST("/batch/retention", h.retentionRound)
}

type calculateRequest struct {
	ProviderID   string `json:"provider_id"`
	BaseRevenue  string `json:"base_revenue"`
	IncludeBonus bool   `json:"include_bonus"`
}

func (h *RevShareHandler) calculate(c *gin.Context) {
	if h.Calc == nil {
		Error(c, http.StatusInternalServerError, "calculator unavailable", nil)
		return
	}
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	base, err := money.Parse(req.BaseRevenue)
	if err != nil {
		Fail(c, err)
		return
	}
	calc, err := h.Calc.Calculate(c.Request.Context(), req.ProviderID, base, req.IncludeBonus)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, calc, nil)
}

type processPayoutRequest struct {
	ProviderID    string  `json:"provider_id"`
	BaseRevenue   string  `json:"base_revenue"`
	IncludeBonus  bool    `json:"include_bonus"`
	BonusOverride *string `json:"bonus_override"`
	PeriodYear    int     `json:"period_year"`
	PeriodMonth   int     `json:"period_month"`
}

func (h *RevShareHandler) processPayout(c *gin.Context) {
	if h.Calc == nil {
		Error(c, http.StatusInternalServerError, "calculator unavailable", nil)
		return
	}
	var req processPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	base, err := money.Parse(req.BaseRevenue)
	if err != nil {
		Fail(c, err)
		return
	}
	opts := revshare.PayoutOptions{
		IncludeBonus: req.IncludeBonus,
		PeriodYear:   req.PeriodYear,
		PeriodMonth:  req.PeriodMonth,
	}
	if req.BonusOverride != nil {
		override, err := money.Parse(*req.BonusOverride)
		if err != nil {
			Fail(c, err)
			return
		}
		opts.BonusOverride = &override
	}
	item, err := h.Calc.ProcessProviderPayout(c.Request.Context(), req.ProviderID, base, opts)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

type awardBonusRequest struct {
	ProviderID string `json:"provider_id"`
	Amount     string `json:"amount"`
	BonusType  string `json:"bonus_type"`
	Reason     string `json:"reason"`
}

func (h *RevShareHandler) awardBonus(c *gin.Context) {
	if h.Calc == nil {
		Error(c, http.StatusInternalServerError, "calculator unavailable", nil)
		return
	}
	var req awardBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		Fail(c, err)
		return
	}
	bonusType := models.BonusType(strings.ToUpper(strings.TrimSpace(req.BonusType)))
	switch bonusType {
	case models.BonusPerformance, models.BonusMonthlyTop, models.BonusStreak:
	default:
		Fail(c, errs.ErrInvalidArgument)
		return
	}
	item, err := h.Calc.AwardPerformanceBonus(c.Request.Context(), req.ProviderID, amount, bonusType, req.Reason)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

type streakCheckRequest struct {
	ProviderID string `json:"provider_id"`
}

func (h *RevShareHandler) streakCheck(c *gin.Context) {
	if h.Calc == nil {
		Error(c, http.StatusInternalServerError, "calculator unavailable", nil)
		return
	}
	var req streakCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Calc.CheckAndIssueStreakBonus(c.Request.Context(), req.ProviderID)
	if err != nil {
		Fail(c, err)
		return
	}
	if item == nil {
		Ok(c, nil, map[string]any{"issued": false})
		return
	}
	Ok(c, item, map[string]any{"issued": true})
}

type monthlyBatchRequest struct {
	PeriodYear  int               `json:"period_year"`
	PeriodMonth int               `json:"period_month"`
	Revenue     map[string]string `json:"revenue"`
}

func (h *RevShareHandler) monthlyBatch(c *gin.Context) {
	if h.Batch == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	var req monthlyBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	revenue := make(map[string]decimal.Decimal, len(req.Revenue))
	for id, raw := range req.Revenue {
		amount, err := money.Parse(raw)
		if err != nil {
			Fail(c, err)
			return
		}
		revenue[id] = amount
	}
	result, err := h.Batch.ProcessMonthlyBatch(c.Request.Context(), req.PeriodYear, req.PeriodMonth, revenue)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, result, nil)
}

type retentionRoundRequest struct {
	PeriodYear  int `json:"period_year"`
	PeriodMonth int `json:"period_month"`
}

func (h *RevShareHandler) retentionRound(c *gin.Context) {
	if h.Batch == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	var req retentionRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.PeriodYear == 0 && req.PeriodMonth == 0 {
		req.PeriodYear, req.PeriodMonth = revshare.PreviousPeriod(time.Now())
	}
	result, err := h.Batch.RunRetentionBonusRound(c.Request.Context(), req.PeriodYear, req.PeriodMonth)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, result, nil)
}
