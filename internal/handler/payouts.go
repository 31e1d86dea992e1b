package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stellarsignals/internal/errs"
	"stellarsignals/internal/models"
	"stellarsignals/internal/payout"
	"stellarsignals/internal/repository"
)

type PayoutHandler struct {
	Repo   repository.Repository
	Ledger *payout.Ledger
	// PendingPageSize is the default page size for /pending when the request
	// carries no limit. Zero falls back to 100.
	PendingPageSize int
}

func (h *PayoutHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/payouts")
	group.GET("", h.listPayouts)
	group.GET("/pending", h.listPending)
	group.GET("/:id", h.getPayout)
	group.POST("/:id/confirm", h.confirmPayout)
	group.POST("/:id/fail", h.failPayout)
	group.POST("/:id/retry", h.retryPayout)
	group.POST("/:id/escalate", h.escalatePayout)
}

func (h *PayoutHandler) listPayouts(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	var status *models.PayoutStatus
	if s := strQueryPtr(c, "status"); s != nil {
		v := models.PayoutStatus(strings.ToUpper(*s))
		status = &v
	}
	var bonusType *models.BonusType
	if s := strQueryPtr(c, "bonus_type"); s != nil {
		v := models.BonusType(strings.ToUpper(*s))
		bonusType = &v
	}

	params := repository.ListPayoutsParams{
		Limit:       limit,
		Offset:      offset,
		ProviderID:  strQueryPtr(c, "provider_id"),
		Status:      status,
		BonusType:   bonusType,
		PeriodYear:  intQueryPtr(c, "period_year"),
		PeriodMonth: intQueryPtr(c, "period_month"),
		OrderBy:     "created_at",
	}
	asc := boolQueryDefault(c, "asc", false)
	params.Asc = &asc

	items, err := h.Repo.ListPayouts(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	total, err := h.Repo.CountPayouts(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *PayoutHandler) listPending(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	pageSize := h.PendingPageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	items, err := h.Ledger.Pending(c.Request.Context(), intQuery(c, "limit", pageSize))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *PayoutHandler) getPayout(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := payoutID(c)
	if !ok {
		return
	}
	item, err := h.Repo.GetPayoutByID(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if item == nil {
		Fail(c, errs.ErrNotFound)
		return
	}
	Ok(c, item, nil)
}

type confirmPayoutRequest struct {
	StellarTxHash string `json:"stellar_tx_hash"`
}

func (h *PayoutHandler) confirmPayout(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	id, ok := payoutID(c)
	if !ok {
		return
	}
	var req confirmPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Ledger.Confirm(c.Request.Context(), id, req.StellarTxHash)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

type failPayoutRequest struct {
	Reason string `json:"reason"`
}

func (h *PayoutHandler) failPayout(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	id, ok := payoutID(c)
	if !ok {
		return
	}
	var req failPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Ledger.MarkFailed(c.Request.Context(), id, req.Reason)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *PayoutHandler) retryPayout(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	id, ok := payoutID(c)
	if !ok {
		return
	}
	item, err := h.Ledger.Retry(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *PayoutHandler) escalatePayout(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	id, ok := payoutID(c)
	if !ok {
		return
	}
	item, err := h.Ledger.Escalate(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func payoutID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid payout id", nil)
		return 0, false
	}
	return id, true
}
