package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stellarsignals/internal/errs"
	"stellarsignals/internal/tier"
)

type EvaluationHandler struct {
	Evaluator *tier.Evaluator
}

func (h *EvaluationHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/providers/:id/evaluate", h.evaluateProvider)
	r.POST("/api/v1/evaluations/run", h.evaluateAll)
}

func (h *EvaluationHandler) evaluateProvider(c *gin.Context) {
	if h.Evaluator == nil {
		Error(c, http.StatusInternalServerError, "evaluator unavailable", nil)
		return
	}
	providerID := strings.TrimSpace(c.Param("id"))
	if providerID == "" {
		Fail(c, errs.ErrInvalidArgument)
		return
	}
	result, err := h.Evaluator.EvaluateProvider(c.Request.Context(), providerID)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, result, nil)
}

func (h *EvaluationHandler) evaluateAll(c *gin.Context) {
	if h.Evaluator == nil {
		Error(c, http.StatusInternalServerError, "evaluator unavailable", nil)
		return
	}
	results, err := h.Evaluator.EvaluateAll(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, results, map[string]any{"evaluated": len(results)})
}
