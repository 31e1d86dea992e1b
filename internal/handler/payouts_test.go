package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"stellarsignals/internal/models"
	"stellarsignals/internal/payout"
	memrepository "stellarsignals/internal/repository/memory"
)

func newPayoutRouter(t *testing.T, pageSize int) (*gin.Engine, *payout.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memrepository.New()
	ledger := &payout.Ledger{Repo: store}
	h := &PayoutHandler{Repo: store, Ledger: ledger, PendingPageSize: pageSize}
	engine := gin.New()
	h.Register(engine)
	return engine, ledger
}

func recordPending(t *testing.T, ledger *payout.Ledger, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := ledger.Record(context.Background(), payout.RecordParams{
			ProviderID:         fmt.Sprintf("p%d", i),
			TierLevel:          models.TierGold,
			BaseRevenue:        decimal.NewFromInt(1000),
			SharePercentage:    decimal.NewFromInt(8),
			RevenueShareAmount: decimal.NewFromInt(80),
			WalletAddress:      fmt.Sprintf("GADDR%d", i),
		})
		if err != nil {
			t.Fatalf("record payout %d: %v", i, err)
		}
	}
}

func TestListPendingUsesConfiguredPageSize(t *testing.T) {
	engine, ledger := newPayoutRouter(t, 2)
	recordPending(t, ledger, 3)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/pending", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Code int                            `json:"code"`
		Data []models.ProviderRevenuePayout `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("pending page = %d rows, want the configured 2", len(resp.Data))
	}
}

func TestListPendingQueryLimitOverridesPageSize(t *testing.T) {
	engine, ledger := newPayoutRouter(t, 2)
	recordPending(t, ledger, 3)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/pending?limit=3", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Data []models.ProviderRevenuePayout `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("pending page = %d rows, want 3", len(resp.Data))
	}
}
