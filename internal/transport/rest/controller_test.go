package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// stubService returns canned values; err (when set) is returned from
// every operation.
type stubService struct {
	err    error
	owner  model.Owner
	lot    model.StockLot
	events []model.SellEvent
}

func (s *stubService) CreateOwner(context.Context, string) (model.Owner, error) {
	return s.owner, s.err
}
func (s *stubService) GetOwner(context.Context, int64) (model.Owner, error) {
	return s.owner, s.err
}
func (s *stubService) ListOwners(context.Context) ([]model.Owner, error) {
	return []model.Owner{s.owner}, s.err
}
func (s *stubService) RegisterStock(context.Context, model.Stock) (model.Stock, error) {
	return model.Stock{}, s.err
}
func (s *stubService) GetStock(context.Context, int64) (model.Stock, error) {
	return model.Stock{}, s.err
}
func (s *stubService) ListStocks(context.Context) ([]model.Stock, error) {
	return nil, s.err
}
func (s *stubService) BuyStock(context.Context, int64, string, model.BuyRequest) (model.StockLot, error) {
	return s.lot, s.err
}
func (s *stubService) SellLot(context.Context, int64, model.SellRequest) ([]model.SellEvent, error) {
	return s.events, s.err
}
func (s *stubService) RegisterIncome(context.Context, int64, decimal.Decimal, time.Time) (model.IncomeRecord, error) {
	return model.IncomeRecord{}, s.err
}
func (s *stubService) RegisterBenefit(context.Context, int64, decimal.Decimal, time.Time) (model.BenefitRecord, error) {
	return model.BenefitRecord{}, s.err
}
func (s *stubService) ListHoldings(context.Context, *int64) ([]model.Holding, error) {
	return nil, s.err
}
func (s *stubService) ComputeProfitLoss(context.Context, *int64) (model.ProfitLossSummary, error) {
	return model.ProfitLossSummary{}, s.err
}
func (s *stubService) ClosedSaleBreakdown(context.Context, *int64) ([]model.SaleRecord, error) {
	return nil, s.err
}
func (s *stubService) GenerateProfitLossReport(context.Context, *int64) ([]byte, string, error) {
	return []byte("xlsx"), "report.xlsx", s.err
}
func (s *stubService) VerifyLotIntegrity(context.Context, int64) error { return s.err }
func (s *stubService) VerifyIntegrity(context.Context) error           { return s.err }
func (s *stubService) RefreshStockQuotes(context.Context) error        { return s.err }

func doRequest(t *testing.T, svc StockManagerService, method, target, body string) *http.Response {
	t.Helper()
	app := NewRouter(NewController(svc))

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestErrorMapping(t *testing.T) {
	t.Run("not found maps to 404", func(t *testing.T) {
		resp := doRequest(t, &stubService{err: service.ErrNotFound}, http.MethodGet, "/api/v1/owners/1", "")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("duplicate maps to 409", func(t *testing.T) {
		resp := doRequest(t, &stubService{err: service.ErrAlreadyExists}, http.MethodPost, "/api/v1/owners", `{"name":"Bob"}`)
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("insufficient units maps to 422 with details", func(t *testing.T) {
		svc := &stubService{err: &service.InsufficientUnitsError{LotID: 1, Requested: 5, Available: 3}}
		resp := doRequest(t, svc, http.MethodPost, "/api/v1/lots/1/sell", `{"units":5,"price":"2600","transaction_date":"2025-01-10"}`)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Contains(t, body["error"], "requested=5")
	})

	t.Run("invalid quantity maps to 422", func(t *testing.T) {
		resp := doRequest(t, &stubService{err: service.ErrInvalidQuantity}, http.MethodPost, "/api/v1/lots/1/sell", `{"units":0}`)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("unexpected error maps to 500", func(t *testing.T) {
		resp := doRequest(t, &stubService{err: context.DeadlineExceeded}, http.MethodGet, "/api/v1/holdings", "")
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("diverged lot maps to 409", func(t *testing.T) {
		resp := doRequest(t, &stubService{err: service.ErrInvariantViolation}, http.MethodGet, "/api/v1/lots/1/integrity", "")
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("malformed id maps to 400", func(t *testing.T) {
		resp := doRequest(t, &stubService{}, http.MethodGet, "/api/v1/owners/abc", "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed date maps to 400", func(t *testing.T) {
		resp := doRequest(t, &stubService{}, http.MethodPost, "/api/v1/lots/1/sell", `{"units":1,"price":"100","transaction_date":"not-a-date"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHappyPaths(t *testing.T) {
	t.Run("create owner", func(t *testing.T) {
		svc := &stubService{owner: model.Owner{ID: 1, Name: "Bob"}}
		resp := doRequest(t, svc, http.MethodPost, "/api/v1/owners", `{"name":"Bob"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, "Bob", body["name"])
	})

	t.Run("sell returns the produced events", func(t *testing.T) {
		svc := &stubService{events: []model.SellEvent{
			{ID: 10, BuyEventID: 1, Units: 2, Price: decimal.NewFromInt(2600), TransactionDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)},
			{ID: 11, BuyEventID: 2, Units: 1, Price: decimal.NewFromInt(2600), TransactionDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)},
		}}
		resp := doRequest(t, svc, http.MethodPost, "/api/v1/lots/1/sell", `{"units":3,"price":"2600","transaction_date":"2025-01-10"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body []map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body, 2)
		require.Equal(t, "2025-01-10", body[0]["transaction_date"])
	})

	t.Run("report download sets headers", func(t *testing.T) {
		resp := doRequest(t, &stubService{}, http.MethodGet, "/api/v1/profitloss/report", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, resp.Header.Get("Content-Disposition"), "report.xlsx")
	})

	t.Run("health", func(t *testing.T) {
		resp := doRequest(t, &stubService{}, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
