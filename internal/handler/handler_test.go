package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mmeshcher/sales-analyst/internal/analyst"
	"github.com/mmeshcher/sales-analyst/internal/middleware"
	"github.com/mmeshcher/sales-analyst/internal/model"
	"github.com/mmeshcher/sales-analyst/internal/repository"
	"github.com/mmeshcher/sales-analyst/internal/service"
)

type stubService struct {
	analyst    *analyst.Analyst
	analystErr error

	reloadCounts repository.Counts
	reloadErr    error
	reloads      int
}

func (s *stubService) Analyst() (*analyst.Analyst, error) {
	return s.analyst, s.analystErr
}

func (s *stubService) Reload(ctx context.Context) (repository.Counts, error) {
	s.reloads++
	return s.reloadCounts, s.reloadErr
}

var day = time.Date(2012, time.March, 5, 12, 0, 0, 0, time.UTC)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fixture: продавец 1 с оплаченным счётом на 20.00 и неоплаченным на 100.00, продавец 2 без товаров.
func fixture() repository.Data {
	return repository.Data{
		Merchants: []model.Merchant{
			{ID: 1, Name: "Shopin1901", CreatedAt: day},
			{ID: 2, Name: "Candisart", CreatedAt: day},
		},
		Items: []model.Item{
			{ID: 10, Name: "Pen", UnitPrice: price("5.00"), MerchantID: 1},
			{ID: 11, Name: "Book", UnitPrice: price("10.00"), MerchantID: 1},
			{ID: 12, Name: "Lamp", UnitPrice: price("100.00"), MerchantID: 1},
		},
		Invoices: []model.Invoice{
			{ID: 100, CustomerID: 1, MerchantID: 1, Status: model.InvoiceStatusShipped, CreatedAt: day},
			{ID: 101, CustomerID: 1, MerchantID: 1, Status: model.InvoiceStatusPending, CreatedAt: day.AddDate(0, 0, 1)},
		},
		InvoiceItems: []model.InvoiceItem{
			{ID: 1, InvoiceID: 100, ItemID: 10, Quantity: 2, UnitPrice: price("5.00")},
			{ID: 2, InvoiceID: 100, ItemID: 11, Quantity: 1, UnitPrice: price("10.00")},
			{ID: 3, InvoiceID: 101, ItemID: 12, Quantity: 1, UnitPrice: price("100.00")},
		},
		Transactions: []model.Transaction{
			{ID: 1, InvoiceID: 100, Result: model.TransactionResultSuccess},
			{ID: 2, InvoiceID: 101, Result: model.TransactionResultFailed},
		},
	}
}

func newTestHandler(t *testing.T, svc Service, apiKey string) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(svc, logger, middleware.NewAPIKeyMiddleware(apiKey))
}

func loadedService() *stubService {
	return &stubService{analyst: service.NewAnalyst(repository.NewSnapshot(fixture()))}
}

func serve(t *testing.T, h *Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec
}

func TestRoutes_Status(t *testing.T) {
	h := newTestHandler(t, loadedService(), "")

	tests := []struct {
		path string
		want int
	}{
		{path: "/health", want: http.StatusOK},
		{path: "/api/merchants/items", want: http.StatusOK},
		{path: "/api/merchants/items/stats", want: http.StatusOK},
		{path: "/api/merchants/items/high", want: http.StatusNoContent},
		{path: "/api/merchants/items/average-price", want: http.StatusUnprocessableEntity},
		{path: "/api/merchants/single-item", want: http.StatusNoContent},
		{path: "/api/merchants/invoices", want: http.StatusOK},
		{path: "/api/merchants/invoices/stats", want: http.StatusOK},
		{path: "/api/merchants/invoices/top", want: http.StatusNoContent},
		{path: "/api/merchants/invoices/bottom", want: http.StatusOK},
		{path: "/api/merchants/pending", want: http.StatusOK},
		{path: "/api/merchants/revenue", want: http.StatusOK},
		{path: "/api/merchants/revenue/top?n=1", want: http.StatusOK},
		{path: "/api/merchants/revenue/top?n=abc", want: http.StatusBadRequest},
		{path: "/api/merchants/revenue/ranked", want: http.StatusOK},
		{path: "/api/merchants/1/items/average-price", want: http.StatusOK},
		{path: "/api/merchants/2/items/average-price", want: http.StatusUnprocessableEntity},
		{path: "/api/merchants/9/items/average-price", want: http.StatusNotFound},
		{path: "/api/merchants/x/items/average-price", want: http.StatusBadRequest},
		{path: "/api/merchants/1/items/most-sold", want: http.StatusOK},
		{path: "/api/merchants/1/items/best", want: http.StatusOK},
		{path: "/api/merchants/2/items/best", want: http.StatusUnprocessableEntity},
		{path: "/api/items/prices", want: http.StatusOK},
		{path: "/api/items/golden", want: http.StatusNoContent},
		{path: "/api/invoices/days/top", want: http.StatusNoContent},
		{path: "/api/invoices/status/shipped", want: http.StatusOK},
		{path: "/api/invoices/status/lost", want: http.StatusBadRequest},
		{path: "/api/invoices/100/paid", want: http.StatusOK},
		{path: "/api/invoices/100/total", want: http.StatusOK},
		{path: "/api/revenue/2012-03-05", want: http.StatusOK},
		{path: "/api/revenue/05-03-2012", want: http.StatusBadRequest},
		{path: "/api/unknown", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(t, h, http.MethodGet, tt.path, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body %q", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRevenueByMerchant_Body(t *testing.T) {
	h := newTestHandler(t, loadedService(), "")

	rec := serve(t, h, http.MethodGet, "/api/merchants/1/revenue", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		MerchantID int64  `json:"merchant_id"`
		Revenue    string `json:"revenue"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MerchantID != 1 || resp.Revenue != "120.00" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRevenueForEachMerchant_Body(t *testing.T) {
	h := newTestHandler(t, loadedService(), "")

	rec := serve(t, h, http.MethodGet, "/api/merchants/revenue", nil)

	var resp []merchantRevenueResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("len = %d, want 2", len(resp))
	}
	if resp[0].Merchant.ID != 1 || resp[0].Revenue != "20.00" {
		t.Fatalf("unexpected first entry: %+v", resp[0])
	}
	if resp[1].Revenue != "0.00" {
		t.Fatalf("unexpected second entry: %+v", resp[1])
	}
}

func TestInvoiceTotal_Unpaid(t *testing.T) {
	h := newTestHandler(t, loadedService(), "")

	rec := serve(t, h, http.MethodGet, "/api/invoices/101/total", nil)

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["total"] != "0.00" {
		t.Fatalf("total = %v, want 0.00", resp["total"])
	}
}

func TestSnapshotNotLoaded(t *testing.T) {
	h := newTestHandler(t, &stubService{analystErr: service.ErrSnapshotNotLoaded}, "")

	rec := serve(t, h, http.MethodGet, "/api/merchants/items", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestDataIntegrityIsInternalError(t *testing.T) {
	d := fixture()
	d.InvoiceItems = append(d.InvoiceItems, model.InvoiceItem{ID: 4, InvoiceID: 100, ItemID: 999, Quantity: 50, UnitPrice: price("1.00")})
	svc := &stubService{analyst: service.NewAnalyst(repository.NewSnapshot(d))}
	h := newTestHandler(t, svc, "")

	rec := serve(t, h, http.MethodGet, "/api/merchants/1/items/most-sold", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestReloadSnapshot(t *testing.T) {
	t.Run("disabled without api key", func(t *testing.T) {
		svc := loadedService()
		h := newTestHandler(t, svc, "")

		rec := serve(t, h, http.MethodPost, "/api/snapshot/reload", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
		if svc.reloads != 0 {
			t.Fatalf("reload must not be called")
		}
	})

	t.Run("unauthorized", func(t *testing.T) {
		svc := loadedService()
		h := newTestHandler(t, svc, "secret")

		rec := serve(t, h, http.MethodPost, "/api/snapshot/reload", map[string]string{middleware.APIKeyHeader: "wrong"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("success", func(t *testing.T) {
		svc := loadedService()
		svc.reloadCounts = repository.Counts{Merchants: 2, Items: 3}
		h := newTestHandler(t, svc, "secret")

		rec := serve(t, h, http.MethodPost, "/api/snapshot/reload", map[string]string{middleware.APIKeyHeader: "secret"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var resp reloadResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Merchants != 2 || resp.Items != 3 {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("reload error", func(t *testing.T) {
		svc := loadedService()
		svc.reloadErr = errors.New("connection refused")
		h := newTestHandler(t, svc, "secret")

		rec := serve(t, h, http.MethodPost, "/api/snapshot/reload", map[string]string{middleware.APIKeyHeader: "secret"})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}

func TestReloadSnapshot_LogsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	svc := loadedService()
	svc.reloadErr = errors.New("connection refused")
	h := NewHandler(svc, zap.New(core), middleware.NewAPIKeyMiddleware("secret"))

	rec := serve(t, h, http.MethodPost, "/api/snapshot/reload", map[string]string{
		middleware.APIKeyHeader:    "secret",
		middleware.RequestIDHeader: "req-42",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	entries := logs.FilterMessage("reload snapshot error").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 reload error entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-42" {
		t.Fatalf("request_id = %v, want req-42", got)
	}
}
