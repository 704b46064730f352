// Package handler содержит HTTP-обработчики API аналитики продаж.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/sales-analyst/internal/analyst"
	"github.com/mmeshcher/sales-analyst/internal/middleware"
	"github.com/mmeshcher/sales-analyst/internal/model"
	"github.com/mmeshcher/sales-analyst/internal/repository"
	"github.com/mmeshcher/sales-analyst/internal/service"
)

const dateLayout = "2006-01-02"

var errBadParam = errors.New("bad request parameter")

// Service определяет контракт сервиса, используемого HTTP-обработчиками.
type Service interface {
	Analyst() (*analyst.Analyst, error)
	Reload(ctx context.Context) (repository.Counts, error)
}

// Handler реализует HTTP-обработчики API аналитики продаж.
type Handler struct {
	service Service
	logger  *zap.Logger
	apiKey  *middleware.APIKeyMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, apiKey *middleware.APIKeyMiddleware) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		apiKey:  apiKey,
	}
}

type merchantResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type itemResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitPrice   string `json:"unit_price"`
	MerchantID  int64  `json:"merchant_id"`
}

type merchantCountResponse struct {
	Merchant merchantResponse `json:"merchant"`
	Count    int              `json:"count"`
}

type merchantRevenueResponse struct {
	Merchant merchantResponse `json:"merchant"`
	Revenue  string           `json:"revenue"`
}

type distributionResponse struct {
	Average           string `json:"average"`
	StandardDeviation string `json:"standard_deviation"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toMerchant(m model.Merchant) merchantResponse {
	return merchantResponse{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func toMerchants(ms []model.Merchant) []merchantResponse {
	resp := make([]merchantResponse, 0, len(ms))
	for _, m := range ms {
		resp = append(resp, toMerchant(m))
	}
	return resp
}

func toItem(it model.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		UnitPrice:   money(it.UnitPrice),
		MerchantID:  it.MerchantID,
	}
}

func toItems(items []model.Item) []itemResponse {
	resp := make([]itemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, toItem(it))
	}
	return resp
}

func toMerchantCounts(counts []analyst.MerchantCount) []merchantCountResponse {
	resp := make([]merchantCountResponse, 0, len(counts))
	for _, mc := range counts {
		resp = append(resp, merchantCountResponse{Merchant: toMerchant(mc.Merchant), Count: mc.Count})
	}
	return resp
}

// currentAnalyst возвращает анализатор текущего снимка или пишет ошибку в ответ.
func (h *Handler) currentAnalyst(w http.ResponseWriter, r *http.Request) (*analyst.Analyst, bool) {
	a, err := h.service.Analyst()
	if err != nil {
		h.writeError(w, r, "get analyst", err)
		return nil, false
	}
	return a, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// writeMerchants отвечает 204, если список пуст.
func (h *Handler) writeMerchants(w http.ResponseWriter, ms []model.Merchant) {
	if len(ms) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, toMerchants(ms))
}

func (h *Handler) writeItems(w http.ResponseWriter, items []model.Item) {
	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, toItems(items))
}

// writeError переводит ошибку анализатора в HTTP-статус.
// Нарушение целостности проверяется раньше отсутствия записи: ошибка может нести оба признака.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var status int
	switch {
	case errors.Is(err, errBadParam):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrSnapshotNotLoaded):
		status = http.StatusServiceUnavailable
	case errors.Is(err, analyst.ErrDataIntegrity):
		status = http.StatusInternalServerError
	case errors.Is(err, analyst.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, analyst.ErrEmptyInput):
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		requestID, _ := middleware.GetRequestIDFromContext(r.Context())
		h.logger.Error(op+" error", zap.Error(err), zap.String("request_id", requestID))
	}

	http.Error(w, http.StatusText(status), status)
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadParam
	}
	return id, nil
}

// Health отвечает на проверку живости.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"})
}

type reloadResponse struct {
	Merchants    int `json:"merchants"`
	Items        int `json:"items"`
	Invoices     int `json:"invoices"`
	InvoiceItems int `json:"invoice_items"`
	Transactions int `json:"transactions"`
	Customers    int `json:"customers"`
}

// ReloadSnapshot перечитывает снимок из источника.
func (h *Handler) ReloadSnapshot(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Reload(r.Context())
	if err != nil {
		h.writeError(w, r, "reload snapshot", err)
		return
	}

	h.writeJSON(w, reloadResponse(counts))
}
