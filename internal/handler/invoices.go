package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/sales-analyst/internal/model"
)

// AllItemPrices возвращает цены всех товаров.
func (h *Handler) AllItemPrices(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	prices := a.AllItemPrices()
	resp := make([]string, 0, len(prices))
	for _, p := range prices {
		resp = append(resp, money(p))
	}
	h.writeJSON(w, resp)
}

// GoldenItems возвращает товары с ценой выше среднего на два стандартных отклонения.
func (h *Handler) GoldenItems(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	items, err := a.GoldenItems()
	if err != nil {
		h.writeError(w, r, "golden items", err)
		return
	}
	h.writeItems(w, items)
}

// TopDaysByInvoiceCount возвращает дни недели с аномально большим числом счетов.
func (h *Handler) TopDaysByInvoiceCount(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	days, err := a.TopDaysByInvoiceCount()
	if err != nil {
		h.writeError(w, r, "top days by invoice count", err)
		return
	}
	if len(days) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, days)
}

// InvoiceStatusPercentage возвращает долю счетов с указанным статусом.
func (h *Handler) InvoiceStatusPercentage(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "status")
	status := model.InvoiceStatus(strings.ToLower(raw))
	if !status.Valid() {
		h.writeError(w, r, "invoice status percentage", fmt.Errorf("status %q: %w", raw, errBadParam))
		return
	}

	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	pct, err := a.InvoiceStatusPercentage(status)
	if err != nil {
		h.writeError(w, r, "invoice status percentage", err)
		return
	}
	h.writeJSON(w, map[string]string{"status": string(status), "percentage": money(pct)})
}

// IsInvoicePaidInFull сообщает, оплачен ли счёт.
func (h *Handler) IsInvoicePaidInFull(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, "invoice paid", err)
		return
	}

	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, map[string]any{"invoice_id": id, "paid": a.IsInvoicePaidInFull(id)})
}

// InvoiceTotal возвращает сумму оплаченного счёта.
func (h *Handler) InvoiceTotal(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, "invoice total", err)
		return
	}

	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, map[string]any{"invoice_id": id, "total": money(a.InvoiceTotal(id))})
}

// TotalRevenueByDate возвращает сумму строк счетов, созданных в указанный день.
func (h *Handler) TotalRevenueByDate(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		h.writeError(w, r, "total revenue by date", fmt.Errorf("date %q: %w", raw, errBadParam))
		return
	}

	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, map[string]string{"date": date.Format(dateLayout), "revenue": money(a.TotalRevenueByDate(date))})
}
