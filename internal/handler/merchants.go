package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/mmeshcher/sales-analyst/internal/analyst"
)

// ItemsPerMerchant возвращает число товаров у каждого продавца.
func (h *Handler) ItemsPerMerchant(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, toMerchantCounts(a.ItemsPerMerchant()))
}

// ItemsPerMerchantStats возвращает среднее и стандартное отклонение числа товаров.
func (h *Handler) ItemsPerMerchantStats(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	avg, err := a.AverageItemsPerMerchant()
	if err != nil {
		h.writeError(w, r, "average items per merchant", err)
		return
	}
	sd, err := a.AverageItemsPerMerchantStdDev()
	if err != nil {
		h.writeError(w, r, "items per merchant deviation", err)
		return
	}

	h.writeJSON(w, distributionResponse{Average: money(avg), StandardDeviation: money(sd)})
}

// MerchantsWithHighItemCount возвращает продавцов с числом товаров выше порога.
func (h *Handler) MerchantsWithHighItemCount(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	ms, err := a.MerchantsWithHighItemCount()
	if err != nil {
		h.writeError(w, r, "merchants with high item count", err)
		return
	}
	h.writeMerchants(w, ms)
}

// AverageAveragePrice возвращает среднее средних цен по продавцам.
func (h *Handler) AverageAveragePrice(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	avg, err := a.AverageAveragePricePerMerchant()
	if err != nil {
		h.writeError(w, r, "average average price", err)
		return
	}
	h.writeJSON(w, map[string]string{"average_price": money(avg)})
}

// MerchantsWithOnlyOneItem возвращает продавцов с одним товаром,
// при наличии параметра month только зарегистрированных в этом месяце.
func (h *Handler) MerchantsWithOnlyOneItem(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	if month := r.URL.Query().Get("month"); month != "" {
		h.writeMerchants(w, a.MerchantsWithOnlyOneItemRegisteredInMonth(month))
		return
	}
	h.writeMerchants(w, a.MerchantsWithOnlyOneItem())
}

// InvoicesPerMerchant возвращает число счетов у каждого продавца.
func (h *Handler) InvoicesPerMerchant(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, toMerchantCounts(a.InvoicesPerMerchant()))
}

// InvoicesPerMerchantStats возвращает среднее и стандартное отклонение числа счетов.
func (h *Handler) InvoicesPerMerchantStats(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	avg, err := a.AverageInvoicesPerMerchant()
	if err != nil {
		h.writeError(w, r, "average invoices per merchant", err)
		return
	}
	sd, err := a.AverageInvoicesPerMerchantStdDev()
	if err != nil {
		h.writeError(w, r, "invoices per merchant deviation", err)
		return
	}

	h.writeJSON(w, distributionResponse{Average: money(avg), StandardDeviation: money(sd)})
}

// TopMerchantsByInvoiceCount возвращает продавцов с аномально большим числом счетов.
func (h *Handler) TopMerchantsByInvoiceCount(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	ms, err := a.TopMerchantsByInvoiceCount()
	if err != nil {
		h.writeError(w, r, "top merchants by invoice count", err)
		return
	}
	h.writeMerchants(w, ms)
}

// BottomMerchantsByInvoiceCount возвращает продавцов с аномально малым числом счетов.
func (h *Handler) BottomMerchantsByInvoiceCount(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	ms, err := a.BottomMerchantsByInvoiceCount()
	if err != nil {
		h.writeError(w, r, "bottom merchants by invoice count", err)
		return
	}
	h.writeMerchants(w, ms)
}

// MerchantsWithPendingInvoices возвращает продавцов с неоплаченными счетами.
func (h *Handler) MerchantsWithPendingInvoices(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	ms, err := a.MerchantsWithPendingInvoices()
	if err != nil {
		h.writeError(w, r, "merchants with pending invoices", err)
		return
	}
	h.writeMerchants(w, ms)
}

// RevenueForEachMerchant возвращает выручку каждого продавца.
func (h *Handler) RevenueForEachMerchant(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	revenues := a.RevenueForEachMerchant()
	resp := make([]merchantRevenueResponse, 0, len(revenues))
	for _, mr := range revenues {
		resp = append(resp, merchantRevenueResponse{Merchant: toMerchant(mr.Merchant), Revenue: money(mr.Revenue)})
	}
	h.writeJSON(w, resp)
}

// TopRevenueEarners возвращает n продавцов с наибольшей выручкой, по умолчанию 20.
func (h *Handler) TopRevenueEarners(w http.ResponseWriter, r *http.Request) {
	n := analyst.DefaultTopEarners
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			h.writeError(w, r, "top revenue earners", fmt.Errorf("n=%q: %w", raw, errBadParam))
			return
		}
		n = v
	}

	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}
	h.writeMerchants(w, a.TopRevenueEarners(n))
}

// MerchantsRankedByRevenue возвращает всех продавцов по убыванию выручки.
func (h *Handler) MerchantsRankedByRevenue(w http.ResponseWriter, r *http.Request) {
	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}
	h.writeMerchants(w, a.MerchantsRankedByRevenue())
}

// AverageItemPriceForMerchant возвращает среднюю цену товаров продавца.
func (h *Handler) AverageItemPriceForMerchant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, "average item price", err)
		return
	}

	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	avg, err := a.AverageItemPriceForMerchant(id)
	if err != nil {
		h.writeError(w, r, "average item price", err)
		return
	}
	h.writeJSON(w, map[string]any{"merchant_id": id, "average_price": money(avg)})
}

// RevenueByMerchant возвращает выручку продавца по всем строкам счетов.
func (h *Handler) RevenueByMerchant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, "revenue by merchant", err)
		return
	}

	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	revenue, err := a.RevenueByMerchant(id)
	if err != nil {
		h.writeError(w, r, "revenue by merchant", err)
		return
	}
	h.writeJSON(w, map[string]any{"merchant_id": id, "revenue": money(revenue)})
}

// MostSoldItemForMerchant возвращает товары с наибольшим количеством в одной строке.
func (h *Handler) MostSoldItemForMerchant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, "most sold item", err)
		return
	}

	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	items, err := a.MostSoldItemForMerchant(id)
	if err != nil {
		h.writeError(w, r, "most sold item", err)
		return
	}
	h.writeItems(w, items)
}

// BestItemForMerchant возвращает товар продавца с наибольшей выручкой.
func (h *Handler) BestItemForMerchant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, "best item", err)
		return
	}

	a, ok := h.currentAnalyst(w, r)
	if !ok {
		return
	}

	item, err := a.BestItemForMerchant(id)
	if err != nil {
		h.writeError(w, r, "best item", err)
		return
	}
	h.writeJSON(w, toItem(item))
}
