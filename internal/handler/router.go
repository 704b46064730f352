package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/sales-analyst/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса аналитики.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.Metrics)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)

		r.Route("/api/merchants", func(r chi.Router) {
			r.Get("/items", h.ItemsPerMerchant)
			r.Get("/items/stats", h.ItemsPerMerchantStats)
			r.Get("/items/high", h.MerchantsWithHighItemCount)
			r.Get("/items/average-price", h.AverageAveragePrice)
			r.Get("/single-item", h.MerchantsWithOnlyOneItem)

			r.Get("/invoices", h.InvoicesPerMerchant)
			r.Get("/invoices/stats", h.InvoicesPerMerchantStats)
			r.Get("/invoices/top", h.TopMerchantsByInvoiceCount)
			r.Get("/invoices/bottom", h.BottomMerchantsByInvoiceCount)
			r.Get("/pending", h.MerchantsWithPendingInvoices)

			r.Get("/revenue", h.RevenueForEachMerchant)
			r.Get("/revenue/top", h.TopRevenueEarners)
			r.Get("/revenue/ranked", h.MerchantsRankedByRevenue)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/items/average-price", h.AverageItemPriceForMerchant)
				r.Get("/items/most-sold", h.MostSoldItemForMerchant)
				r.Get("/items/best", h.BestItemForMerchant)
				r.Get("/revenue", h.RevenueByMerchant)
			})
		})

		r.Route("/api/items", func(r chi.Router) {
			r.Get("/prices", h.AllItemPrices)
			r.Get("/golden", h.GoldenItems)
		})

		r.Route("/api/invoices", func(r chi.Router) {
			r.Get("/days/top", h.TopDaysByInvoiceCount)
			r.Get("/status/{status}", h.InvoiceStatusPercentage)
			r.Get("/{id}/paid", h.IsInvoicePaidInFull)
			r.Get("/{id}/total", h.InvoiceTotal)
		})

		r.Get("/api/revenue/{date}", h.TotalRevenueByDate)

		if h.apiKey.Enabled() {
			r.With(h.apiKey.Middleware).Post("/api/snapshot/reload", h.ReloadSnapshot)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
