package analyst

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/sales-analyst/internal/model"
)

// RevenueForEachMerchant возвращает выручку каждого продавца по оплаченным счетам.
func (a *Analyst) RevenueForEachMerchant() []MerchantRevenue {
	perMerchant := a.InvoicesForEachMerchant()

	res := make([]MerchantRevenue, 0, len(perMerchant))
	for _, mi := range perMerchant {
		total := decimal.Zero
		for _, inv := range mi.Invoices {
			total = total.Add(a.InvoiceTotal(inv.ID))
		}
		res = append(res, MerchantRevenue{Merchant: mi.Merchant, Revenue: total})
	}
	return res
}

// rankedByRevenue сортирует продавцов по убыванию выручки, при равенстве — по возрастанию идентификатора.
func (a *Analyst) rankedByRevenue() []model.Merchant {
	revenues := a.RevenueForEachMerchant()
	slices.SortStableFunc(revenues, func(x, y MerchantRevenue) int {
		if c := y.Revenue.Cmp(x.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(x.Merchant.ID, y.Merchant.ID)
	})

	res := make([]model.Merchant, 0, len(revenues))
	for _, mr := range revenues {
		res = append(res, mr.Merchant)
	}
	return res
}

// TopRevenueEarners возвращает n продавцов с наибольшей выручкой по убыванию.
// Если продавцов меньше n, возвращаются все.
func (a *Analyst) TopRevenueEarners(n int) []model.Merchant {
	ranked := a.rankedByRevenue()
	if n < 0 {
		n = 0
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// MerchantsRankedByRevenue возвращает всех продавцов по убыванию выручки.
func (a *Analyst) MerchantsRankedByRevenue() []model.Merchant {
	return a.rankedByRevenue()
}

// MerchantsWithPendingInvoices возвращает продавцов, у которых есть хотя бы один неоплаченный счёт.
func (a *Analyst) MerchantsWithPendingInvoices() ([]model.Merchant, error) {
	seen := make(map[int64]struct{})

	var res []model.Merchant
	for _, inv := range a.invoices.All() {
		if a.IsInvoicePaidInFull(inv.ID) {
			continue
		}
		if _, ok := seen[inv.MerchantID]; ok {
			continue
		}
		seen[inv.MerchantID] = struct{}{}

		m, ok := a.merchants.FindByID(inv.MerchantID)
		if !ok {
			return nil, fmt.Errorf("invoice %d references merchant %d: %w", inv.ID, inv.MerchantID, ErrDataIntegrity)
		}
		res = append(res, m)
	}
	return res, nil
}

// RevenueByMerchant суммирует все строки счетов с товарами продавца независимо от оплаты.
func (a *Analyst) RevenueByMerchant(merchantID int64) (decimal.Decimal, error) {
	if _, err := a.requireMerchant(merchantID); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, it := range a.items.FindAllByMerchantID(merchantID) {
		total = total.Add(linesRevenue(a.invoiceItems.FindAllByItemID(it.ID)))
	}
	return total, nil
}

func (a *Analyst) paidInvoiceItemsForMerchant(merchantID int64) []model.InvoiceItem {
	var lines []model.InvoiceItem
	for _, inv := range a.invoices.FindAllByMerchantID(merchantID) {
		if a.IsInvoicePaidInFull(inv.ID) {
			lines = append(lines, a.invoiceItems.FindAllByInvoiceID(inv.ID)...)
		}
	}
	return lines
}

func (a *Analyst) resolveItem(id int64) (model.Item, error) {
	it, ok := a.items.FindByID(id)
	if !ok {
		return model.Item{}, fmt.Errorf("item %d: %w: %w", id, ErrNotFound, ErrDataIntegrity)
	}
	return it, nil
}

// MostSoldItemForMerchant находит наибольшее количество в одной строке оплаченных счетов продавца
// и возвращает все различные товары, встречающиеся в строках с этим количеством.
func (a *Analyst) MostSoldItemForMerchant(merchantID int64) ([]model.Item, error) {
	if _, err := a.requireMerchant(merchantID); err != nil {
		return nil, err
	}

	lines := a.paidInvoiceItemsForMerchant(merchantID)
	if len(lines) == 0 {
		return nil, fmt.Errorf("most sold item for merchant %d: %w", merchantID, ErrEmptyInput)
	}

	maxQuantity := 0
	for _, ii := range lines {
		maxQuantity = max(maxQuantity, ii.Quantity)
	}

	seen := make(map[int64]struct{})

	var res []model.Item
	for _, ii := range lines {
		if ii.Quantity != maxQuantity {
			continue
		}
		if _, ok := seen[ii.ItemID]; ok {
			continue
		}
		seen[ii.ItemID] = struct{}{}

		it, err := a.resolveItem(ii.ItemID)
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, nil
}

// BestItemForMerchant возвращает товар с наибольшей выручкой по оплаченным счетам продавца.
// При равной выручке выбирается товар с меньшим идентификатором.
func (a *Analyst) BestItemForMerchant(merchantID int64) (model.Item, error) {
	if _, err := a.requireMerchant(merchantID); err != nil {
		return model.Item{}, err
	}

	lines := a.paidInvoiceItemsForMerchant(merchantID)
	if len(lines) == 0 {
		return model.Item{}, fmt.Errorf("best item for merchant %d: %w", merchantID, ErrEmptyInput)
	}

	revenue := make(map[int64]decimal.Decimal)
	for _, ii := range lines {
		current, ok := revenue[ii.ItemID]
		if !ok {
			current = decimal.Zero
		}
		revenue[ii.ItemID] = current.Add(ii.Revenue())
	}

	var (
		bestID      int64
		bestRevenue decimal.Decimal
		found       bool
	)
	for id, r := range revenue {
		if !found || r.GreaterThan(bestRevenue) || (r.Equal(bestRevenue) && id < bestID) {
			bestID, bestRevenue, found = id, r, true
		}
	}

	return a.resolveItem(bestID)
}
