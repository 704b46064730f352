package analyst

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/sales-analyst/internal/model"
	"github.com/mmeshcher/sales-analyst/internal/stats"
)

var hundred = decimal.NewFromInt(100)

// InvoicesPerMerchant возвращает число счетов каждого продавца.
func (a *Analyst) InvoicesPerMerchant() []MerchantCount {
	merchants := a.merchants.All()

	res := make([]MerchantCount, 0, len(merchants))
	for _, m := range merchants {
		res = append(res, MerchantCount{
			Merchant: m,
			Count:    len(a.invoices.FindAllByMerchantID(m.ID)),
		})
	}
	return res
}

// InvoicesForEachMerchant возвращает счета каждого продавца.
func (a *Analyst) InvoicesForEachMerchant() []MerchantInvoices {
	merchants := a.merchants.All()

	res := make([]MerchantInvoices, 0, len(merchants))
	for _, m := range merchants {
		res = append(res, MerchantInvoices{
			Merchant: m,
			Invoices: a.invoices.FindAllByMerchantID(m.ID),
		})
	}
	return res
}

// AverageInvoicesPerMerchant возвращает среднее число счетов на продавца, округлённое до двух знаков.
func (a *Analyst) AverageInvoicesPerMerchant() (decimal.Decimal, error) {
	avg, err := roundedMean(countValues(a.InvoicesPerMerchant()))
	if err != nil {
		return decimal.Zero, fmt.Errorf("average invoices per merchant: %w", err)
	}
	return avg, nil
}

// AverageInvoicesPerMerchantStdDev возвращает стандартное отклонение числа счетов на продавца.
func (a *Analyst) AverageInvoicesPerMerchantStdDev() (decimal.Decimal, error) {
	sd, err := roundedStdDev(countValues(a.InvoicesPerMerchant()))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invoices per merchant standard deviation: %w", err)
	}
	return sd, nil
}

func (a *Analyst) invoiceCountStats() (decimal.Decimal, decimal.Decimal, error) {
	avg, err := a.AverageInvoicesPerMerchant()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	sd, err := a.AverageInvoicesPerMerchantStdDev()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return avg, sd, nil
}

// TopMerchantsByInvoiceCount возвращает продавцов, у которых счетов не меньше,
// чем среднее плюс два стандартных отклонения.
func (a *Analyst) TopMerchantsByInvoiceCount() ([]model.Merchant, error) {
	avg, sd, err := a.invoiceCountStats()
	if err != nil {
		return nil, err
	}
	threshold := avg.Add(sd.Mul(two))

	var res []model.Merchant
	for _, mc := range a.InvoicesPerMerchant() {
		if decimal.NewFromInt(int64(mc.Count)).GreaterThanOrEqual(threshold) {
			res = append(res, mc.Merchant)
		}
	}
	return res, nil
}

// BottomMerchantsByInvoiceCount возвращает продавцов, у которых счетов не больше,
// чем среднее минус два стандартных отклонения. Порог не опускается ниже нуля.
func (a *Analyst) BottomMerchantsByInvoiceCount() ([]model.Merchant, error) {
	avg, sd, err := a.invoiceCountStats()
	if err != nil {
		return nil, err
	}
	threshold := decimal.Max(decimal.Zero, avg.Sub(sd.Mul(two)))

	var res []model.Merchant
	for _, mc := range a.InvoicesPerMerchant() {
		if decimal.NewFromInt(int64(mc.Count)).LessThanOrEqual(threshold) {
			res = append(res, mc.Merchant)
		}
	}
	return res, nil
}

// TopDaysByInvoiceCount группирует счета по дню недели создания и возвращает дни,
// в которые счетов больше, чем среднее плюс одно стандартное отклонение.
// В расчёт входят только дни недели, в которые был хотя бы один счёт. День недели определяется в UTC.
func (a *Analyst) TopDaysByInvoiceCount() ([]string, error) {
	var buckets [7]int
	for _, inv := range a.invoices.All() {
		buckets[inv.CreatedAt.UTC().Weekday()]++
	}

	var (
		days   []time.Weekday
		counts []int
	)
	for d, n := range buckets {
		if n > 0 {
			days = append(days, time.Weekday(d))
			counts = append(counts, n)
		}
	}

	values := stats.FromInts(counts)
	mean, err := stats.Mean(values)
	if err != nil {
		return nil, fmt.Errorf("top days by invoice count: %w", err)
	}
	sd, err := stats.StandardDeviation(values)
	if err != nil {
		return nil, fmt.Errorf("top days by invoice count: %w", err)
	}
	threshold := stats.Round2(mean.Add(sd))

	var res []string
	for i, d := range days {
		if decimal.NewFromInt(int64(counts[i])).GreaterThan(threshold) {
			res = append(res, d.String())
		}
	}
	return res, nil
}

// InvoiceStatusPercentage возвращает долю счетов с указанным статусом в процентах,
// округлённую до двух знаков.
func (a *Analyst) InvoiceStatusPercentage(status model.InvoiceStatus) (decimal.Decimal, error) {
	total := len(a.invoices.All())
	if total == 0 {
		return decimal.Zero, fmt.Errorf("invoice status percentage: %w", ErrEmptyInput)
	}

	matched := len(a.invoices.FindAllByStatus(status))
	pct := decimal.NewFromInt(int64(matched)).Mul(hundred).Div(decimal.NewFromInt(int64(total)))
	return stats.Round2(pct), nil
}

// IsInvoicePaidInFull сообщает, есть ли у счёта хотя бы одна успешная транзакция.
func (a *Analyst) IsInvoicePaidInFull(invoiceID int64) bool {
	for _, tr := range a.transactions.FindAllByInvoiceID(invoiceID) {
		if tr.Result == model.TransactionResultSuccess {
			return true
		}
	}
	return false
}

// InvoiceTotal возвращает сумму строк оплаченного счёта. Для неоплаченного счёта результат равен нулю.
func (a *Analyst) InvoiceTotal(invoiceID int64) decimal.Decimal {
	if !a.IsInvoicePaidInFull(invoiceID) {
		return decimal.Zero
	}
	return linesRevenue(a.invoiceItems.FindAllByInvoiceID(invoiceID))
}

// TotalRevenueByDate суммирует строки всех счетов, созданных в указанный день.
// Статус оплаты не учитывается, в отличие от InvoiceTotal.
func (a *Analyst) TotalRevenueByDate(date time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range a.invoices.FindAllByDate(date) {
		total = total.Add(linesRevenue(a.invoiceItems.FindAllByInvoiceID(inv.ID)))
	}
	return total
}

func linesRevenue(lines []model.InvoiceItem) decimal.Decimal {
	values := make([]decimal.Decimal, 0, len(lines))
	for _, ii := range lines {
		values = append(values, ii.Revenue())
	}
	return stats.Sum(values)
}
