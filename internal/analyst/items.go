package analyst

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/sales-analyst/internal/model"
	"github.com/mmeshcher/sales-analyst/internal/stats"
)

// ItemsPerMerchant возвращает число товаров каждого продавца, включая продавцов без товаров.
func (a *Analyst) ItemsPerMerchant() []MerchantCount {
	merchants := a.merchants.All()

	res := make([]MerchantCount, 0, len(merchants))
	for _, m := range merchants {
		res = append(res, MerchantCount{
			Merchant: m,
			Count:    len(a.items.FindAllByMerchantID(m.ID)),
		})
	}
	return res
}

// AverageItemsPerMerchant возвращает среднее число товаров на продавца, округлённое до двух знаков.
func (a *Analyst) AverageItemsPerMerchant() (decimal.Decimal, error) {
	avg, err := roundedMean(countValues(a.ItemsPerMerchant()))
	if err != nil {
		return decimal.Zero, fmt.Errorf("average items per merchant: %w", err)
	}
	return avg, nil
}

// AverageItemsPerMerchantStdDev возвращает стандартное отклонение числа товаров на продавца.
func (a *Analyst) AverageItemsPerMerchantStdDev() (decimal.Decimal, error) {
	sd, err := roundedStdDev(countValues(a.ItemsPerMerchant()))
	if err != nil {
		return decimal.Zero, fmt.Errorf("items per merchant standard deviation: %w", err)
	}
	return sd, nil
}

// AverageItemPriceForMerchant возвращает среднюю цену товаров продавца, округлённую до двух знаков.
func (a *Analyst) AverageItemPriceForMerchant(merchantID int64) (decimal.Decimal, error) {
	if _, err := a.requireMerchant(merchantID); err != nil {
		return decimal.Zero, err
	}

	items := a.items.FindAllByMerchantID(merchantID)
	avg, err := roundedMean(itemPrices(items))
	if err != nil {
		return decimal.Zero, fmt.Errorf("average item price for merchant %d: %w", merchantID, err)
	}
	return avg, nil
}

// MerchantsWithHighItemCount возвращает продавцов, у которых товаров больше,
// чем среднее плюс одно стандартное отклонение.
func (a *Analyst) MerchantsWithHighItemCount() ([]model.Merchant, error) {
	avg, err := a.AverageItemsPerMerchant()
	if err != nil {
		return nil, err
	}
	sd, err := a.AverageItemsPerMerchantStdDev()
	if err != nil {
		return nil, err
	}
	threshold := avg.Add(sd)

	var res []model.Merchant
	for _, mc := range a.ItemsPerMerchant() {
		if decimal.NewFromInt(int64(mc.Count)).GreaterThan(threshold) {
			res = append(res, mc.Merchant)
		}
	}
	return res, nil
}

// AverageAveragePricePerMerchant возвращает среднее по продавцам от средних цен их товаров.
// Продавец без товаров делает результат неопределённым, поэтому возвращается ErrEmptyInput.
func (a *Analyst) AverageAveragePricePerMerchant() (decimal.Decimal, error) {
	merchants := a.merchants.All()

	averages := make([]decimal.Decimal, 0, len(merchants))
	for _, m := range merchants {
		avg, err := a.AverageItemPriceForMerchant(m.ID)
		if err != nil {
			return decimal.Zero, err
		}
		averages = append(averages, avg)
	}

	res, err := roundedMean(averages)
	if err != nil {
		return decimal.Zero, fmt.Errorf("average of average prices: %w", err)
	}
	return res, nil
}

// AllItemPrices возвращает цены всех товаров каталога без удаления повторов.
func (a *Analyst) AllItemPrices() []decimal.Decimal {
	return itemPrices(a.items.All())
}

// GoldenItems возвращает товары дороже среднего более чем на два стандартных отклонения.
func (a *Analyst) GoldenItems() ([]model.Item, error) {
	items := a.items.All()
	prices := itemPrices(items)

	mean, err := stats.Mean(prices)
	if err != nil {
		return nil, fmt.Errorf("golden items: %w", err)
	}
	sd, err := stats.StandardDeviation(prices)
	if err != nil {
		return nil, fmt.Errorf("golden items: %w", err)
	}
	threshold := mean.Add(sd.Mul(two))

	var res []model.Item
	for _, it := range items {
		if it.UnitPrice.GreaterThan(threshold) {
			res = append(res, it)
		}
	}
	return res, nil
}

// MerchantsWithOnlyOneItem возвращает продавцов ровно с одним товаром.
func (a *Analyst) MerchantsWithOnlyOneItem() []model.Merchant {
	var res []model.Merchant
	for _, mc := range a.ItemsPerMerchant() {
		if mc.Count == 1 {
			res = append(res, mc.Merchant)
		}
	}
	return res
}

// MerchantsWithOnlyOneItemRegisteredInMonth возвращает продавцов с одним товаром,
// зарегистрированных в месяце с указанным английским названием (регистр не важен).
// Месяц регистрации определяется в UTC.
func (a *Analyst) MerchantsWithOnlyOneItemRegisteredInMonth(month string) []model.Merchant {
	var res []model.Merchant
	for _, m := range a.MerchantsWithOnlyOneItem() {
		if strings.EqualFold(m.CreatedAt.UTC().Month().String(), month) {
			res = append(res, m)
		}
	}
	return res
}

func itemPrices(items []model.Item) []decimal.Decimal {
	prices := make([]decimal.Decimal, 0, len(items))
	for _, it := range items {
		prices = append(prices, it.UnitPrice)
	}
	return prices
}
