// Package analyst вычисляет производные бизнес-метрики по снимку данных о продажах:
// распределения, пороги выбросов, выручку и сегментацию продавцов.
//
// Все операции читают репозитории заново при каждом вызове и ничего не кешируют.
// Анализатор не изменяет данные и не пишет в лог: ошибки возвращаются вызывающему.
package analyst

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/sales-analyst/internal/model"
	"github.com/mmeshcher/sales-analyst/internal/stats"
)

var (
	// ErrEmptyInput возвращается, если агрегат запрошен по пустому набору записей.
	ErrEmptyInput = stats.ErrEmptyInput
	// ErrNotFound возвращается, если запись с указанным идентификатором отсутствует.
	ErrNotFound = errors.New("record not found")
	// ErrDataIntegrity возвращается, если внешний ключ не разрешается в снимке.
	ErrDataIntegrity = model.ErrDataIntegrity
)

// DefaultTopEarners — размер рейтинга продавцов по выручке по умолчанию.
const DefaultTopEarners = 20

var two = decimal.NewFromInt(2)

// MerchantRepository описывает доступ к продавцам, используемый анализатором.
type MerchantRepository interface {
	All() []model.Merchant
	FindByID(id int64) (model.Merchant, bool)
}

// ItemRepository описывает доступ к товарам.
type ItemRepository interface {
	All() []model.Item
	FindByID(id int64) (model.Item, bool)
	FindAllByMerchantID(id int64) []model.Item
}

// InvoiceRepository описывает доступ к счетам.
type InvoiceRepository interface {
	All() []model.Invoice
	FindAllByMerchantID(id int64) []model.Invoice
	FindAllByStatus(status model.InvoiceStatus) []model.Invoice
	FindAllByDate(date time.Time) []model.Invoice
}

// InvoiceItemRepository описывает доступ к строкам счетов.
type InvoiceItemRepository interface {
	FindAllByInvoiceID(id int64) []model.InvoiceItem
	FindAllByItemID(id int64) []model.InvoiceItem
}

// TransactionRepository описывает доступ к транзакциям.
type TransactionRepository interface {
	FindAllByInvoiceID(id int64) []model.Transaction
}

// Repositories объединяет репозитории, из которых читает анализатор.
type Repositories struct {
	Merchants    MerchantRepository
	Items        ItemRepository
	Invoices     InvoiceRepository
	InvoiceItems InvoiceItemRepository
	Transactions TransactionRepository
}

// Analyst вычисляет метрики по репозиториям одного снимка.
type Analyst struct {
	merchants    MerchantRepository
	items        ItemRepository
	invoices     InvoiceRepository
	invoiceItems InvoiceItemRepository
	transactions TransactionRepository
}

// New создаёт анализатор поверх указанных репозиториев.
//
// Репозитории должны быть ссылочно согласованы (см. validation.CheckSnapshot,
// которую выполняет service.Reload). Агрегаты по продавцам обходят только
// известных продавцов, поэтому товары и счета с неразрешённым merchant_id
// в них не попадают.
func New(r Repositories) *Analyst {
	return &Analyst{
		merchants:    r.Merchants,
		items:        r.Items,
		invoices:     r.Invoices,
		invoiceItems: r.InvoiceItems,
		transactions: r.Transactions,
	}
}

// MerchantCount связывает продавца со счётчиком.
type MerchantCount struct {
	Merchant model.Merchant
	Count    int
}

// MerchantRevenue связывает продавца с выручкой.
type MerchantRevenue struct {
	Merchant model.Merchant
	Revenue  decimal.Decimal
}

// MerchantInvoices связывает продавца с его счетами.
type MerchantInvoices struct {
	Merchant model.Merchant
	Invoices []model.Invoice
}

// CountOfMerchants возвращает количество продавцов в снимке.
func (a *Analyst) CountOfMerchants() int {
	return len(a.merchants.All())
}

func (a *Analyst) requireMerchant(id int64) (model.Merchant, error) {
	m, ok := a.merchants.FindByID(id)
	if !ok {
		return model.Merchant{}, fmt.Errorf("merchant %d: %w", id, ErrNotFound)
	}
	return m, nil
}

func countValues(counts []MerchantCount) []decimal.Decimal {
	values := make([]int, 0, len(counts))
	for _, c := range counts {
		values = append(values, c.Count)
	}
	return stats.FromInts(values)
}

func roundedMean(values []decimal.Decimal) (decimal.Decimal, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return decimal.Zero, err
	}
	return stats.Round2(mean), nil
}

func roundedStdDev(values []decimal.Decimal) (decimal.Decimal, error) {
	sd, err := stats.StandardDeviation(values)
	if err != nil {
		return decimal.Zero, err
	}
	return stats.Round2(sd), nil
}
