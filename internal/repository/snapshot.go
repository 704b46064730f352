// Package repository содержит неизменяемый снимок данных о продажах и источники, из которых он загружается.
package repository

import (
	"slices"
	"time"

	"github.com/mmeshcher/sales-analyst/internal/model"
)

// Data содержит исходные коллекции записей снимка.
type Data struct {
	Merchants    []model.Merchant
	Items        []model.Item
	Invoices     []model.Invoice
	InvoiceItems []model.InvoiceItem
	Transactions []model.Transaction
	Customers    []model.Customer
}

// Snapshot хранит неизменяемый набор записей и индексы по внешним ключам.
// После создания снимок только читается, поэтому безопасен для параллельного использования.
type Snapshot struct {
	data Data

	merchantByID map[int64]int
	itemByID     map[int64]int
	invoiceByID  map[int64]int
	customerByID map[int64]int

	itemsByMerchant       map[int64][]int
	invoicesByMerchant    map[int64][]int
	invoicesByCustomer    map[int64][]int
	invoicesByStatus      map[model.InvoiceStatus][]int
	invoiceItemsByInvoice map[int64][]int
	invoiceItemsByItem    map[int64][]int
	transactionsByInvoice map[int64][]int
}

// NewSnapshot копирует коллекции и строит индексы.
func NewSnapshot(d Data) *Snapshot {
	s := &Snapshot{
		data: Data{
			Merchants:    slices.Clone(d.Merchants),
			Items:        slices.Clone(d.Items),
			Invoices:     slices.Clone(d.Invoices),
			InvoiceItems: slices.Clone(d.InvoiceItems),
			Transactions: slices.Clone(d.Transactions),
			Customers:    slices.Clone(d.Customers),
		},
		merchantByID:          make(map[int64]int, len(d.Merchants)),
		itemByID:              make(map[int64]int, len(d.Items)),
		invoiceByID:           make(map[int64]int, len(d.Invoices)),
		customerByID:          make(map[int64]int, len(d.Customers)),
		itemsByMerchant:       make(map[int64][]int),
		invoicesByMerchant:    make(map[int64][]int),
		invoicesByCustomer:    make(map[int64][]int),
		invoicesByStatus:      make(map[model.InvoiceStatus][]int),
		invoiceItemsByInvoice: make(map[int64][]int),
		invoiceItemsByItem:    make(map[int64][]int),
		transactionsByInvoice: make(map[int64][]int),
	}

	for i, m := range s.data.Merchants {
		s.merchantByID[m.ID] = i
	}
	for i, it := range s.data.Items {
		s.itemByID[it.ID] = i
		s.itemsByMerchant[it.MerchantID] = append(s.itemsByMerchant[it.MerchantID], i)
	}
	for i, inv := range s.data.Invoices {
		s.invoiceByID[inv.ID] = i
		s.invoicesByMerchant[inv.MerchantID] = append(s.invoicesByMerchant[inv.MerchantID], i)
		s.invoicesByCustomer[inv.CustomerID] = append(s.invoicesByCustomer[inv.CustomerID], i)
		s.invoicesByStatus[inv.Status] = append(s.invoicesByStatus[inv.Status], i)
	}
	for i, ii := range s.data.InvoiceItems {
		s.invoiceItemsByInvoice[ii.InvoiceID] = append(s.invoiceItemsByInvoice[ii.InvoiceID], i)
		s.invoiceItemsByItem[ii.ItemID] = append(s.invoiceItemsByItem[ii.ItemID], i)
	}
	for i, tr := range s.data.Transactions {
		s.transactionsByInvoice[tr.InvoiceID] = append(s.transactionsByInvoice[tr.InvoiceID], i)
	}
	for i, c := range s.data.Customers {
		s.customerByID[c.ID] = i
	}

	return s
}

// Data возвращает копию коллекций снимка.
func (s *Snapshot) Data() Data {
	return Data{
		Merchants:    slices.Clone(s.data.Merchants),
		Items:        slices.Clone(s.data.Items),
		Invoices:     slices.Clone(s.data.Invoices),
		InvoiceItems: slices.Clone(s.data.InvoiceItems),
		Transactions: slices.Clone(s.data.Transactions),
		Customers:    slices.Clone(s.data.Customers),
	}
}

// Counts содержит количество записей каждого вида.
type Counts struct {
	Merchants    int
	Items        int
	Invoices     int
	InvoiceItems int
	Transactions int
	Customers    int
}

// Counts возвращает количество записей в снимке.
func (s *Snapshot) Counts() Counts {
	return Counts{
		Merchants:    len(s.data.Merchants),
		Items:        len(s.data.Items),
		Invoices:     len(s.data.Invoices),
		InvoiceItems: len(s.data.InvoiceItems),
		Transactions: len(s.data.Transactions),
		Customers:    len(s.data.Customers),
	}
}

// Merchants возвращает репозиторий продавцов.
func (s *Snapshot) Merchants() *MerchantRepository { return &MerchantRepository{s: s} }

// Items возвращает репозиторий товаров.
func (s *Snapshot) Items() *ItemRepository { return &ItemRepository{s: s} }

// Invoices возвращает репозиторий счетов.
func (s *Snapshot) Invoices() *InvoiceRepository { return &InvoiceRepository{s: s} }

// InvoiceItems возвращает репозиторий строк счетов.
func (s *Snapshot) InvoiceItems() *InvoiceItemRepository { return &InvoiceItemRepository{s: s} }

// Transactions возвращает репозиторий транзакций.
func (s *Snapshot) Transactions() *TransactionRepository { return &TransactionRepository{s: s} }

// Customers возвращает репозиторий покупателей.
func (s *Snapshot) Customers() *CustomerRepository { return &CustomerRepository{s: s} }

func pick[T any](src []T, idx []int) []T {
	res := make([]T, 0, len(idx))
	for _, i := range idx {
		res = append(res, src[i])
	}
	return res
}

// MerchantRepository предоставляет доступ к продавцам снимка.
type MerchantRepository struct {
	s *Snapshot
}

// All возвращает всех продавцов в порядке загрузки.
func (r *MerchantRepository) All() []model.Merchant {
	return slices.Clone(r.s.data.Merchants)
}

// FindByID ищет продавца по идентификатору.
func (r *MerchantRepository) FindByID(id int64) (model.Merchant, bool) {
	i, ok := r.s.merchantByID[id]
	if !ok {
		return model.Merchant{}, false
	}
	return r.s.data.Merchants[i], true
}

// ItemRepository предоставляет доступ к товарам снимка.
type ItemRepository struct {
	s *Snapshot
}

// All возвращает все товары.
func (r *ItemRepository) All() []model.Item {
	return slices.Clone(r.s.data.Items)
}

// FindByID ищет товар по идентификатору.
func (r *ItemRepository) FindByID(id int64) (model.Item, bool) {
	i, ok := r.s.itemByID[id]
	if !ok {
		return model.Item{}, false
	}
	return r.s.data.Items[i], true
}

// FindAllByMerchantID возвращает товары продавца.
func (r *ItemRepository) FindAllByMerchantID(id int64) []model.Item {
	return pick(r.s.data.Items, r.s.itemsByMerchant[id])
}

// InvoiceRepository предоставляет доступ к счетам снимка.
type InvoiceRepository struct {
	s *Snapshot
}

// All возвращает все счета.
func (r *InvoiceRepository) All() []model.Invoice {
	return slices.Clone(r.s.data.Invoices)
}

// FindByID ищет счёт по идентификатору.
func (r *InvoiceRepository) FindByID(id int64) (model.Invoice, bool) {
	i, ok := r.s.invoiceByID[id]
	if !ok {
		return model.Invoice{}, false
	}
	return r.s.data.Invoices[i], true
}

// FindAllByMerchantID возвращает счета продавца.
func (r *InvoiceRepository) FindAllByMerchantID(id int64) []model.Invoice {
	return pick(r.s.data.Invoices, r.s.invoicesByMerchant[id])
}

// FindAllByCustomerID возвращает счета покупателя.
func (r *InvoiceRepository) FindAllByCustomerID(id int64) []model.Invoice {
	return pick(r.s.data.Invoices, r.s.invoicesByCustomer[id])
}

// FindAllByStatus возвращает счета с указанным статусом.
func (r *InvoiceRepository) FindAllByStatus(status model.InvoiceStatus) []model.Invoice {
	return pick(r.s.data.Invoices, r.s.invoicesByStatus[status])
}

// FindAllByDate возвращает счета, созданные в календарный день date.
// День date берётся в его собственном поясе, время создания счёта сравнивается в UTC.
func (r *InvoiceRepository) FindAllByDate(date time.Time) []model.Invoice {
	y, m, d := date.Date()

	var res []model.Invoice
	for _, inv := range r.s.data.Invoices {
		iy, im, id := inv.CreatedAt.UTC().Date()
		if iy == y && im == m && id == d {
			res = append(res, inv)
		}
	}
	return res
}

// InvoiceItemRepository предоставляет доступ к строкам счетов снимка.
type InvoiceItemRepository struct {
	s *Snapshot
}

// All возвращает все строки счетов.
func (r *InvoiceItemRepository) All() []model.InvoiceItem {
	return slices.Clone(r.s.data.InvoiceItems)
}

// FindAllByInvoiceID возвращает строки указанного счёта.
func (r *InvoiceItemRepository) FindAllByInvoiceID(id int64) []model.InvoiceItem {
	return pick(r.s.data.InvoiceItems, r.s.invoiceItemsByInvoice[id])
}

// FindAllByItemID возвращает строки, ссылающиеся на товар.
func (r *InvoiceItemRepository) FindAllByItemID(id int64) []model.InvoiceItem {
	return pick(r.s.data.InvoiceItems, r.s.invoiceItemsByItem[id])
}

// TransactionRepository предоставляет доступ к транзакциям снимка.
type TransactionRepository struct {
	s *Snapshot
}

// All возвращает все транзакции.
func (r *TransactionRepository) All() []model.Transaction {
	return slices.Clone(r.s.data.Transactions)
}

// FindAllByInvoiceID возвращает транзакции по счёту.
func (r *TransactionRepository) FindAllByInvoiceID(id int64) []model.Transaction {
	return pick(r.s.data.Transactions, r.s.transactionsByInvoice[id])
}

// CustomerRepository предоставляет доступ к покупателям снимка.
type CustomerRepository struct {
	s *Snapshot
}

// All возвращает всех покупателей.
func (r *CustomerRepository) All() []model.Customer {
	return slices.Clone(r.s.data.Customers)
}

// FindByID ищет покупателя по идентификатору.
func (r *CustomerRepository) FindByID(id int64) (model.Customer, bool) {
	i, ok := r.s.customerByID[id]
	if !ok {
		return model.Customer{}, false
	}
	return r.s.data.Customers[i], true
}
