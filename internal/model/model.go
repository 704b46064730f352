// Package model содержит доменные сущности сервиса аналитики продаж.
package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDataIntegrity возвращается, если внешний ключ не разрешается в снимке
// или запись нарушает инварианты модели.
var ErrDataIntegrity = errors.New("data integrity violation")

// Merchant представляет продавца.
type Merchant struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item описывает товар продавца.
type Item struct {
	ID          int64
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	MerchantID  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InvoiceStatus описывает статус счёта.
type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "pending"
	InvoiceStatusShipped  InvoiceStatus = "shipped"
	InvoiceStatusReturned InvoiceStatus = "returned"
)

// Valid сообщает, принадлежит ли статус известному набору.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusShipped, InvoiceStatusReturned:
		return true
	}
	return false
}

// Invoice описывает счёт покупателя у продавца.
type Invoice struct {
	ID         int64
	CustomerID int64
	MerchantID int64
	Status     InvoiceStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// InvoiceItem описывает строку счёта. UnitPrice фиксирует цену на момент продажи.
type InvoiceItem struct {
	ID        int64
	ItemID    int64
	InvoiceID int64
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Revenue возвращает стоимость строки: цена, умноженная на количество.
func (ii InvoiceItem) Revenue() decimal.Decimal {
	return ii.UnitPrice.Mul(decimal.NewFromInt(int64(ii.Quantity)))
}

// TransactionResult описывает результат платёжной транзакции.
type TransactionResult string

const (
	TransactionResultSuccess TransactionResult = "success"
	TransactionResultFailed  TransactionResult = "failed"
)

// Valid сообщает, принадлежит ли результат известному набору.
func (r TransactionResult) Valid() bool {
	return r == TransactionResultSuccess || r == TransactionResultFailed
}

// Transaction описывает попытку оплаты счёта.
type Transaction struct {
	ID                       int64
	InvoiceID                int64
	CreditCardNumber         string
	CreditCardExpirationDate string
	Result                   TransactionResult
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Customer представляет покупателя.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
