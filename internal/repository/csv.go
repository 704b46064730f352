package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/sales-analyst/internal/model"
)

// Имена файлов каталога снимка.
const (
	MerchantsFile    = "merchants.csv"
	ItemsFile        = "items.csv"
	InvoicesFile     = "invoices.csv"
	InvoiceItemsFile = "invoice_items.csv"
	TransactionsFile = "transactions.csv"
	CustomersFile    = "customers.csv"
)

// ErrMalformedRecord возвращается, если строку CSV не удаётся разобрать.
var ErrMalformedRecord = errors.New("malformed record")

var timeLayouts = []string{
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CSVSource загружает снимок из каталога с CSV-файлами.
type CSVSource struct {
	dir string
}

// NewCSVSource создаёт источник снимка для указанного каталога.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// LoadSnapshot читает каталог и строит снимок.
func (c *CSVSource) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := LoadCSV(c.dir)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(d), nil
}

// LoadCSV читает все коллекции из каталога. Файл покупателей необязателен.
// Цены в items.csv и invoice_items.csv записаны в центах.
func LoadCSV(dir string) (Data, error) {
	var d Data
	var err error

	if d.Merchants, err = readFile(dir, MerchantsFile, true, parseMerchant); err != nil {
		return Data{}, err
	}
	if d.Items, err = readFile(dir, ItemsFile, true, parseItem); err != nil {
		return Data{}, err
	}
	if d.Invoices, err = readFile(dir, InvoicesFile, true, parseInvoice); err != nil {
		return Data{}, err
	}
	if d.InvoiceItems, err = readFile(dir, InvoiceItemsFile, true, parseInvoiceItem); err != nil {
		return Data{}, err
	}
	if d.Transactions, err = readFile(dir, TransactionsFile, true, parseTransaction); err != nil {
		return Data{}, err
	}
	if d.Customers, err = readFile(dir, CustomersFile, false, parseCustomer); err != nil {
		return Data{}, err
	}

	return d, nil
}

func readFile[T any](dir, name string, required bool, parse func(*row) T) ([]T, error) {
	path := filepath.Join(dir, name)

	f, err := os.Open(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	res, err := readRecords(f, name, parse)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func readRecords[T any](r io.Reader, name string, parse func(*row) T) ([]T, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s headers: %w", name, err)
	}

	cols := make(map[string]int, len(headers))
	for i, h := range headers {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var res []T
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		rw := &row{file: name, line: line, cols: cols, rec: rec}
		v := parse(rw)
		if rw.err != nil {
			return nil, rw.err
		}
		res = append(res, v)
	}

	return res, nil
}

// row разбирает поля одной строки CSV и запоминает первую ошибку.
type row struct {
	file string
	line int
	cols map[string]int
	rec  []string
	err  error
}

func (r *row) fail(col string, cause error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s:%d column %q: %v", ErrMalformedRecord, r.file, r.line, col, cause)
	}
}

func (r *row) str(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.rec) {
		r.fail(col, errors.New("missing column"))
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r *row) optStr(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r *row) integer(col string) int64 {
	s := r.str(col)
	if r.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		r.fail(col, err)
		return 0
	}
	return v
}

func (r *row) cents(col string) decimal.Decimal {
	s := r.str(col)
	if r.err != nil {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		r.fail(col, err)
		return decimal.Zero
	}
	return v.Shift(-2)
}

func (r *row) timestamp(col string) time.Time {
	s := r.str(col)
	if r.err != nil {
		return time.Time{}
	}
	t, err := ParseTime(s)
	if err != nil {
		r.fail(col, err)
	}
	return t
}

func (r *row) optTimestamp(col string) time.Time {
	s := r.optStr(col)
	if s == "" {
		return time.Time{}
	}
	return r.timestamp(col)
}

// ParseTime разбирает отметку времени в одном из поддерживаемых форматов.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format %q", s)
}

func parseMerchant(r *row) model.Merchant {
	return model.Merchant{
		ID:        r.integer("id"),
		Name:      r.str("name"),
		CreatedAt: r.timestamp("created_at"),
		UpdatedAt: r.optTimestamp("updated_at"),
	}
}

func parseItem(r *row) model.Item {
	return model.Item{
		ID:          r.integer("id"),
		Name:        r.str("name"),
		Description: r.optStr("description"),
		UnitPrice:   r.cents("unit_price"),
		MerchantID:  r.integer("merchant_id"),
		CreatedAt:   r.timestamp("created_at"),
		UpdatedAt:   r.optTimestamp("updated_at"),
	}
}

func parseInvoice(r *row) model.Invoice {
	return model.Invoice{
		ID:         r.integer("id"),
		CustomerID: r.integer("customer_id"),
		MerchantID: r.integer("merchant_id"),
		Status:     model.InvoiceStatus(strings.ToLower(r.str("status"))),
		CreatedAt:  r.timestamp("created_at"),
		UpdatedAt:  r.optTimestamp("updated_at"),
	}
}

func parseInvoiceItem(r *row) model.InvoiceItem {
	return model.InvoiceItem{
		ID:        r.integer("id"),
		ItemID:    r.integer("item_id"),
		InvoiceID: r.integer("invoice_id"),
		Quantity:  int(r.integer("quantity")),
		UnitPrice: r.cents("unit_price"),
		CreatedAt: r.optTimestamp("created_at"),
		UpdatedAt: r.optTimestamp("updated_at"),
	}
}

func parseTransaction(r *row) model.Transaction {
	return model.Transaction{
		ID:                       r.integer("id"),
		InvoiceID:                r.integer("invoice_id"),
		CreditCardNumber:         r.optStr("credit_card_number"),
		CreditCardExpirationDate: r.optStr("credit_card_expiration_date"),
		Result:                   model.TransactionResult(strings.ToLower(r.str("result"))),
		CreatedAt:                r.timestamp("created_at"),
		UpdatedAt:                r.optTimestamp("updated_at"),
	}
}

func parseCustomer(r *row) model.Customer {
	return model.Customer{
		ID:        r.integer("id"),
		FirstName: r.str("first_name"),
		LastName:  r.str("last_name"),
		CreatedAt: r.timestamp("created_at"),
		UpdatedAt: r.optTimestamp("updated_at"),
	}
}
