// Package validation проверяет целостность снимка данных о продажах.
package validation

import (
	"errors"
	"fmt"

	"github.com/mmeshcher/sales-analyst/internal/model"
	"github.com/mmeshcher/sales-analyst/internal/repository"
)

// ErrDataIntegrity возвращается при нарушении целостности снимка.
var ErrDataIntegrity = model.ErrDataIntegrity

const maxReported = 10

type report struct {
	problems []string
	total    int
}

func (r *report) addf(format string, args ...any) {
	r.total++
	if len(r.problems) < maxReported {
		r.problems = append(r.problems, fmt.Sprintf(format, args...))
	}
}

func (r *report) err() error {
	if r.total == 0 {
		return nil
	}

	errs := make([]error, 0, len(r.problems)+1)
	for _, p := range r.problems {
		errs = append(errs, fmt.Errorf("%w: %s", ErrDataIntegrity, p))
	}
	if r.total > len(r.problems) {
		errs = append(errs, fmt.Errorf("%w: %d more violations", ErrDataIntegrity, r.total-len(r.problems)))
	}
	return errors.Join(errs...)
}

func ids[T any](r *report, kind string, records []T, id func(T) int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		v := id(rec)
		if _, dup := set[v]; dup {
			r.addf("duplicate %s id %d", kind, v)
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// CheckSnapshot проверяет внешние ключи, количество и цены строк, а также значения перечислений.
// Ссылки счетов на покупателей проверяются только если покупатели загружены.
func CheckSnapshot(d repository.Data) error {
	r := &report{}

	merchants := ids(r, "merchant", d.Merchants, func(m model.Merchant) int64 { return m.ID })
	items := ids(r, "item", d.Items, func(it model.Item) int64 { return it.ID })
	invoices := ids(r, "invoice", d.Invoices, func(inv model.Invoice) int64 { return inv.ID })
	customers := ids(r, "customer", d.Customers, func(c model.Customer) int64 { return c.ID })
	ids(r, "invoice item", d.InvoiceItems, func(ii model.InvoiceItem) int64 { return ii.ID })
	ids(r, "transaction", d.Transactions, func(tr model.Transaction) int64 { return tr.ID })

	for _, it := range d.Items {
		if _, ok := merchants[it.MerchantID]; !ok {
			r.addf("item %d references unknown merchant %d", it.ID, it.MerchantID)
		}
		if it.UnitPrice.IsNegative() {
			r.addf("item %d has negative unit price %s", it.ID, it.UnitPrice)
		}
	}

	for _, inv := range d.Invoices {
		if _, ok := merchants[inv.MerchantID]; !ok {
			r.addf("invoice %d references unknown merchant %d", inv.ID, inv.MerchantID)
		}
		if len(d.Customers) > 0 {
			if _, ok := customers[inv.CustomerID]; !ok {
				r.addf("invoice %d references unknown customer %d", inv.ID, inv.CustomerID)
			}
		}
		if !inv.Status.Valid() {
			r.addf("invoice %d has unknown status %q", inv.ID, inv.Status)
		}
	}

	for _, ii := range d.InvoiceItems {
		if _, ok := invoices[ii.InvoiceID]; !ok {
			r.addf("invoice item %d references unknown invoice %d", ii.ID, ii.InvoiceID)
		}
		if _, ok := items[ii.ItemID]; !ok {
			r.addf("invoice item %d references unknown item %d", ii.ID, ii.ItemID)
		}
		if ii.Quantity <= 0 {
			r.addf("invoice item %d has non-positive quantity %d", ii.ID, ii.Quantity)
		}
		if ii.UnitPrice.IsNegative() {
			r.addf("invoice item %d has negative unit price %s", ii.ID, ii.UnitPrice)
		}
	}

	for _, tr := range d.Transactions {
		if _, ok := invoices[tr.InvoiceID]; !ok {
			r.addf("transaction %d references unknown invoice %d", tr.ID, tr.InvoiceID)
		}
		if !tr.Result.Valid() {
			r.addf("transaction %d has unknown result %q", tr.ID, tr.Result)
		}
	}

	return r.err()
}
