package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/sales-analyst/internal/model"
)

var fixtureFiles = map[string]string{
	MerchantsFile: `id,name,created_at,updated_at
12334105,Shopin1901,2010-12-10,2011-12-04
12334112,Candisart,2009-05-30,2010-08-29
`,
	ItemsFile: `id,name,description,unit_price,merchant_id,created_at,updated_at
263395237,510+ RealPush Icon Set,"You&#39;ve got a total socialmedia iconset!",1200,12334141,2016-01-11 09:34:06 UTC,2007-06-04 21:35:10 UTC
263395617,Glitter scrabble frames,Any colour glitter,1350,12334105,2016-01-11 11:51:37 UTC,1993-09-29 11:56:40 UTC
`,
	InvoicesFile: `id,customer_id,merchant_id,status,created_at,updated_at
1,1,12334105,pending,2009-02-07,2014-03-15
2,1,12334112,Shipped,2012-11-23,2013-04-14
`,
	InvoiceItemsFile: `id,item_id,invoice_id,quantity,unit_price,created_at,updated_at
1,263395617,1,5,13635,2012-03-27 14:54:09 UTC,2012-03-27 14:54:09 UTC
2,263395237,2,9,23324,2012-03-27 14:54:09 UTC,2012-03-27 14:54:09 UTC
`,
	TransactionsFile: `id,invoice_id,credit_card_number,credit_card_expiration_date,result,created_at,updated_at
1,2,4068631943231473,0217,success,2012-02-26 20:56:56 UTC,2012-02-26 20:56:56 UTC
2,1,4177816490204479,0813,failed,2012-02-26 20:56:56 UTC,2012-02-26 20:56:56 UTC
`,
}

func writeFixture(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestLoadCSV(t *testing.T) {
	dir := writeFixture(t, fixtureFiles)

	d, err := LoadCSV(dir)
	require.NoError(t, err)

	require.Len(t, d.Merchants, 2)
	assert.Equal(t, "Shopin1901", d.Merchants[0].Name)
	assert.Equal(t, time.Date(2010, time.December, 10, 0, 0, 0, 0, time.UTC), d.Merchants[0].CreatedAt)

	require.Len(t, d.Items, 2)
	assert.Equal(t, "12.00", d.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "13.50", d.Items[1].UnitPrice.StringFixed(2))
	assert.Equal(t, int64(12334105), d.Items[1].MerchantID)
	assert.Equal(t, "You&#39;ve got a total socialmedia iconset!", d.Items[0].Description)

	require.Len(t, d.Invoices, 2)
	assert.Equal(t, model.InvoiceStatusPending, d.Invoices[0].Status)
	assert.Equal(t, model.InvoiceStatusShipped, d.Invoices[1].Status)

	require.Len(t, d.InvoiceItems, 2)
	assert.Equal(t, 5, d.InvoiceItems[0].Quantity)
	assert.Equal(t, "136.35", d.InvoiceItems[0].UnitPrice.StringFixed(2))

	require.Len(t, d.Transactions, 2)
	assert.Equal(t, model.TransactionResultSuccess, d.Transactions[0].Result)
	assert.Equal(t, "0217", d.Transactions[0].CreditCardExpirationDate)

	assert.Empty(t, d.Customers)
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name     string
		override map[string]string
		drop     string
	}{
		{
			name: "missing required file",
			drop: InvoicesFile,
		},
		{
			name: "bad integer",
			override: map[string]string{
				MerchantsFile: "id,name,created_at\nabc,Shop,2010-12-10\n",
			},
		},
		{
			name: "bad price",
			override: map[string]string{
				ItemsFile: "id,name,unit_price,merchant_id,created_at\n1,Item,ten,1,2016-01-11\n",
			},
		},
		{
			name: "bad timestamp",
			override: map[string]string{
				MerchantsFile: "id,name,created_at\n1,Shop,yesterday\n",
			},
		},
		{
			name: "missing column",
			override: map[string]string{
				TransactionsFile: "id,invoice_id,created_at\n1,1,2012-02-26\n",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := make(map[string]string, len(fixtureFiles))
			for k, v := range fixtureFiles {
				files[k] = v
			}
			for k, v := range tt.override {
				files[k] = v
			}
			delete(files, tt.drop)

			_, err := LoadCSV(writeFixture(t, files))
			require.Error(t, err)
			if tt.drop == "" {
				assert.ErrorIs(t, err, ErrMalformedRecord)
			}
		})
	}
}

func TestLoadCSV_WithCustomers(t *testing.T) {
	files := map[string]string{
		CustomersFile: "id,first_name,last_name,created_at,updated_at\n1,Joey,Ondricka,2012-03-27 14:54:09 UTC,2012-03-27 14:54:09 UTC\n",
	}
	for k, v := range fixtureFiles {
		files[k] = v
	}

	d, err := LoadCSV(writeFixture(t, files))
	require.NoError(t, err)
	require.Len(t, d.Customers, 1)
	assert.Equal(t, "Joey", d.Customers[0].FirstName)
}

func TestCSVSource_LoadSnapshot(t *testing.T) {
	src := NewCSVSource(writeFixture(t, fixtureFiles))

	s, err := src.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, s.Invoices().FindAllByMerchantID(12334105), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "2012-03-27 14:54:09 UTC", want: time.Date(2012, time.March, 27, 14, 54, 9, 0, time.UTC)},
		{in: "2012-03-27 14:54:09", want: time.Date(2012, time.March, 27, 14, 54, 9, 0, time.UTC)},
		{in: "2012-03-27", want: time.Date(2012, time.March, 27, 0, 0, 0, 0, time.UTC)},
		{in: "2012-03-27T14:54:09Z", want: time.Date(2012, time.March, 27, 14, 54, 9, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}

	_, err := ParseTime("27/03/2012")
	assert.Error(t, err)
}
