package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/sales-analyst/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrConstraintViolation возвращается, если импортируемые записи нарушают ограничения схемы.
var ErrConstraintViolation = errors.New("constraint violation")

var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// PostgresRepository загружает снимок из PostgreSQL и импортирует его туда.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(retryDelays) {
			break
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func isConstraintError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.ForeignKeyViolation, pgerrcode.UniqueViolation, pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return true
	}
	return false
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// LoadSnapshot читает все таблицы в одной read-only транзакции REPEATABLE READ,
// поэтому снимок согласован даже при параллельной записи.
func (r *PostgresRepository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var d Data

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
			IsoLevel:   pgx.RepeatableRead,
			AccessMode: pgx.ReadOnly,
		})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		loaded, err := loadData(ctx, tx)
		if err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		d = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	return NewSnapshot(d), nil
}

func loadData(ctx context.Context, tx pgx.Tx) (Data, error) {
	var (
		d   Data
		err error
	)

	d.Merchants, err = queryAll(ctx, tx, "merchants",
		`SELECT id, name, created_at, updated_at FROM merchants ORDER BY id`,
		func(row pgx.CollectableRow) (model.Merchant, error) {
			var (
				m         model.Merchant
				updatedAt *time.Time
			)
			err := row.Scan(&m.ID, &m.Name, &m.CreatedAt, &updatedAt)
			m.CreatedAt = m.CreatedAt.UTC()
			m.UpdatedAt = derefTime(updatedAt)
			return m, err
		})
	if err != nil {
		return Data{}, err
	}

	d.Customers, err = queryAll(ctx, tx, "customers",
		`SELECT id, first_name, last_name, created_at, updated_at FROM customers ORDER BY id`,
		func(row pgx.CollectableRow) (model.Customer, error) {
			var (
				c         model.Customer
				updatedAt *time.Time
			)
			err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.CreatedAt, &updatedAt)
			c.CreatedAt = c.CreatedAt.UTC()
			c.UpdatedAt = derefTime(updatedAt)
			return c, err
		})
	if err != nil {
		return Data{}, err
	}

	d.Items, err = queryAll(ctx, tx, "items",
		`SELECT id, name, description, unit_price, merchant_id, created_at, updated_at FROM items ORDER BY id`,
		func(row pgx.CollectableRow) (model.Item, error) {
			var (
				it        model.Item
				price     pgtype.Numeric
				updatedAt *time.Time
			)
			if err := row.Scan(&it.ID, &it.Name, &it.Description, &price, &it.MerchantID, &it.CreatedAt, &updatedAt); err != nil {
				return it, err
			}
			it.CreatedAt = it.CreatedAt.UTC()
			it.UpdatedAt = derefTime(updatedAt)
			unitPrice, err := decimalFromNumeric(price)
			it.UnitPrice = unitPrice
			return it, err
		})
	if err != nil {
		return Data{}, err
	}

	d.Invoices, err = queryAll(ctx, tx, "invoices",
		`SELECT id, customer_id, merchant_id, status, created_at, updated_at FROM invoices ORDER BY id`,
		func(row pgx.CollectableRow) (model.Invoice, error) {
			var (
				inv       model.Invoice
				status    string
				updatedAt *time.Time
			)
			err := row.Scan(&inv.ID, &inv.CustomerID, &inv.MerchantID, &status, &inv.CreatedAt, &updatedAt)
			inv.Status = model.InvoiceStatus(status)
			inv.CreatedAt = inv.CreatedAt.UTC()
			inv.UpdatedAt = derefTime(updatedAt)
			return inv, err
		})
	if err != nil {
		return Data{}, err
	}

	d.InvoiceItems, err = queryAll(ctx, tx, "invoice items",
		`SELECT id, item_id, invoice_id, quantity, unit_price, created_at, updated_at FROM invoice_items ORDER BY id`,
		func(row pgx.CollectableRow) (model.InvoiceItem, error) {
			var (
				ii                   model.InvoiceItem
				price                pgtype.Numeric
				createdAt, updatedAt *time.Time
			)
			if err := row.Scan(&ii.ID, &ii.ItemID, &ii.InvoiceID, &ii.Quantity, &price, &createdAt, &updatedAt); err != nil {
				return ii, err
			}
			ii.CreatedAt = derefTime(createdAt)
			ii.UpdatedAt = derefTime(updatedAt)
			unitPrice, err := decimalFromNumeric(price)
			ii.UnitPrice = unitPrice
			return ii, err
		})
	if err != nil {
		return Data{}, err
	}

	d.Transactions, err = queryAll(ctx, tx, "transactions",
		`SELECT id, invoice_id, credit_card_number, credit_card_expiration_date, result, created_at, updated_at
		 FROM transactions ORDER BY id`,
		func(row pgx.CollectableRow) (model.Transaction, error) {
			var (
				tr        model.Transaction
				result    string
				updatedAt *time.Time
			)
			err := row.Scan(&tr.ID, &tr.InvoiceID, &tr.CreditCardNumber, &tr.CreditCardExpirationDate, &result, &tr.CreatedAt, &updatedAt)
			tr.Result = model.TransactionResult(result)
			tr.CreatedAt = tr.CreatedAt.UTC()
			tr.UpdatedAt = derefTime(updatedAt)
			return tr, err
		})
	if err != nil {
		return Data{}, err
	}

	return d, nil
}

func queryAll[T any](ctx context.Context, tx pgx.Tx, name, sql string, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", name, err)
	}

	res, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", name, err)
	}
	return res, nil
}

// ImportSnapshot заменяет содержимое таблиц записями снимка в одной транзакции.
func (r *PostgresRepository) ImportSnapshot(ctx context.Context, s *Snapshot) error {
	d := s.Data()

	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if _, err := tx.Exec(ctx,
			`TRUNCATE transactions, invoice_items, invoices, items, customers, merchants`,
		); err != nil {
			return fmt.Errorf("truncate tables: %w", err)
		}

		if err := copyData(ctx, tx, d); err != nil {
			if isConstraintError(err) {
				return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
			}
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

func copyData(ctx context.Context, tx pgx.Tx, d Data) error {
	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{
			table:   "merchants",
			columns: []string{"id", "name", "created_at", "updated_at"},
			rows: toRows(d.Merchants, func(m model.Merchant) []any {
				return []any{m.ID, m.Name, m.CreatedAt, nullTime(m.UpdatedAt)}
			}),
		},
		{
			table:   "customers",
			columns: []string{"id", "first_name", "last_name", "created_at", "updated_at"},
			rows: toRows(d.Customers, func(c model.Customer) []any {
				return []any{c.ID, c.FirstName, c.LastName, c.CreatedAt, nullTime(c.UpdatedAt)}
			}),
		},
		{
			table:   "items",
			columns: []string{"id", "name", "description", "unit_price", "merchant_id", "created_at", "updated_at"},
			rows: toRows(d.Items, func(it model.Item) []any {
				return []any{it.ID, it.Name, it.Description, numericFromDecimal(it.UnitPrice), it.MerchantID, it.CreatedAt, nullTime(it.UpdatedAt)}
			}),
		},
		{
			table:   "invoices",
			columns: []string{"id", "customer_id", "merchant_id", "status", "created_at", "updated_at"},
			rows: toRows(d.Invoices, func(inv model.Invoice) []any {
				return []any{inv.ID, inv.CustomerID, inv.MerchantID, string(inv.Status), inv.CreatedAt, nullTime(inv.UpdatedAt)}
			}),
		},
		{
			table:   "invoice_items",
			columns: []string{"id", "item_id", "invoice_id", "quantity", "unit_price", "created_at", "updated_at"},
			rows: toRows(d.InvoiceItems, func(ii model.InvoiceItem) []any {
				return []any{ii.ID, ii.ItemID, ii.InvoiceID, int32(ii.Quantity), numericFromDecimal(ii.UnitPrice), nullTime(ii.CreatedAt), nullTime(ii.UpdatedAt)}
			}),
		},
		{
			table:   "transactions",
			columns: []string{"id", "invoice_id", "credit_card_number", "credit_card_expiration_date", "result", "created_at", "updated_at"},
			rows: toRows(d.Transactions, func(tr model.Transaction) []any {
				return []any{tr.ID, tr.InvoiceID, tr.CreditCardNumber, tr.CreditCardExpirationDate, string(tr.Result), tr.CreatedAt, nullTime(tr.UpdatedAt)}
			}),
		},
	}

	for _, c := range copies {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows)); err != nil {
			return fmt.Errorf("copy %s: %w", c.table, err)
		}
	}
	return nil
}

func toRows[T any](records []T, fn func(T) []any) [][]any {
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, fn(rec))
	}
	return rows
}

func numericFromDecimal(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func decimalFromNumeric(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero, fmt.Errorf("%w: non-finite numeric value", ErrMalformedRecord)
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// derefTime разыменовывает необязательную отметку времени и приводит её к UTC.
func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
