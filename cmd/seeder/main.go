// Package main загружает каталог CSV-файлов в базу данных аналитики продаж.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mmeshcher/sales-analyst/internal/config"
	"github.com/mmeshcher/sales-analyst/internal/repository"
	"github.com/mmeshcher/sales-analyst/internal/validation"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if cfg.DataDir == "" || cfg.DatabaseURI == "" {
		sugar.Fatalw("configuration error", "error", "both DATA_DIR and DATABASE_URI are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := repository.NewCSVSource(cfg.DataDir).LoadSnapshot(ctx)
	if err != nil {
		sugar.Fatalw("read csv snapshot error", "dir", cfg.DataDir, "error", err.Error())
	}

	if err := validation.CheckSnapshot(snap.Data()); err != nil {
		sugar.Fatalw("snapshot integrity error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	if err := repo.ImportSnapshot(ctx, snap); err != nil {
		sugar.Fatalw("import snapshot error", "error", err.Error())
	}

	counts := snap.Counts()
	sugar.Infow("snapshot imported",
		"merchants", counts.Merchants,
		"items", counts.Items,
		"invoices", counts.Invoices,
		"invoice_items", counts.InvoiceItems,
		"transactions", counts.Transactions,
		"customers", counts.Customers,
	)
}
