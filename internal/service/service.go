// Package service управляет текущим снимком данных о продажах и выдаёт анализатор поверх него.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/mmeshcher/sales-analyst/internal/analyst"
	"github.com/mmeshcher/sales-analyst/internal/repository"
	"github.com/mmeshcher/sales-analyst/internal/validation"
)

// ErrSnapshotNotLoaded возвращается, пока ни один снимок не был успешно загружен.
var ErrSnapshotNotLoaded = errors.New("snapshot not loaded")

var (
	snapshotReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_snapshot_reloads_total",
		Help: "Snapshot reload attempts, labeled by result",
	}, []string{"result"})

	snapshotRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sales_snapshot_records",
		Help: "Number of records in the active snapshot",
	}, []string{"collection"})
)

// SnapshotSource описывает источник, из которого загружается снимок.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) (*repository.Snapshot, error)
}

// Service хранит активный снимок и заменяет его целиком при перезагрузке.
type Service struct {
	source SnapshotSource
	logger *zap.Logger

	mu       sync.RWMutex
	snapshot *repository.Snapshot
	loadedAt time.Time
}

// NewService создаёт сервис поверх источника снимков.
func NewService(source SnapshotSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source: source,
		logger: logger,
	}
}

// Close закрывает источник, если он держит ресурсы.
func (s *Service) Close() error {
	if c, ok := s.source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reload загружает новый снимок, проверяет его целостность и делает активным.
// При ошибке активным остаётся предыдущий снимок.
func (s *Service) Reload(ctx context.Context) (repository.Counts, error) {
	snap, err := s.source.LoadSnapshot(ctx)
	if err != nil {
		snapshotReloads.WithLabelValues("error").Inc()
		return repository.Counts{}, fmt.Errorf("load snapshot: %w", err)
	}

	if err := validation.CheckSnapshot(snap.Data()); err != nil {
		snapshotReloads.WithLabelValues("invalid").Inc()
		return repository.Counts{}, fmt.Errorf("check snapshot: %w", err)
	}

	s.mu.Lock()
	s.snapshot = snap
	s.loadedAt = time.Now()
	s.mu.Unlock()

	counts := snap.Counts()
	snapshotReloads.WithLabelValues("ok").Inc()
	recordCounts(counts)

	s.logger.Info("snapshot loaded",
		zap.Int("merchants", counts.Merchants),
		zap.Int("items", counts.Items),
		zap.Int("invoices", counts.Invoices),
		zap.Int("invoice_items", counts.InvoiceItems),
		zap.Int("transactions", counts.Transactions),
		zap.Int("customers", counts.Customers),
	)

	return counts, nil
}

func recordCounts(c repository.Counts) {
	snapshotRecords.WithLabelValues("merchants").Set(float64(c.Merchants))
	snapshotRecords.WithLabelValues("items").Set(float64(c.Items))
	snapshotRecords.WithLabelValues("invoices").Set(float64(c.Invoices))
	snapshotRecords.WithLabelValues("invoice_items").Set(float64(c.InvoiceItems))
	snapshotRecords.WithLabelValues("transactions").Set(float64(c.Transactions))
	snapshotRecords.WithLabelValues("customers").Set(float64(c.Customers))
}

// Snapshot возвращает активный снимок.
func (s *Service) Snapshot() (*repository.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil, ErrSnapshotNotLoaded
	}
	return s.snapshot, nil
}

// LoadedAt возвращает время загрузки активного снимка.
func (s *Service) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Analyst возвращает анализатор поверх активного снимка.
// Анализатор продолжает работать со своим снимком даже после перезагрузки.
func (s *Service) Analyst() (*analyst.Analyst, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return NewAnalyst(snap), nil
}

// NewAnalyst создаёт анализатор поверх репозиториев снимка.
func NewAnalyst(snap *repository.Snapshot) *analyst.Analyst {
	return analyst.New(analyst.Repositories{
		Merchants:    snap.Merchants(),
		Items:        snap.Items(),
		Invoices:     snap.Invoices(),
		InvoiceItems: snap.InvoiceItems(),
		Transactions: snap.Transactions(),
	})
}

// StartSnapshotRefresh запускает фоновую перезагрузку снимка с указанным интервалом.
// Нулевой или отрицательный интервал отключает перезагрузку.
func (s *Service) StartSnapshotRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Reload(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					s.logger.Warn("snapshot refresh failed", zap.Error(err))
				}
			}
		}
	}()
}
