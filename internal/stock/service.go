package stock

import (
	"context"
	"log/slog"
	"time"

	"github.com/Spok95/florist-stock/internal/domain/audits"
	"github.com/Spok95/florist-stock/internal/domain/inventory"
	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/domain/products"
)

// Хранилища отдают nil, nil, если записи нет.

type MaterialRepo interface {
	Create(ctx context.Context, m materials.Material) (*materials.Material, error)
	GetByID(ctx context.Context, id int64) (*materials.Material, error)
	List(ctx context.Context, f materials.Filter) ([]materials.Material, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int, error)
	GetByName(ctx context.Context, name string) (*materials.Material, error)
}

type ProductRepo interface {
	Create(ctx context.Context, p products.Product) (*products.Product, error)
	GetByID(ctx context.Context, id int64) (*products.Product, error)
	GetBySKU(ctx context.Context, sku string) (*products.Product, error)
	List(ctx context.Context) ([]products.Product, error)
	Components(ctx context.Context, productID int64) ([]products.Component, error)
	SetComposition(ctx context.Context, productID int64, in []products.ComponentInput) error
}

type AuditRepo interface {
	Start(ctx context.Context, notes string) (*audits.Audit, error)
	Current(ctx context.Context) (*audits.Audit, error)
	GetByID(ctx context.Context, id int64) (*audits.Audit, error)
	SetCounts(ctx context.Context, auditID int64, counts map[int64]float64) (int, error)
}

// Store транзакционный доступ к остаткам; все изменения quantity идут только через него.
type Store interface {
	WithinTx(ctx context.Context, fn func(inventory.Tx) error) error
	Movements(ctx context.Context, materialID int64) ([]inventory.Movement, error)
}

// Notifier получает материалы, у которых остаток опустился до порога.
type Notifier interface {
	LowStock(ctx context.Context, items []materials.Material) error
}

type Metrics interface {
	AvailabilityChecked()
	Deduction(result string, units float64)
	Movement(t inventory.MoveType)
	LowStockAlerts(n int)
	Observe(op string, d time.Duration)
}

// Policy настраиваемые правила склада.
type Policy struct {
	// AllowNegativeStock разрешает принудительному списанию уводить остаток ниже нуля.
	AllowNegativeStock bool
	// AllowNonPositiveAdd разрешает AddStock с количеством <= 0.
	AllowNonPositiveAdd bool
}

func DefaultPolicy() Policy { return Policy{AllowNegativeStock: true} }

type Deps struct {
	Materials MaterialRepo
	Products  ProductRepo
	Audits    AuditRepo
	Stock     Store

	Notifier Notifier // опционально
	Metrics  Metrics  // опционально
}

type Service struct {
	materials MaterialRepo
	products  ProductRepo
	audits    AuditRepo
	stock     Store
	notifier  Notifier
	metrics   Metrics
	policy    Policy
	log       *slog.Logger
}

func New(d Deps, policy Policy, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		materials: d.Materials,
		products:  d.Products,
		audits:    d.Audits,
		stock:     d.Stock,
		notifier:  d.Notifier,
		metrics:   d.Metrics,
		policy:    policy,
		log:       log,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	return s
}

func (s *Service) Policy() Policy { return s.policy }

func (s *Service) observe(op string, start time.Time) {
	s.metrics.Observe(op, time.Since(start))
}

// notifyLowStock ошибки уведомлений только логируются.
func (s *Service) notifyLowStock(ctx context.Context, ids []int64) {
	var low []materials.Material
	for _, id := range ids {
		m, err := s.materials.GetByID(ctx, id)
		if err != nil {
			s.log.Warn("low stock: reload material failed", "material_id", id, "err", err)
			continue
		}
		if m != nil && m.IsLowStock() {
			low = append(low, *m)
		}
	}
	if len(low) == 0 {
		return
	}
	s.metrics.LowStockAlerts(len(low))
	if err := s.notifier.LowStock(ctx, low); err != nil {
		s.log.Error("low stock notification failed", "err", err, "count", len(low))
		return
	}
	s.log.Info("low stock notification sent", "count", len(low))
}

type nopNotifier struct{}

func (nopNotifier) LowStock(context.Context, []materials.Material) error { return nil }

type nopMetrics struct{}

func (nopMetrics) AvailabilityChecked()          {}
func (nopMetrics) Deduction(string, float64)     {}
func (nopMetrics) Movement(inventory.MoveType)   {}
func (nopMetrics) LowStockAlerts(int)            {}
func (nopMetrics) Observe(string, time.Duration) {}
