package inventory

import (
	"context"
	"time"

	"github.com/Spok95/florist-stock/internal/domain/audits"
	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/domain/products"
)

type MoveType string

const (
	MoveSupply      MoveType = "supply"       // поставка
	MoveConsumption MoveType = "consumption"  // расход на производство
	MoveWaste       MoveType = "waste"        // списание
	MoveAdjustment  MoveType = "adjustment"   // ручная корректировка
	MoveAudit       MoveType = "audit"        // по итогам инвентаризации
	MovePriceChange MoveType = "price_change" // изменение цены, quantity = 0
)

const (
	RefProduct = "product"
	RefManual  = "manual"
	RefAudit   = "audit"
)

// Movement запись журнала склада. Quantity > 0 приход, < 0 расход.
type Movement struct {
	ID            int64
	MaterialID    int64
	Type          MoveType
	Quantity      float64
	Comment       string
	ReferenceType string
	ReferenceID   string
	CreatedAt     time.Time
}

// Tx транзакция склада. Строки, взятые через Lock, остаются заблокированными
// до конца транзакции; все записи применяются только при успешном завершении.
type Tx interface {
	Components(ctx context.Context, productID int64) ([]products.Component, error)
	// Lock блокирует материалы в порядке возрастания id; отсутствующих id нет в ответе.
	Lock(ctx context.Context, ids ...int64) (map[int64]materials.Material, error)
	SetQuantity(ctx context.Context, materialID int64, qty float64) error
	// Patch меняет название, порог и цены; количество только через SetQuantity.
	Patch(ctx context.Context, materialID int64, p materials.Patch) error
	Record(ctx context.Context, mv Movement) error

	// LockAudit nil, nil если инвентаризации нет.
	LockAudit(ctx context.Context, auditID int64) (*audits.Audit, error)
	CloseAudit(ctx context.Context, auditID int64, status audits.Status) error
}
