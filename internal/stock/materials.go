package stock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Spok95/florist-stock/internal/domain/inventory"
	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func nonNegative(name string, v *float64) error {
	if v != nil && (!finite(*v) || *v < 0) {
		return invalidf("%s must be >= 0", name)
	}
	return nil
}

func (s *Service) CreateMaterial(ctx context.Context, m materials.Material) (*materials.Material, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return nil, invalidf("name is required")
	}
	if m.Unit == "" {
		return nil, invalidf("unit is required")
	}
	if !finite(m.Quantity) || m.Quantity < 0 {
		return nil, invalidf("quantity must be >= 0")
	}
	for name, v := range map[string]*float64{
		"min_quantity":   m.MinQuantity,
		"price_per_unit": m.PricePerUnit,
		"cost_price":     m.CostPrice,
	} {
		if err := nonNegative(name, v); err != nil {
			return nil, err
		}
	}

	created, err := s.materials.Create(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("create material: %w", err)
	}
	s.log.Info("material created", "material_id", created.ID, "name", created.Name)
	return created, nil
}

func (s *Service) GetMaterial(ctx context.Context, id int64) (*materials.Material, error) {
	m, err := s.materials.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get material: %w", err)
	}
	if m == nil {
		return nil, notFoundf("material %d", id)
	}
	return m, nil
}

func (s *Service) ListMaterials(ctx context.Context, f materials.Filter) ([]materials.Material, error) {
	list, err := s.materials.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return list, nil
}

// MaterialUpdate частичное изменение материала. Quantity задаёт новый остаток
// и пишется в журнал как корректировка.
type MaterialUpdate struct {
	materials.Patch
	Quantity *float64
	Comment  string
}

func (u MaterialUpdate) Empty() bool { return u.Patch.Empty() && u.Quantity == nil }

func (s *Service) UpdateMaterial(ctx context.Context, id int64, u MaterialUpdate) (*materials.Material, error) {
	if u.Empty() {
		return nil, invalidf("nothing to update")
	}
	if u.Name != nil {
		n := strings.TrimSpace(*u.Name)
		if n == "" {
			return nil, invalidf("name must not be empty")
		}
		u.Name = &n
	}
	for name, v := range map[string]*float64{
		"quantity":       u.Quantity,
		"min_quantity":   u.MinQuantity,
		"price_per_unit": u.PricePerUnit,
		"cost_price":     u.CostPrice,
	} {
		if err := nonNegative(name, v); err != nil {
			return nil, err
		}
	}

	var recorded []inventory.MoveType
	err := s.stock.WithinTx(ctx, func(tx inventory.Tx) error {
		recorded = recorded[:0]
		locked, err := tx.Lock(ctx, id)
		if err != nil {
			return fmt.Errorf("lock material: %w", err)
		}
		m, ok := locked[id]
		if !ok {
			return notFoundf("material %d", id)
		}

		if !u.Patch.Empty() {
			if err := tx.Patch(ctx, id, u.Patch); err != nil {
				return fmt.Errorf("patch material: %w", err)
			}
		}
		if u.Quantity != nil {
			delta := decimal.NewFromFloat(*u.Quantity).Sub(decimal.NewFromFloat(m.Quantity))
			if !delta.IsZero() {
				if err := tx.SetQuantity(ctx, id, *u.Quantity); err != nil {
					return fmt.Errorf("set quantity: %w", err)
				}
				comment := u.Comment
				if comment == "" {
					comment = fmt.Sprintf("Корректировка остатка: %g → %g", m.Quantity, *u.Quantity)
				}
				if err := tx.Record(ctx, inventory.Movement{
					MaterialID:    id,
					Type:          inventory.MoveAdjustment,
					Quantity:      delta.InexactFloat64(),
					Comment:       comment,
					ReferenceType: inventory.RefManual,
					ReferenceID:   uuid.NewString(),
				}); err != nil {
					return fmt.Errorf("record movement: %w", err)
				}
				recorded = append(recorded, inventory.MoveAdjustment)
			}
		}
		if u.PricePerUnit != nil && (m.PricePerUnit == nil || *m.PricePerUnit != *u.PricePerUnit) {
			old := "нет"
			if m.PricePerUnit != nil {
				old = fmt.Sprintf("%g", *m.PricePerUnit)
			}
			if err := tx.Record(ctx, inventory.Movement{
				MaterialID:    id,
				Type:          inventory.MovePriceChange,
				Comment:       fmt.Sprintf("Цена за единицу: %s → %g", old, *u.PricePerUnit),
				ReferenceType: inventory.RefManual,
			}); err != nil {
				return fmt.Errorf("record movement: %w", err)
			}
			recorded = append(recorded, inventory.MovePriceChange)
		}
		return nil
	})
	if err != nil {
		return nil, s.txError("update material", err)
	}
	for _, t := range recorded {
		s.metrics.Movement(t)
	}
	return s.GetMaterial(ctx, id)
}

func (s *Service) DeleteMaterial(ctx context.Context, id int64) error {
	ok, err := s.materials.Delete(ctx, id)
	if errors.Is(err, materials.ErrInUse) {
		return fmt.Errorf("%w: material %d is used in product composition", ErrConflict, id)
	}
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	if !ok {
		return notFoundf("material %d", id)
	}
	s.log.Info("material deleted", "material_id", id)
	return nil
}

// AddStock приход материала на склад.
func (s *Service) AddStock(ctx context.Context, materialID int64, quantity float64, note string) (*materials.Material, error) {
	defer s.observe("add_stock", time.Now())

	if !finite(quantity) {
		return nil, invalidf("quantity must be a finite number")
	}
	if quantity <= 0 && !s.policy.AllowNonPositiveAdd {
		return nil, invalidf("quantity must be positive, got %g", quantity)
	}
	if note == "" {
		note = "Поступление"
	}

	var res materials.Material
	err := s.stock.WithinTx(ctx, func(tx inventory.Tx) error {
		locked, err := tx.Lock(ctx, materialID)
		if err != nil {
			return fmt.Errorf("lock material: %w", err)
		}
		m, ok := locked[materialID]
		if !ok {
			return notFoundf("material %d", materialID)
		}
		after := decimal.NewFromFloat(m.Quantity).Add(decimal.NewFromFloat(quantity))
		if after.IsNegative() && !s.policy.AllowNegativeStock {
			return &InsufficientStockError{
				MaterialID: m.ID,
				Material:   m.Name,
				Unit:       string(m.Unit),
				Needed:     -quantity,
				Available:  m.Quantity,
			}
		}
		m.Quantity = after.InexactFloat64()
		if err := tx.SetQuantity(ctx, m.ID, m.Quantity); err != nil {
			return fmt.Errorf("set quantity: %w", err)
		}
		if err := tx.Record(ctx, inventory.Movement{
			MaterialID:    m.ID,
			Type:          inventory.MoveSupply,
			Quantity:      quantity,
			Comment:       note,
			ReferenceType: inventory.RefManual,
			ReferenceID:   uuid.NewString(),
		}); err != nil {
			return fmt.Errorf("record movement: %w", err)
		}
		res = m
		return nil
	})
	if err != nil {
		return nil, s.txError("add stock", err)
	}

	s.metrics.Movement(inventory.MoveSupply)
	s.log.Info("stock added", "material_id", materialID, "quantity", quantity, "new_quantity", res.Quantity)
	return &res, nil
}

// WriteOff списание (брак, увядание). Больше остатка списать нельзя.
func (s *Service) WriteOff(ctx context.Context, materialID int64, quantity float64, comment string) (*materials.Material, error) {
	defer s.observe("write_off", time.Now())

	if !finite(quantity) || quantity <= 0 {
		return nil, invalidf("quantity must be positive, got %g", quantity)
	}
	if comment == "" {
		comment = "Списание"
	}

	var res materials.Material
	err := s.stock.WithinTx(ctx, func(tx inventory.Tx) error {
		locked, err := tx.Lock(ctx, materialID)
		if err != nil {
			return fmt.Errorf("lock material: %w", err)
		}
		m, ok := locked[materialID]
		if !ok {
			return notFoundf("material %d", materialID)
		}
		after := decimal.NewFromFloat(m.Quantity).Sub(decimal.NewFromFloat(quantity))
		if after.IsNegative() {
			return &InsufficientStockError{
				MaterialID: m.ID,
				Material:   m.Name,
				Unit:       string(m.Unit),
				Needed:     quantity,
				Available:  m.Quantity,
			}
		}
		m.Quantity = after.InexactFloat64()
		if err := tx.SetQuantity(ctx, m.ID, m.Quantity); err != nil {
			return fmt.Errorf("set quantity: %w", err)
		}
		if err := tx.Record(ctx, inventory.Movement{
			MaterialID:    m.ID,
			Type:          inventory.MoveWaste,
			Quantity:      -quantity,
			Comment:       comment,
			ReferenceType: inventory.RefManual,
			ReferenceID:   uuid.NewString(),
		}); err != nil {
			return fmt.Errorf("record movement: %w", err)
		}
		res = m
		return nil
	})
	if err != nil {
		return nil, s.txError("write off", err)
	}

	s.metrics.Movement(inventory.MoveWaste)
	s.log.Info("stock written off", "material_id", materialID, "quantity", quantity, "new_quantity", res.Quantity)
	s.notifyLowStock(ctx, []int64{materialID})
	return &res, nil
}

// Movements журнал движения материала, новые сверху.
func (s *Service) Movements(ctx context.Context, materialID int64) ([]inventory.Movement, error) {
	if _, err := s.GetMaterial(ctx, materialID); err != nil {
		return nil, err
	}
	mv, err := s.stock.Movements(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return mv, nil
}

// txError доменные ошибки отдаём как есть, остальные оборачиваем.
func (s *Service) txError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
