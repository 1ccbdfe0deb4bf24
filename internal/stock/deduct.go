package stock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Spok95/florist-stock/internal/domain/inventory"
	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckAvailability сколько единиц продукта можно собрать; ничего не меняет.
func (s *Service) CheckAvailability(ctx context.Context, productID int64, requested int) (*Availability, error) {
	defer s.observe("check_availability", time.Now())

	if requested <= 0 {
		return nil, invalidf("quantity_requested must be positive, got %d", requested)
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, notFoundf("product %d", productID)
	}
	cs, err := s.products.Components(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get composition: %w", err)
	}

	av := Evaluate(cs, requested)
	av.ProductID = p.ID
	av.ProductName = p.Name
	s.metrics.AvailabilityChecked()
	return &av, nil
}

type DeductedMaterial struct {
	MaterialID int64
	Material   string
	Deducted   float64
	Unit       materials.Unit
	Remaining  float64
}

type DeductionReport struct {
	ProductID   int64
	ProductName string
	Quantity    int
	Forced      bool
	// Reference общий id движений этой операции в журнале.
	Reference string
	Deducted  []DeductedMaterial
}

// DeductMaterials списывает обязательные материалы на quantity единиц продукта.
// Всё или ничего: при нехватке хотя бы одного материала остатки не меняются.
func (s *Service) DeductMaterials(ctx context.Context, productID int64, quantity int, force bool) (*DeductionReport, error) {
	defer s.observe("deduct", time.Now())

	rep, err := s.deduct(ctx, productID, quantity, force)
	switch {
	case err == nil:
		var units float64
		for _, d := range rep.Deducted {
			units += d.Deducted
		}
		s.metrics.Deduction("ok", units)
	case errors.Is(err, ErrInsufficientStock):
		s.metrics.Deduction("insufficient", 0)
	default:
		s.metrics.Deduction("error", 0)
	}
	return rep, err
}

func (s *Service) deduct(ctx context.Context, productID int64, quantity int, force bool) (*DeductionReport, error) {
	if quantity <= 0 {
		return nil, invalidf("quantity must be positive, got %d", quantity)
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, notFoundf("product %d", productID)
	}

	if !force {
		cs, err := s.products.Components(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("get composition: %w", err)
		}
		if av := Evaluate(cs, quantity); !av.Sufficient() {
			lm := av.LimitingMaterial
			return nil, &InsufficientStockError{
				MaterialID: lm.MaterialID,
				Material:   lm.Material,
				Unit:       string(lm.Unit),
				Needed:     amountFor(lm.NeededPerUnit, quantity).InexactFloat64(),
				Available:  lm.Available,
				CanMake:    av.CanMake,
				Requested:  quantity,
			}
		}
	}

	rep := &DeductionReport{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		Forced:      force,
		Reference:   uuid.NewString(),
	}
	comment := fmt.Sprintf("Производство: %s (%s) x %d", p.Name, p.SKU, quantity)

	err = s.stock.WithinTx(ctx, func(tx inventory.Tx) error {
		rep.Deducted = rep.Deducted[:0]

		cs, err := tx.Components(ctx, productID)
		if err != nil {
			return fmt.Errorf("get composition: %w", err)
		}
		cs = mandatory(cs)

		ids := make([]int64, 0, len(cs))
		for _, c := range cs {
			ids = append(ids, c.MaterialID)
		}
		locked, err := tx.Lock(ctx, ids...)
		if err != nil {
			return fmt.Errorf("lock materials: %w", err)
		}

		// остаток под блокировкой; один материал может встречаться в составе дважды
		left := make(map[int64]decimal.Decimal, len(locked))
		for id, m := range locked {
			left[id] = decimal.NewFromFloat(m.Quantity)
		}

		for _, c := range cs {
			m, ok := locked[c.MaterialID]
			if !ok {
				return notFoundf("material %d", c.MaterialID)
			}
			have := left[c.MaterialID]
			amount := amountFor(c.QuantityNeeded, quantity)
			after := have.Sub(amount)

			if after.IsNegative() && (!force || !s.policy.AllowNegativeStock) {
				available := have.InexactFloat64()
				return &InsufficientStockError{
					MaterialID: m.ID,
					Material:   m.Name,
					Unit:       string(c.EffectiveUnit()),
					Needed:     amount.InexactFloat64(),
					Available:  available,
					CanMake:    canMakeFrom(available, c.QuantityNeeded),
					Requested:  quantity,
				}
			}
			left[c.MaterialID] = after
			rep.Deducted = append(rep.Deducted, DeductedMaterial{
				MaterialID: m.ID,
				Material:   m.Name,
				Deducted:   amount.InexactFloat64(),
				Unit:       m.Unit,
				Remaining:  after.InexactFloat64(),
			})
		}

		touched := make([]int64, 0, len(left))
		for id := range left {
			touched = append(touched, id)
		}
		slices.Sort(touched)
		for _, id := range touched {
			if err := tx.SetQuantity(ctx, id, left[id].InexactFloat64()); err != nil {
				return fmt.Errorf("set quantity: %w", err)
			}
		}
		for _, d := range rep.Deducted {
			if err := tx.Record(ctx, inventory.Movement{
				MaterialID:    d.MaterialID,
				Type:          inventory.MoveConsumption,
				Quantity:      -d.Deducted,
				Comment:       comment,
				ReferenceType: inventory.RefProduct,
				ReferenceID:   rep.Reference,
			}); err != nil {
				return fmt.Errorf("record movement: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.txError("deduct materials", err)
	}

	ids := make([]int64, 0, len(rep.Deducted))
	for _, d := range rep.Deducted {
		s.metrics.Movement(inventory.MoveConsumption)
		ids = append(ids, d.MaterialID)
	}
	s.log.Info("materials deducted",
		"product_id", p.ID, "quantity", quantity, "force", force,
		"reference", rep.Reference, "materials", len(rep.Deducted))
	s.notifyLowStock(ctx, slices.Compact(slices.Sorted(slices.Values(ids))))
	return rep, nil
}
