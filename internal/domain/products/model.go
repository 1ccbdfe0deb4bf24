package products

import (
	"time"

	"github.com/Spok95/florist-stock/internal/domain/materials"
)

type Type string

const (
	TypeBouquet     Type = "букет"
	TypeComposition Type = "композиция"
	TypePotted      Type = "горшечный"
	TypeAccessory   Type = "аксессуар"
)

type Product struct {
	ID          int64
	SKU         string
	Name        string
	Description string
	Type        Type
	BasePrice   float64
	IsActive    bool
	CreatedAt   time.Time
}

// Component строка состава продукта (сколько материала уходит на 1 шт).
type Component struct {
	ID             int64
	ProductID      int64
	MaterialID     int64
	QuantityNeeded float64
	Unit           materials.Unit // переопределение единицы материала, может быть пустым
	IsOptional     bool
	Notes          string

	// Проекция материала на момент чтения
	Material materials.Material
}

// EffectiveUnit единица из состава, иначе единица материала.
func (c Component) EffectiveUnit() materials.Unit {
	if c.Unit != "" {
		return c.Unit
	}
	return c.Material.Unit
}

// Cost стоимость материала на 1 шт продукта; nil если цена не задана.
func (c Component) Cost() *float64 {
	if c.Material.PricePerUnit == nil {
		return nil
	}
	v := c.QuantityNeeded * *c.Material.PricePerUnit
	return &v
}

type ComponentInput struct {
	MaterialID     int64
	QuantityNeeded float64
	Unit           materials.Unit
	IsOptional     bool
	Notes          string
}
