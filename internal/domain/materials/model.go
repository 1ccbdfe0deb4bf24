package materials

import "time"

type Unit string

const (
	UnitPcs    Unit = "шт"
	UnitMeter  Unit = "м"
	UnitBranch Unit = "веток"
	UnitPack   Unit = "упак"
)

// Material позиция склада: цветок, зелень, упаковка.
type Material struct {
	ID           int64
	Name         string
	Quantity     float64
	Unit         Unit
	MinQuantity  *float64 // порог для предупреждения о низком остатке
	PricePerUnit *float64 // розничная цена за единицу
	CostPrice    *float64 // себестоимость за единицу
	CreatedAt    time.Time
}

// IsLowStock остаток на пороге или ниже (порог не задан => 0).
func (m Material) IsLowStock() bool {
	var threshold float64
	if m.MinQuantity != nil {
		threshold = *m.MinQuantity
	}
	return m.Quantity <= threshold
}

type Filter struct {
	OnlyLowStock bool
	Search       string
}

// Patch частичное обновление; nil => поле не трогаем.
// Количество меняется только через stock (под блокировкой строки).
type Patch struct {
	Name         *string
	MinQuantity  *float64
	PricePerUnit *float64
	CostPrice    *float64
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.MinQuantity == nil && p.PricePerUnit == nil && p.CostPrice == nil
}

// Fields имена изменяемых полей (для ответа API).
func (p Patch) Fields() []string {
	var out []string
	if p.Name != nil {
		out = append(out, "name")
	}
	if p.MinQuantity != nil {
		out = append(out, "min_quantity")
	}
	if p.PricePerUnit != nil {
		out = append(out, "price_per_unit")
	}
	if p.CostPrice != nil {
		out = append(out, "cost_price")
	}
	return out
}

// Apply возвращает копию материала с применённым патчем.
func (p Patch) Apply(m Material) Material {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.MinQuantity != nil {
		v := *p.MinQuantity
		m.MinQuantity = &v
	}
	if p.PricePerUnit != nil {
		v := *p.PricePerUnit
		m.PricePerUnit = &v
	}
	if p.CostPrice != nil {
		v := *p.CostPrice
		m.CostPrice = &v
	}
	return m
}
