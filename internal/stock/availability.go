package stock

import (
	"math"

	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/domain/products"
	"github.com/shopspring/decimal"
)

// Unlimited can-make для продукта без обязательных материалов.
const Unlimited = 999

type MaterialStatus struct {
	MaterialID    int64
	Material      string
	NeededPerUnit float64
	Available     float64
	Unit          materials.Unit
	CanMake       int
	IsLimiting    bool
}

type Availability struct {
	ProductID   int64
	ProductName string
	Requested   int
	CanMake     int
	// LimitingMaterial nil, если запрошенное количество можно сделать.
	LimitingMaterial *MaterialStatus
	Materials        []MaterialStatus
}

// Sufficient хватает ли на запрошенное количество.
func (a Availability) Sufficient() bool { return a.CanMake >= a.Requested }

// mandatory обязательные компоненты. Строки с quantity_needed <= 0 ничего не ограничивают
// и не списываются.
func mandatory(cs []products.Component) []products.Component {
	out := make([]products.Component, 0, len(cs))
	for _, c := range cs {
		if c.IsOptional || c.QuantityNeeded <= 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

var maxCanMake = decimal.NewFromInt(math.MaxInt)

// canMakeFrom floor(available / needed), не больше math.MaxInt.
// Отрицательный остаток (после принудительного списания) даёт 0, а не floor < 0,
// как отдавал прежний API.
func canMakeFrom(available, needed float64) int {
	q := decimal.NewFromFloat(available).Div(decimal.NewFromFloat(needed)).Floor()
	if q.Sign() < 0 {
		return 0
	}
	if q.GreaterThan(maxCanMake) {
		return math.MaxInt
	}
	return int(q.IntPart())
}

// Evaluate считает, сколько единиц продукта можно собрать из текущих остатков.
// Чистая функция: компоненты уже содержат проекцию материала.
func Evaluate(components []products.Component, requested int) Availability {
	av := Availability{Requested: requested}

	cs := mandatory(components)
	if len(cs) == 0 {
		av.CanMake = Unlimited
		av.Materials = []MaterialStatus{}
		return av
	}

	av.Materials = make([]MaterialStatus, 0, len(cs))
	limiting := -1
	for i, c := range cs {
		n := canMakeFrom(c.Material.Quantity, c.QuantityNeeded)
		av.Materials = append(av.Materials, MaterialStatus{
			MaterialID:    c.MaterialID,
			Material:      c.Material.Name,
			NeededPerUnit: c.QuantityNeeded,
			Available:     c.Material.Quantity,
			Unit:          c.EffectiveUnit(),
			CanMake:       n,
			IsLimiting:    n < requested,
		})
		if limiting < 0 || n < av.CanMake {
			av.CanMake = n
			limiting = i
		}
	}

	if av.CanMake < requested {
		lm := av.Materials[limiting]
		av.LimitingMaterial = &lm
	}
	return av
}

// amountFor needed * qty без накопления ошибок float.
func amountFor(needed float64, qty int) decimal.Decimal {
	return decimal.NewFromFloat(needed).Mul(decimal.NewFromInt(int64(qty)))
}
