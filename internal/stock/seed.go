package stock

import (
	"context"
	"fmt"

	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/domain/products"
)

type sample struct {
	name  string
	qty   float64
	unit  materials.Unit
	min   float64
	price float64
}

var sampleFlowers = []sample{
	{"Роза красная", 100, materials.UnitPcs, 20, 300},
	{"Роза розовая", 80, materials.UnitPcs, 20, 300},
	{"Роза белая", 60, materials.UnitPcs, 15, 320},
	{"Эустома белая", 40, materials.UnitPcs, 10, 250},
	{"Эустома розовая", 35, materials.UnitPcs, 10, 250},
	{"Хризантема белая", 50, materials.UnitPcs, 15, 200},
	{"Гербера красная", 30, materials.UnitPcs, 10, 280},
	{"Тюльпан", 0, materials.UnitPcs, 30, 150}, // сезонный
	{"Пион", 0, materials.UnitPcs, 20, 500},    // сезонный
	{"Гипсофила", 20, materials.UnitBranch, 10, 150},
	{"Эвкалипт", 25, materials.UnitBranch, 10, 180},
	{"Рускус", 30, materials.UnitBranch, 10, 120},
}

var samplePackaging = []sample{
	{"Крафт-бумага", 50, materials.UnitMeter, 10, 200},
	{"Пленка прозрачная", 30, materials.UnitMeter, 10, 150},
	{"Лента атласная", 100, materials.UnitMeter, 20, 50},
	{"Коробка малая", 15, materials.UnitPcs, 5, 500},
	{"Коробка средняя", 10, materials.UnitPcs, 5, 700},
	{"Коробка большая", 5, materials.UnitPcs, 3, 1000},
	{"Оазис (флористическая губка)", 20, materials.UnitPcs, 5, 300},
	{"Корзина плетеная малая", 8, materials.UnitPcs, 3, 1500},
	{"Корзина плетеная большая", 5, materials.UnitPcs, 2, 2500},
}

const SampleSKU = "BUQ-001"

// состав букета «Нежность» на 1 шт
var sampleComposition = []struct {
	material string
	needed   float64
}{
	{"Роза розовая", 15},
	{"Эустома белая", 10},
	{"Эвкалипт", 3},
	{"Крафт-бумага", 0.5},
	{"Лента атласная", 0.3},
}

type SeedResult struct {
	Created     bool
	Existing    int
	Flowers     int
	Packaging   int
	ProductID   int64
	Composition int
}

// SeedSamples заполняет пустой склад примерами. Если материалы уже есть, ничего не делает.
func (s *Service) SeedSamples(ctx context.Context) (*SeedResult, error) {
	n, err := s.materials.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count materials: %w", err)
	}
	if n > 0 {
		return &SeedResult{Existing: n}, nil
	}

	for _, group := range [][]sample{sampleFlowers, samplePackaging} {
		for _, it := range group {
			minQty, price := it.min, it.price
			if _, err := s.materials.Create(ctx, materials.Material{
				Name:         it.name,
				Quantity:     it.qty,
				Unit:         it.unit,
				MinQuantity:  &minQty,
				PricePerUnit: &price,
			}); err != nil {
				return nil, fmt.Errorf("seed material %q: %w", it.name, err)
			}
		}
	}
	res := &SeedResult{Created: true, Flowers: len(sampleFlowers), Packaging: len(samplePackaging)}

	p, err := s.products.GetBySKU(ctx, SampleSKU)
	if err != nil {
		return nil, fmt.Errorf("get product by sku: %w", err)
	}
	if p == nil {
		p, err = s.products.Create(ctx, products.Product{
			SKU:         SampleSKU,
			Name:        "Букет «Нежность»",
			Description: "Розовые розы, белая эустома и эвкалипт в крафте",
			Type:        products.TypeBouquet,
			BasePrice:   7500,
			IsActive:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("seed product: %w", err)
		}
	}
	res.ProductID = p.ID

	in := make([]products.ComponentInput, 0, len(sampleComposition))
	for _, c := range sampleComposition {
		m, err := s.materials.GetByName(ctx, c.material)
		if err != nil {
			return nil, fmt.Errorf("get material %q: %w", c.material, err)
		}
		if m == nil {
			return res, nil
		}
		in = append(in, products.ComponentInput{MaterialID: m.ID, QuantityNeeded: c.needed, Unit: m.Unit})
	}
	if err := s.products.SetComposition(ctx, p.ID, in); err != nil {
		return nil, fmt.Errorf("seed composition: %w", err)
	}
	res.Composition = len(in)

	s.log.Info("sample inventory created",
		"flowers", res.Flowers, "packaging", res.Packaging, "product_id", res.ProductID)
	return res, nil
}
