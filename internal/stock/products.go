package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/florist-stock/internal/domain/products"
)

func (s *Service) CreateProduct(ctx context.Context, p products.Product) (*products.Product, error) {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	if p.SKU == "" || p.Name == "" {
		return nil, invalidf("sku and name are required")
	}
	if !finite(p.BasePrice) || p.BasePrice < 0 {
		return nil, invalidf("base_price must be >= 0")
	}
	if p.Type == "" {
		p.Type = products.TypeBouquet
	}

	existing, err := s.products.GetBySKU(ctx, p.SKU)
	if err != nil {
		return nil, fmt.Errorf("get product by sku: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: sku %q already exists", ErrConflict, p.SKU)
	}

	created, err := s.products.Create(ctx, p)
	if errors.Is(err, products.ErrDuplicateSKU) {
		return nil, fmt.Errorf("%w: sku %q already exists", ErrConflict, p.SKU)
	}
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.log.Info("product created", "product_id", created.ID, "sku", created.SKU)
	return created, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*products.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, notFoundf("product %d", id)
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]products.Product, error) {
	list, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return list, nil
}

// Composition состав продукта с текущими остатками и стоимостью.
func (s *Service) Composition(ctx context.Context, productID int64) ([]products.Component, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	cs, err := s.products.Components(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get composition: %w", err)
	}
	return cs, nil
}

// SetComposition заменяет состав продукта целиком.
func (s *Service) SetComposition(ctx context.Context, productID int64, in []products.ComponentInput) ([]products.Component, error) {
	for i, c := range in {
		if !finite(c.QuantityNeeded) || c.QuantityNeeded <= 0 {
			return nil, invalidf("component %d: quantity_needed must be positive", i)
		}
	}
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	rows := make([]products.ComponentInput, len(in))
	for i, c := range in {
		m, err := s.GetMaterial(ctx, c.MaterialID)
		if err != nil {
			return nil, err
		}
		if c.Unit == "" {
			c.Unit = m.Unit
		}
		rows[i] = c
	}

	if err := s.products.SetComposition(ctx, productID, rows); err != nil {
		return nil, fmt.Errorf("set composition: %w", err)
	}
	s.log.Info("composition updated", "product_id", productID, "components", len(rows))
	return s.Composition(ctx, productID)
}
