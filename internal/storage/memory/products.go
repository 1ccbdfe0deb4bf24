package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/domain/products"
)

type ProductRepo struct{ s *Store }

func (r *ProductRepo) Create(_ context.Context, p products.Product) (*products.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, ex := range r.s.products {
		if ex.SKU == p.SKU {
			return nil, products.ErrDuplicateSKU
		}
	}
	p.ID = r.s.nextID()
	p.CreatedAt = r.s.now()
	r.s.products[p.ID] = p
	return &p, nil
}

func (r *ProductRepo) GetByID(_ context.Context, id int64) (*products.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ProductRepo) GetBySKU(_ context.Context, sku string) (*products.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *ProductRepo) List(_ context.Context) ([]products.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]products.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b products.Product) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r *ProductRepo) Components(_ context.Context, productID int64) ([]products.Component, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.componentsOf(productID, func(id int64) (materials.Material, bool) {
		m, ok := r.s.materials[id]
		return cloneMaterial(m), ok
	}), nil
}

func (r *ProductRepo) SetComposition(_ context.Context, productID int64, in []products.ComponentInput) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := make([]componentRow, 0, len(in))
	for _, c := range in {
		rows = append(rows, componentRow{id: r.s.nextID(), ComponentInput: c})
	}
	if len(rows) == 0 {
		delete(r.s.components, productID)
		return nil
	}
	r.s.components[productID] = rows
	return nil
}

// componentsOf состав с проекцией материала; вызывается под s.mu.
func (s *Store) componentsOf(productID int64, material func(int64) (materials.Material, bool)) []products.Component {
	rows := s.components[productID]
	out := make([]products.Component, 0, len(rows))
	for _, row := range rows {
		m, ok := material(row.MaterialID)
		if !ok {
			continue
		}
		out = append(out, products.Component{
			ID:             row.id,
			ProductID:      productID,
			MaterialID:     row.MaterialID,
			QuantityNeeded: row.QuantityNeeded,
			Unit:           row.Unit,
			IsOptional:     row.IsOptional,
			Notes:          row.Notes,
			Material:       m,
		})
	}
	return out
}
