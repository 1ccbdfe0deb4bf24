package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/Spok95/florist-stock/internal/domain/audits"
	"github.com/Spok95/florist-stock/internal/domain/inventory"
	"github.com/Spok95/florist-stock/internal/domain/materials"
)

type MaterialRepo struct{ s *Store }

func byName(a, b materials.Material) int {
	return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
}

func (r *MaterialRepo) Create(_ context.Context, m materials.Material) (*materials.Material, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m = cloneMaterial(m)
	m.ID = r.s.nextID()
	m.CreatedAt = r.s.now()
	r.s.materials[m.ID] = m
	out := cloneMaterial(m)
	return &out, nil
}

func (r *MaterialRepo) GetByID(_ context.Context, id int64) (*materials.Material, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.materials[id]
	if !ok {
		return nil, nil
	}
	m = cloneMaterial(m)
	return &m, nil
}

func (r *MaterialRepo) GetByName(_ context.Context, name string) (*materials.Material, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var found *materials.Material
	for _, m := range r.s.materials {
		if m.Name == name && (found == nil || m.ID < found.ID) {
			c := cloneMaterial(m)
			found = &c
		}
	}
	return found, nil
}

func (r *MaterialRepo) List(_ context.Context, f materials.Filter) ([]materials.Material, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []materials.Material
	for _, m := range r.s.materials {
		if search != "" && !strings.Contains(strings.ToLower(m.Name), search) {
			continue
		}
		if f.OnlyLowStock && !m.IsLowStock() {
			continue
		}
		out = append(out, cloneMaterial(m))
	}
	slices.SortFunc(out, byName)
	return out, nil
}

func (r *MaterialRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.materials[id]; !ok {
		return false, nil
	}
	for _, rows := range r.s.components {
		for _, c := range rows {
			if c.MaterialID == id {
				return false, materials.ErrInUse
			}
		}
	}
	delete(r.s.materials, id)

	// каскад: журнал и позиции инвентаризаций
	r.s.movements = slices.DeleteFunc(r.s.movements, func(mv inventory.Movement) bool { return mv.MaterialID == id })
	for _, a := range r.s.audits {
		a.items = slices.DeleteFunc(a.items, func(it audits.Item) bool { return it.MaterialID == id })
	}
	return true, nil
}

func (r *MaterialRepo) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.materials), nil
}
