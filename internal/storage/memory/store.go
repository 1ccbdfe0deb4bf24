// Package memory хранилище склада в памяти процесса (storage.driver=memory, тесты).
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Spok95/florist-stock/internal/domain/audits"
	"github.com/Spok95/florist-stock/internal/domain/inventory"
	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/domain/products"
)

type componentRow struct {
	id int64
	products.ComponentInput
}

type auditRow struct {
	audit audits.Audit // без Items
	items []audits.Item
}

// Store все данные под одним мьютексом. Транзакция держит его до конца,
// записи копятся в tx и применяются только при успешном завершении.
type Store struct {
	mu sync.Mutex

	materials  map[int64]materials.Material
	products   map[int64]products.Product
	components map[int64][]componentRow // по product_id
	audits     map[int64]*auditRow
	movements  []inventory.Movement

	lastID int64
	now    func() time.Time
}

func New() *Store {
	return &Store{
		materials:  make(map[int64]materials.Material),
		products:   make(map[int64]products.Product),
		components: make(map[int64][]componentRow),
		audits:     make(map[int64]*auditRow),
		now:        time.Now,
	}
}

func (s *Store) Materials() *MaterialRepo { return &MaterialRepo{s: s} }
func (s *Store) Products() *ProductRepo   { return &ProductRepo{s: s} }
func (s *Store) Audits() *AuditRepo       { return &AuditRepo{s: s} }

func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMaterial(m materials.Material) materials.Material {
	m.MinQuantity = clonePtr(m.MinQuantity)
	m.PricePerUnit = clonePtr(m.PricePerUnit)
	m.CostPrice = clonePtr(m.CostPrice)
	return m
}

// WithinTx fn не должна обращаться к репозиториям этого Store: мьютекс уже занят.
func (s *Store) WithinTx(ctx context.Context, fn func(inventory.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:      s,
		qty:     make(map[int64]float64),
		patches: make(map[int64][]materials.Patch),
		closed:  make(map[int64]audits.Status),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) Movements(_ context.Context, materialID int64) ([]inventory.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []inventory.Movement
	for i := len(s.movements) - 1; i >= 0; i-- {
		if s.movements[i].MaterialID == materialID {
			out = append(out, s.movements[i])
		}
	}
	return out, nil
}

type memTx struct {
	s       *Store
	qty     map[int64]float64
	patches map[int64][]materials.Patch
	moves   []inventory.Movement
	closed  map[int64]audits.Status
}

func (t *memTx) material(id int64) (materials.Material, bool) {
	m, ok := t.s.materials[id]
	if !ok {
		return m, false
	}
	m = cloneMaterial(m)
	for _, p := range t.patches[id] {
		m = p.Apply(m)
	}
	if q, staged := t.qty[id]; staged {
		m.Quantity = q
	}
	return m, true
}

func (t *memTx) Components(_ context.Context, productID int64) ([]products.Component, error) {
	return t.s.componentsOf(productID, t.material), nil
}

func (t *memTx) Lock(_ context.Context, ids ...int64) (map[int64]materials.Material, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	out := make(map[int64]materials.Material, len(ids))
	for _, id := range slices.Compact(ids) {
		if m, ok := t.material(id); ok {
			out[id] = m
		}
	}
	return out, nil
}

func (t *memTx) SetQuantity(_ context.Context, materialID int64, qty float64) error {
	if _, ok := t.s.materials[materialID]; ok {
		t.qty[materialID] = qty
	}
	return nil
}

func (t *memTx) Patch(_ context.Context, materialID int64, p materials.Patch) error {
	if _, ok := t.s.materials[materialID]; ok {
		t.patches[materialID] = append(t.patches[materialID], p)
	}
	return nil
}

func (t *memTx) Record(_ context.Context, mv inventory.Movement) error {
	t.moves = append(t.moves, mv)
	return nil
}

func (t *memTx) LockAudit(_ context.Context, auditID int64) (*audits.Audit, error) {
	row, ok := t.s.audits[auditID]
	if !ok {
		return nil, nil
	}
	a := t.s.auditView(row)
	if st, staged := t.closed[auditID]; staged {
		a.Status = st
	}
	return &a, nil
}

func (t *memTx) CloseAudit(_ context.Context, auditID int64, status audits.Status) error {
	if _, ok := t.s.audits[auditID]; ok {
		t.closed[auditID] = status
	}
	return nil
}

func (t *memTx) commit() {
	s := t.s
	for id, ps := range t.patches {
		m := s.materials[id]
		for _, p := range ps {
			m = p.Apply(m)
		}
		s.materials[id] = m
	}
	for id, q := range t.qty {
		m := s.materials[id]
		m.Quantity = q
		s.materials[id] = m
	}
	now := s.now()
	for _, mv := range t.moves {
		mv.ID = s.nextID()
		mv.CreatedAt = now
		s.movements = append(s.movements, mv)
	}
	for id, st := range t.closed {
		row := s.audits[id]
		row.audit.Status = st
		row.audit.CompletedAt = &now
	}
}
