package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/Spok95/florist-stock/internal/domain/audits"
)

type AuditRepo struct{ s *Store }

func (r *AuditRepo) Start(_ context.Context, notes string) (*audits.Audit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.audits {
		if a.audit.Status == audits.StatusInProgress {
			return nil, audits.ErrInProgress
		}
	}

	row := &auditRow{audit: audits.Audit{
		ID:        r.s.nextID(),
		Status:    audits.StatusInProgress,
		Notes:     notes,
		CreatedAt: r.s.now(),
	}}
	for _, m := range r.s.materials {
		row.items = append(row.items, audits.Item{
			ID:             r.s.nextID(),
			AuditID:        row.audit.ID,
			MaterialID:     m.ID,
			SystemQuantity: m.Quantity,
		})
	}
	r.s.audits[row.audit.ID] = row

	a := r.s.auditView(row)
	return &a, nil
}

func (r *AuditRepo) Current(_ context.Context) (*audits.Audit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var cur *auditRow
	for _, a := range r.s.audits {
		if a.audit.Status != audits.StatusInProgress {
			continue
		}
		if cur == nil || a.audit.ID > cur.audit.ID {
			cur = a
		}
	}
	if cur == nil {
		return nil, nil
	}
	a := r.s.auditView(cur)
	return &a, nil
}

func (r *AuditRepo) GetByID(_ context.Context, id int64) (*audits.Audit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.audits[id]
	if !ok {
		return nil, nil
	}
	a := r.s.auditView(row)
	return &a, nil
}

func (r *AuditRepo) SetCounts(_ context.Context, auditID int64, counts map[int64]float64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.audits[auditID]
	if !ok {
		return 0, nil
	}
	updated := 0
	for i := range row.items {
		if actual, ok := counts[row.items[i].MaterialID]; ok {
			row.items[i].Count(actual)
			updated++
		}
	}
	return updated, nil
}

// auditView копия инвентаризации с позициями в порядке названия материала; под s.mu.
func (s *Store) auditView(row *auditRow) audits.Audit {
	a := row.audit
	a.Items = make([]audits.Item, 0, len(row.items))
	for _, it := range row.items {
		m, ok := s.materials[it.MaterialID]
		if !ok {
			continue
		}
		it.MaterialName = m.Name
		it.Unit = string(m.Unit)
		it.ActualQuantity = clonePtr(it.ActualQuantity)
		it.Difference = clonePtr(it.Difference)
		a.Items = append(a.Items, it)
	}
	slices.SortFunc(a.Items, func(x, y audits.Item) int {
		return cmp.Or(cmp.Compare(x.MaterialName, y.MaterialName), cmp.Compare(x.ID, y.ID))
	})
	return a
}
