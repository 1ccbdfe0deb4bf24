package audits

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInProgress уже есть незавершённая инвентаризация.
var ErrInProgress = errors.New("audits: audit already in progress")

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Start создаёт инвентаризацию и снимок остатков всех материалов.
func (r *Repo) Start(ctx context.Context, notes string) (*Audit, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// частичный уникальный индекс audits_one_in_progress не даст второй in_progress
	var a Audit
	err = tx.QueryRow(ctx, `
		INSERT INTO audits (status, notes) VALUES ('in_progress', $1)
		ON CONFLICT DO NOTHING
		RETURNING id, status, COALESCE(notes,''), created_at, completed_at
	`, notes).Scan(&a.ID, &a.Status, &a.Notes, &a.CreatedAt, &a.CompletedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrInProgress
	}
	if err != nil {
		return nil, err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO audit_items (audit_id, material_id, system_quantity)
		SELECT $1, id, quantity FROM materials
	`, a.ID); err != nil {
		return nil, err
	}

	items, err := loadItems(ctx, tx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Items = items
	return &a, tx.Commit(ctx)
}

// Current последняя незавершённая инвентаризация; nil, nil если нет.
func (r *Repo) Current(ctx context.Context) (*Audit, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM audits WHERE status = 'in_progress' ORDER BY created_at DESC LIMIT 1
	`).Scan(&id)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Audit, error) {
	var a Audit
	err := r.pool.QueryRow(ctx, `
		SELECT id, status, COALESCE(notes,''), created_at, completed_at FROM audits WHERE id = $1
	`, id).Scan(&a.ID, &a.Status, &a.Notes, &a.CreatedAt, &a.CompletedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	items, err := loadItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	a.Items = items
	return &a, nil
}

// SetCounts сохраняет фактические количества; возвращает число обновлённых позиций.
func (r *Repo) SetCounts(ctx context.Context, auditID int64, counts map[int64]float64) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated := 0
	for materialID, actual := range counts {
		tag, err := tx.Exec(ctx, `
			UPDATE audit_items
			SET actual_quantity = $3, difference = $3 - system_quantity
			WHERE audit_id = $1 AND material_id = $2
		`, auditID, materialID, actual)
		if err != nil {
			return 0, err
		}
		updated += int(tag.RowsAffected())
	}
	return updated, tx.Commit(ctx)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ItemsQuery позиции инвентаризации. $1 = audit_id.
const ItemsQuery = `
	SELECT i.id, i.audit_id, i.material_id, m.name, m.unit, i.system_quantity, i.actual_quantity, i.difference
	FROM audit_items i
	JOIN materials m ON m.id = i.material_id
	WHERE i.audit_id = $1
	ORDER BY m.name, i.id
`

func loadItems(ctx context.Context, q querier, auditID int64) ([]Item, error) {
	rows, err := q.Query(ctx, ItemsQuery, auditID)
	if err != nil {
		return nil, err
	}
	return ScanItems(rows)
}

func ScanItems(rows pgx.Rows) ([]Item, error) {
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.AuditID, &it.MaterialID, &it.MaterialName, &it.Unit,
			&it.SystemQuantity, &it.ActualQuantity, &it.Difference); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
