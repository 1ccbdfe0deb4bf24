package inventory

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/Spok95/florist-stock/internal/domain/audits"
	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/domain/products"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxTxAttempts = 3
	retryBackoff  = 50 * time.Millisecond
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// WithinTx выполняет fn в одной транзакции. Конфликты сериализации и дедлоки
// (40001, 40P01) повторяются; fn должна быть готова к повторному вызову.
func (r *Repo) WithinTx(ctx context.Context, fn func(Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = r.runTx(ctx, fn)
		if err == nil || !isTransient(err) || attempt == maxTxAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return err
}

func (r *Repo) runTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", // serialization_failure
		"40P01": // deadlock_detected
		return true
	}
	return false
}

// Movements журнал по материалу, новые сверху.
func (r *Repo) Movements(ctx context.Context, materialID int64) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, material_id, type, qty, COALESCE(comment,''), COALESCE(ref_type,''), COALESCE(ref_id,''), created_at
		FROM movements
		WHERE material_id = $1
		ORDER BY created_at DESC, id DESC
	`, materialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var mv Movement
		if err := rows.Scan(&mv.ID, &mv.MaterialID, &mv.Type, &mv.Quantity, &mv.Comment,
			&mv.ReferenceType, &mv.ReferenceID, &mv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) Components(ctx context.Context, productID int64) ([]products.Component, error) {
	rows, err := t.tx.Query(ctx, products.ComponentsQuery, productID)
	if err != nil {
		return nil, err
	}
	return products.ScanComponents(rows)
}

func (t *pgTx) Lock(ctx context.Context, ids ...int64) (map[int64]materials.Material, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	out := make(map[int64]materials.Material, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, quantity, unit, min_quantity, price_per_unit, cost_price, created_at
		FROM materials
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m, err := materials.Scan(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = *m
	}
	return out, rows.Err()
}

func (t *pgTx) SetQuantity(ctx context.Context, materialID int64, qty float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE materials SET quantity = $2 WHERE id = $1`, materialID, qty)
	return err
}

func (t *pgTx) Patch(ctx context.Context, materialID int64, p materials.Patch) error {
	_, err := t.tx.Exec(ctx, materials.PatchQuery, materialID, p.Name, p.MinQuantity, p.PricePerUnit, p.CostPrice)
	return err
}

func (t *pgTx) Record(ctx context.Context, mv Movement) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO movements (material_id, type, qty, comment, ref_type, ref_id)
		VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),NULLIF($6,''))
	`, mv.MaterialID, string(mv.Type), mv.Quantity, mv.Comment, mv.ReferenceType, mv.ReferenceID)
	return err
}

func (t *pgTx) LockAudit(ctx context.Context, auditID int64) (*audits.Audit, error) {
	var a audits.Audit
	err := t.tx.QueryRow(ctx, `
		SELECT id, status, COALESCE(notes,''), created_at, completed_at
		FROM audits WHERE id = $1
		FOR UPDATE
	`, auditID).Scan(&a.ID, &a.Status, &a.Notes, &a.CreatedAt, &a.CompletedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rows, err := t.tx.Query(ctx, audits.ItemsQuery, auditID)
	if err != nil {
		return nil, err
	}
	if a.Items, err = audits.ScanItems(rows); err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *pgTx) CloseAudit(ctx context.Context, auditID int64, status audits.Status) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE audits SET status = $2, completed_at = NOW() WHERE id = $1
	`, auditID, string(status))
	return err
}
