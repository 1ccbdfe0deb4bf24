package materials

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInUse материал входит в состав продукта.
var ErrInUse = errors.New("materials: material is used in product composition")

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const selectCols = `id, name, quantity, unit, min_quantity, price_per_unit, cost_price, created_at`

// Scan общий сканер строки materials (используется и в транзакциях склада).
func Scan(row pgx.Row) (*Material, error) {
	var m Material
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Quantity,
		&m.Unit,
		&m.MinQuantity,
		&m.PricePerUnit,
		&m.CostPrice,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

/* Materials CRUD */

func (r *Repo) Create(ctx context.Context, m Material) (*Material, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO materials (name, quantity, unit, min_quantity, price_per_unit, cost_price)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+selectCols, m.Name, m.Quantity, string(m.Unit), m.MinQuantity, m.PricePerUnit, m.CostPrice)
	return Scan(row)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Material, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectCols+` FROM materials WHERE id = $1`, id)
	m, err := Scan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// List с фильтром низкого остатка и поиском по части названия без учёта регистра.
func (r *Repo) List(ctx context.Context, f Filter) ([]Material, error) {
	q := `SELECT ` + selectCols + ` FROM materials WHERE TRUE`
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+strings.ToLower(s)+"%")
		q += " AND LOWER(name) LIKE $1"
	}
	if f.OnlyLowStock {
		q += " AND quantity <= COALESCE(min_quantity, 0)"
	}
	q += " ORDER BY name, id"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		m, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// PatchQuery частичное обновление материала, nil-поля не меняются.
// $1 = id, $2..$5 = name, min_quantity, price_per_unit, cost_price.
const PatchQuery = `
	UPDATE materials SET
		name           = COALESCE($2, name),
		min_quantity   = COALESCE($3, min_quantity),
		price_per_unit = COALESCE($4, price_per_unit),
		cost_price     = COALESCE($5, cost_price)
	WHERE id = $1`

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return false, ErrInUse
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM materials`).Scan(&n)
	return n, err
}

func (r *Repo) GetByName(ctx context.Context, name string) (*Material, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectCols+` FROM materials WHERE name = $1 ORDER BY id LIMIT 1`, name)
	m, err := Scan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}
