package products

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateSKU продукт с таким артикулом уже есть.
var ErrDuplicateSKU = errors.New("products: duplicate sku")

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const productCols = `id, sku, name, description, product_type, base_price, is_active, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Type, &p.BasePrice, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Create(ctx context.Context, p Product) (*Product, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (sku, name, description, product_type, base_price, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+productCols, p.SKU, p.Name, p.Description, string(p.Type), p.BasePrice, p.IsActive)
	created, err := scanProduct(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, ErrDuplicateSKU
		}
		return nil, err
	}
	return created, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *Repo) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE sku = $1`, sku))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ComponentsQuery состав продукта с проекцией материала. $1 = product_id.
const ComponentsQuery = `
	SELECT c.id, c.product_id, c.material_id, c.quantity_needed, COALESCE(c.unit,''), c.is_optional, COALESCE(c.notes,''),
	       m.id, m.name, m.quantity, m.unit, m.min_quantity, m.price_per_unit, m.cost_price, m.created_at
	FROM product_components c
	JOIN materials m ON m.id = c.material_id
	WHERE c.product_id = $1
	ORDER BY c.id
`

// ScanComponents читает результат ComponentsQuery.
func ScanComponents(rows pgx.Rows) ([]Component, error) {
	defer rows.Close()
	var out []Component
	for rows.Next() {
		var c Component
		if err := rows.Scan(
			&c.ID, &c.ProductID, &c.MaterialID, &c.QuantityNeeded, &c.Unit, &c.IsOptional, &c.Notes,
			&c.Material.ID, &c.Material.Name, &c.Material.Quantity, &c.Material.Unit,
			&c.Material.MinQuantity, &c.Material.PricePerUnit, &c.Material.CostPrice, &c.Material.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) Components(ctx context.Context, productID int64) ([]Component, error) {
	rows, err := r.pool.Query(ctx, ComponentsQuery, productID)
	if err != nil {
		return nil, err
	}
	return ScanComponents(rows)
}

// SetComposition заменяет состав продукта целиком в одной транзакции.
// Существование продукта и материалов проверяет сервис, в базе есть FK.
func (r *Repo) SetComposition(ctx context.Context, productID int64, in []ComponentInput) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `DELETE FROM product_components WHERE product_id = $1`, productID); err != nil {
		return err
	}
	for _, c := range in {
		if _, err = tx.Exec(ctx, `
			INSERT INTO product_components (product_id, material_id, quantity_needed, unit, is_optional, notes)
			VALUES ($1,$2,$3,NULLIF($4,''),$5,NULLIF($6,''))
		`, productID, c.MaterialID, c.QuantityNeeded, string(c.Unit), c.IsOptional, c.Notes); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
