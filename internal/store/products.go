package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Product is a starter bundle: a starter type at a motor rating with a
// composed parts list.
type Product struct {
	ID          int64              `json:"id"`
	StarterType string             `json:"starter_type"`
	RatingKW    decimal.Decimal    `json:"rating_kw"`
	Price       decimal.Decimal    `json:"price"`
	IsActive    bool               `json:"is_active"`
	CreatedAt   time.Time          `json:"created_at"`
	Components  []ProductComponent `json:"components,omitempty"`
}

// ProductComponent is one part inside a bundle. Name, brand and model are
// denormalized so historic bundles survive catalog edits.
type ProductComponent struct {
	ID          int64           `json:"id"`
	ComponentID *int64          `json:"component_id,omitempty"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// ProductComponentInput carries one composition entry on bundle writes.
type ProductComponentInput struct {
	ComponentID *int64
	Name        string
	Brand       string
	Model       string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// ProductInput carries the writable bundle fields. Price is always derived
// from the composition, never accepted from the caller.
type ProductInput struct {
	StarterType string
	RatingKW    decimal.Decimal
	IsActive    bool
	Components  []ProductComponentInput
}

// ProductFilter narrows bundle listings.
type ProductFilter struct {
	StarterType string
	RatingKW    *decimal.Decimal
	OnlyActive  bool
}

// ProductStore persists starter bundles and their composition.
type ProductStore struct {
	Pool *pgxpool.Pool
}

const productColumns = `id, starter_type, rating_kw::text, price::text, is_active, created_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (Product, error) {
	var (
		p             Product
		rating, price string
	)
	if err := row.Scan(&p.ID, &p.StarterType, &rating, &price, &p.IsActive, &p.CreatedAt); err != nil {
		return Product{}, err
	}
	var err error
	if p.RatingKW, err = parseMoney(rating); err != nil {
		return Product{}, err
	}
	p.Price, err = parseMoney(price)
	return p, err
}

// List returns bundles matching the filter, composition included.
func (s ProductStore) List(ctx context.Context, f ProductFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []any{}
	if f.OnlyActive {
		query += ` AND is_active`
	}
	if f.StarterType != "" {
		args = append(args, f.StarterType)
		query += ` AND starter_type = $1`
	}
	if f.RatingKW != nil {
		args = append(args, f.RatingKW.String())
		if len(args) == 1 {
			query += ` AND rating_kw = $1::numeric`
		} else {
			query += ` AND rating_kw = $2::numeric`
		}
	}
	query += ` ORDER BY starter_type, rating_kw`

	rows, err := s.Pool.Query(ctx, query, args...)
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
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Components, err = s.components(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Get returns one bundle with its composition.
func (s ProductStore) Get(ctx context.Context, id int64) (Product, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, err
	}
	p.Components, err = s.components(ctx, p.ID)
	return p, err
}

func (s ProductStore) components(ctx context.Context, productID int64) ([]ProductComponent, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, component_id, name, brand, model, quantity, unit_price::text
		FROM product_components
		WHERE product_id = $1
		ORDER BY id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductComponent
	for rows.Next() {
		var (
			c     ProductComponent
			price string
		)
		if err := rows.Scan(&c.ID, &c.ComponentID, &c.Name, &c.Brand, &c.Model, &c.Quantity, &price); err != nil {
			return nil, err
		}
		if c.UnitPrice, err = parseMoney(price); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a bundle with its composition in one transaction. The
// stored price is the sum of unit price times quantity over the parts.
func (s ProductStore) Create(ctx context.Context, in ProductInput) (Product, error) {
	var p Product
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO products (starter_type, rating_kw, price, is_active)
			VALUES ($1, $2::numeric, $3::numeric, $4)
			RETURNING `+productColumns,
			in.StarterType, in.RatingKW.String(), money(bundlePrice(in.Components)), in.IsActive)
		var err error
		if p, err = scanProduct(row); err != nil {
			return err
		}
		return insertComposition(ctx, tx, p.ID, in.Components)
	})
	if err != nil {
		return Product{}, mapConstraintErr(err)
	}
	p.Components, err = s.components(ctx, p.ID)
	return p, err
}

// Update rewrites a bundle and replaces its entire composition.
func (s ProductStore) Update(ctx context.Context, id int64, in ProductInput) (Product, error) {
	var p Product
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE products
			SET starter_type = $2, rating_kw = $3::numeric, price = $4::numeric, is_active = $5
			WHERE id = $1
			RETURNING `+productColumns,
			id, in.StarterType, in.RatingKW.String(), money(bundlePrice(in.Components)), in.IsActive)
		var err error
		if p, err = scanProduct(row); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_components WHERE product_id = $1`, id); err != nil {
			return err
		}
		return insertComposition(ctx, tx, id, in.Components)
	})
	if err != nil {
		return Product{}, mapConstraintErr(err)
	}
	p.Components, err = s.components(ctx, p.ID)
	return p, err
}

// Delete removes a bundle and its composition.
func (s ProductStore) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, mapConstraintErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s ProductStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertComposition(ctx context.Context, tx pgx.Tx, productID int64, comps []ProductComponentInput) error {
	for _, c := range comps {
		qty := c.Quantity
		if qty < 1 {
			qty = 1
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO product_components (product_id, component_id, name, brand, model, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7::numeric)`,
			productID, c.ComponentID, c.Name, c.Brand, c.Model, qty, money(c.UnitPrice)); err != nil {
			return err
		}
	}
	return nil
}

func bundlePrice(comps []ProductComponentInput) decimal.Decimal {
	total := decimal.Zero
	for _, c := range comps {
		qty := c.Quantity
		if qty < 1 {
			qty = 1
		}
		total = total.Add(c.UnitPrice.Mul(decimal.NewFromInt(int64(qty))))
	}
	return total
}
