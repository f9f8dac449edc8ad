package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Component is a purchasable catalog part.
type Component struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	Price     decimal.Decimal `json:"price"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// ComponentInput carries the writable component fields.
type ComponentInput struct {
	Name     string
	Brand    string
	Model    string
	Price    decimal.Decimal
	IsActive bool
}

// ComponentStore persists catalog components.
type ComponentStore struct {
	Pool *pgxpool.Pool
}

const componentColumns = `id, name, brand, model, price::text, is_active, created_at`

func scanComponent(row interface{ Scan(dest ...any) error }) (Component, error) {
	var (
		c     Component
		price string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Brand, &c.Model, &price, &c.IsActive, &c.CreatedAt); err != nil {
		return Component{}, err
	}
	var err error
	c.Price, err = parseMoney(price)
	return c, err
}

// List returns components, optionally restricted to active ones.
func (s ComponentStore) List(ctx context.Context, onlyActive bool) ([]Component, error) {
	query := `SELECT ` + componentColumns + ` FROM components ORDER BY name, brand, model`
	if onlyActive {
		query = `SELECT ` + componentColumns + ` FROM components WHERE is_active ORDER BY name, brand, model`
	}
	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectComponents(rows)
}

// Search matches active components by name, brand or model prefix/substring.
func (s ComponentStore) Search(ctx context.Context, q string, limit int) ([]Component, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+componentColumns+`
		FROM components
		WHERE is_active
		  AND (name ILIKE '%' || $1 || '%' OR brand ILIKE '%' || $1 || '%' OR model ILIKE '%' || $1 || '%')
		ORDER BY name, brand, model
		LIMIT $2`, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectComponents(rows)
}

// Get returns a single component by id.
func (s ComponentStore) Get(ctx context.Context, id int64) (Component, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+componentColumns+` FROM components WHERE id = $1`, id)
	return scanComponent(row)
}

// Create inserts a component. Identity is (name, brand, model).
func (s ComponentStore) Create(ctx context.Context, in ComponentInput) (Component, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO components (name, brand, model, price, is_active)
		VALUES ($1, $2, $3, $4::numeric, $5)
		RETURNING `+componentColumns,
		in.Name, in.Brand, in.Model, money(in.Price), in.IsActive)
	c, err := scanComponent(row)
	if err != nil {
		return Component{}, mapConstraintErr(err)
	}
	return c, nil
}

// Update rewrites all writable fields of a component.
func (s ComponentStore) Update(ctx context.Context, id int64, in ComponentInput) (Component, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE components
		SET name = $2, brand = $3, model = $4, price = $5::numeric, is_active = $6
		WHERE id = $1
		RETURNING `+componentColumns,
		id, in.Name, in.Brand, in.Model, money(in.Price), in.IsActive)
	c, err := scanComponent(row)
	if err != nil {
		return Component{}, mapConstraintErr(err)
	}
	return c, nil
}

// Delete removes a component. Fails with ErrReferenced while any bundle
// still uses it.
func (s ComponentStore) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM components WHERE id = $1`, id)
	if err != nil {
		return false, mapConstraintErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func collectComponents(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Component, error) {
	var out []Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
