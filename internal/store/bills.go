package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Bill is a persisted order with frozen totals. OwnerEmail is only
// populated by ListAll for the admin view.
type Bill struct {
	ID             int64           `json:"id"`
	BillNumber     string          `json:"bill_number"`
	UserID         int64           `json:"user_id"`
	OwnerEmail     string          `json:"owner_email,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	Notes          string          `json:"notes"`
	CreatedAt      time.Time       `json:"created_at"`
	Items          []BillItem      `json:"items,omitempty"`
}

// BillItem is one bundle line frozen onto a bill.
type BillItem struct {
	ID          int64           `json:"id"`
	ProductID   *int64          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	StarterType string          `json:"starter_type"`
	RatingKW    decimal.Decimal `json:"rating_kw"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// NewBill carries everything needed to persist a bill atomically.
type NewBill struct {
	BillNumber     string
	UserID         int64
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	Notes          string
	Items          []BillItem
}

// BillStore persists bills and their line items.
type BillStore struct {
	Pool *pgxpool.Pool
}

const billColumns = `id, bill_number, user_id, subtotal::text, discount_amount::text, total::text, notes, created_at`

func scanBill(row interface{ Scan(dest ...any) error }) (Bill, error) {
	var (
		b                   Bill
		sub, discount, total string
	)
	if err := row.Scan(&b.ID, &b.BillNumber, &b.UserID, &sub, &discount, &total, &b.Notes, &b.CreatedAt); err != nil {
		return Bill{}, err
	}
	var err error
	if b.Subtotal, err = parseMoney(sub); err != nil {
		return Bill{}, err
	}
	if b.DiscountAmount, err = parseMoney(discount); err != nil {
		return Bill{}, err
	}
	b.Total, err = parseMoney(total)
	return b, err
}

// Create persists a bill and its items in one transaction. A bill number
// collision surfaces as ErrDuplicate so the caller can regenerate and retry.
func (s BillStore) Create(ctx context.Context, in NewBill) (Bill, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Bill{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `
		INSERT INTO bills (bill_number, user_id, subtotal, discount_amount, total, notes)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6)
		RETURNING `+billColumns,
		in.BillNumber, in.UserID, money(in.Subtotal), money(in.DiscountAmount), money(in.Total), in.Notes)
	b, err := scanBill(row)
	if err != nil {
		return Bill{}, mapConstraintErr(err)
	}

	for _, item := range in.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO bill_items (bill_id, product_id, description, starter_type, rating_kw, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7::numeric, $8::numeric)`,
			b.ID, item.ProductID, item.Description, item.StarterType, item.RatingKW.String(),
			item.Quantity, money(item.UnitPrice), money(item.LineTotal)); err != nil {
			return Bill{}, mapConstraintErr(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Bill{}, err
	}
	b.Items = in.Items
	return b, nil
}

// Get returns one bill with items.
func (s BillStore) Get(ctx context.Context, id int64) (Bill, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
	b, err := scanBill(row)
	if err != nil {
		return Bill{}, err
	}
	b.Items, err = s.items(ctx, b.ID)
	return b, err
}

// ListByUser returns the caller's bills, newest first, items included.
func (s BillStore) ListByUser(ctx context.Context, userID int64) ([]Bill, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+billColumns+` FROM bills WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectWithItems(ctx, rows)
}

// ListAll returns a page of every bill plus the overall count. Each bill
// carries its owner's email for the admin listing.
func (s BillStore) ListAll(ctx context.Context, limit, offset int) ([]Bill, int64, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT b.id, b.bill_number, b.user_id, u.email,
		       b.subtotal::text, b.discount_amount::text, b.total::text, b.notes, b.created_at
		FROM bills b
		JOIN users u ON u.id = b.user_id
		ORDER BY b.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bills []Bill
	for rows.Next() {
		var (
			b                    Bill
			sub, discount, total string
		)
		if err := rows.Scan(&b.ID, &b.BillNumber, &b.UserID, &b.OwnerEmail,
			&sub, &discount, &total, &b.Notes, &b.CreatedAt); err != nil {
			return nil, 0, err
		}
		if b.Subtotal, err = parseMoney(sub); err != nil {
			return nil, 0, err
		}
		if b.DiscountAmount, err = parseMoney(discount); err != nil {
			return nil, 0, err
		}
		if b.Total, err = parseMoney(total); err != nil {
			return nil, 0, err
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()
	for i := range bills {
		if bills[i].Items, err = s.items(ctx, bills[i].ID); err != nil {
			return nil, 0, err
		}
	}
	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM bills`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

// Delete removes a bill and, via cascade, its items.
func (s BillStore) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s BillStore) collectWithItems(ctx context.Context, rows pgx.Rows) ([]Bill, error) {
	var bills []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	for i := range bills {
		var err error
		if bills[i].Items, err = s.items(ctx, bills[i].ID); err != nil {
			return nil, err
		}
	}
	return bills, nil
}

func (s BillStore) items(ctx context.Context, billID int64) ([]BillItem, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, product_id, description, starter_type, rating_kw::text, quantity, unit_price::text, line_total::text
		FROM bill_items
		WHERE bill_id = $1
		ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BillItem
	for rows.Next() {
		var (
			item                BillItem
			rating, unit, total string
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Description, &item.StarterType,
			&rating, &item.Quantity, &unit, &total); err != nil {
			return nil, err
		}
		if item.RatingKW, err = parseMoney(rating); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = parseMoney(unit); err != nil {
			return nil, err
		}
		if item.LineTotal, err = parseMoney(total); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
