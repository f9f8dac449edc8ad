// Package billing persists priced orders as bills and serves them back,
// including the spreadsheet export and the template flow that reloads an old
// bill into the order builder at current catalog prices.
package billing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ADI-2707/BillSwift/internal/common"
	"github.com/ADI-2707/BillSwift/internal/obs"
	"github.com/ADI-2707/BillSwift/internal/order"
	"github.com/ADI-2707/BillSwift/internal/store"
)

const billNumberAttempts = 25

// BillStore is the persistence surface the billing service needs.
type BillStore interface {
	Create(ctx context.Context, in store.NewBill) (store.Bill, error)
	Get(ctx context.Context, id int64) (store.Bill, error)
	ListByUser(ctx context.Context, userID int64) ([]store.Bill, error)
	ListAll(ctx context.Context, limit, offset int) ([]store.Bill, int64, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Catalog is the slice of the catalog service billing depends on.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (store.Product, error)
	Template(ctx context.Context, productID int64) (order.Template, error)
}

// Service orchestrates bill creation, retrieval and rehydration.
type Service struct {
	bills   BillStore
	catalog Catalog
	now     func() time.Time
	rand    *rand.Rand
}

// Config groups Service dependencies.
type Config struct {
	Bills   BillStore
	Catalog Catalog
}

// BillItemInput is one requested bundle on a new bill.
type BillItemInput struct {
	ProductID     int64            `json:"product_id"`
	Quantity      int              `json:"quantity"`
	OverridePrice *decimal.Decimal `json:"override_price,omitempty"`
}

// CreateBillInput is the POST /billing payload.
type CreateBillInput struct {
	Items          []BillItemInput `json:"items"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Notes          string          `json:"notes"`
}

// TemplateItem pairs a bundle template with the quantity it had on the bill.
type TemplateItem struct {
	Template order.Template `json:"template"`
	Quantity int            `json:"quantity"`
}

// TemplateResult is the rehydrated form of a bill, priced at the catalog's
// current rates. Items whose bundle has left the catalog are dropped and
// counted.
type TemplateResult struct {
	BillNumber string         `json:"bill_number"`
	Notes      string         `json:"notes"`
	Items      []TemplateItem `json:"items"`
	Dropped    int            `json:"dropped"`
}

// NewService constructs the billing service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Bills == nil {
		return nil, errors.New("billing: bill store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("billing: catalog is required")
	}
	return &Service{
		bills:   cfg.Bills,
		catalog: cfg.Catalog,
		now:     time.Now,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates and persists a bill for the session user. Unit prices
// come from the catalog unless an override is given, and every total is
// recomputed server side regardless of what the client claims.
func (s *Service) Create(ctx context.Context, session common.Session, in CreateBillInput) (store.Bill, error) {
	if len(in.Items) == 0 {
		return store.Bill{}, common.ValidationError("a bill needs at least one item")
	}

	var (
		items    []store.BillItem
		subtotal = decimal.Zero
	)
	for _, item := range in.Items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return store.Bill{}, err
		}
		if !product.IsActive {
			return store.Bill{}, common.NotFoundError(fmt.Sprintf("product %d not found", item.ProductID))
		}
		qty := order.CoerceQuantity(item.Quantity)
		unit := product.Price
		if item.OverridePrice != nil {
			unit = *item.OverridePrice
			if unit.IsNegative() {
				unit = decimal.Zero
			}
		}
		lineTotal := unit.Mul(decimal.NewFromInt(int64(qty)))
		productID := product.ID
		items = append(items, store.BillItem{
			ProductID:   &productID,
			Description: displayName(product),
			StarterType: product.StarterType,
			RatingKW:    product.RatingKW,
			Quantity:    qty,
			UnitPrice:   unit,
			LineTotal:   lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}

	discount := in.DiscountAmount
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	total := subtotal.Sub(discount)

	bill, err := s.createWithFreshNumber(ctx, store.NewBill{
		UserID:         session.UserID,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Total:          total,
		Notes:          strings.TrimSpace(in.Notes),
		Items:          items,
	}, session.EmployeeCode)
	if err != nil {
		countBill("failure")
		return store.Bill{}, err
	}
	countBill("success")
	return bill, nil
}

// createWithFreshNumber retries number generation when the random suffix
// collides, then falls back to a timestamp suffix that cannot collide.
func (s *Service) createWithFreshNumber(ctx context.Context, in store.NewBill, employeeCode string) (store.Bill, error) {
	for attempt := 0; attempt < billNumberAttempts; attempt++ {
		in.BillNumber = s.billNumber(employeeCode)
		bill, err := s.bills.Create(ctx, in)
		if err == nil {
			return bill, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return store.Bill{}, fmt.Errorf("create bill: %w", err)
		}
	}
	in.BillNumber = fmt.Sprintf("BS-%d-%s%d", s.now().Year(), employeeCode, s.now().UnixNano()%100000)
	bill, err := s.bills.Create(ctx, in)
	if err != nil {
		return store.Bill{}, fmt.Errorf("create bill: %w", err)
	}
	return bill, nil
}

func (s *Service) billNumber(employeeCode string) string {
	return fmt.Sprintf("BS-%d-%s%03d", s.now().Year(), employeeCode, s.rand.Intn(1000))
}

// Get returns one bill. Non-admin callers can only see their own.
func (s *Service) Get(ctx context.Context, session common.Session, id int64) (store.Bill, error) {
	bill, err := s.bills.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Bill{}, common.NotFoundError("bill not found")
		}
		return store.Bill{}, fmt.Errorf("get bill: %w", err)
	}
	if !session.IsAdmin() && bill.UserID != session.UserID {
		return store.Bill{}, common.NotFoundError("bill not found")
	}
	return bill, nil
}

// ListMine returns the session user's bills, newest first.
func (s *Service) ListMine(ctx context.Context, session common.Session) ([]store.Bill, error) {
	bills, err := s.bills.ListByUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

// ListAll returns a page of every bill. Admin only; the handler enforces it.
func (s *Service) ListAll(ctx context.Context, page, perPage int) ([]store.Bill, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	bills, total, err := s.bills.ListAll(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list all bills: %w", err)
	}
	return bills, total, nil
}

// Delete removes a bill.
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.bills.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	if !deleted {
		return common.NotFoundError("bill not found")
	}
	return nil
}

// Template rehydrates a bill into builder templates at current catalog
// prices. Bundles that have since left the catalog are dropped, not errors.
func (s *Service) Template(ctx context.Context, session common.Session, id int64) (TemplateResult, error) {
	bill, err := s.Get(ctx, session, id)
	if err != nil {
		return TemplateResult{}, err
	}
	result := TemplateResult{BillNumber: bill.BillNumber, Notes: bill.Notes}
	for _, item := range bill.Items {
		if item.ProductID == nil {
			result.Dropped++
			continue
		}
		tpl, err := s.catalog.Template(ctx, *item.ProductID)
		if err != nil {
			var appErr *common.AppError
			if errors.As(err, &appErr) && appErr.HTTPStatus == 404 {
				result.Dropped++
				continue
			}
			return TemplateResult{}, err
		}
		result.Items = append(result.Items, TemplateItem{Template: tpl, Quantity: item.Quantity})
	}
	return result, nil
}

// Preview recomputes an order document server side and returns it with
// fresh totals. The client's claimed totals are discarded.
func (s *Service) Preview(doc order.Order) order.Order {
	normalize(&doc)
	doc.Recalculate()
	return doc
}

func normalize(doc *order.Order) {
	for i := range doc.Lines {
		for j := range doc.Lines[i].Components {
			comp := &doc.Lines[i].Components[j]
			comp.Quantity = order.CoerceQuantity(comp.Quantity)
		}
	}
}

func displayName(p store.Product) string {
	return fmt.Sprintf("%s Starter %s kW", p.StarterType, p.RatingKW.String())
}

func countBill(result string) {
	if obs.BillsCreatedTotal != nil {
		obs.BillsCreatedTotal.WithLabelValues(result).Inc()
	}
}
