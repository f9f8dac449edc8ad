// Package order implements the in-memory order builder: a deterministic pricing
// model over starter bundles, their component lines, and discount settings. All
// monetary values are decimals; rounding to 2 places happens only at display and
// export boundaries, never inside the model.
package order

import (
	"github.com/shopspring/decimal"
)

// Starter types recognised by the catalog.
const (
	StarterDOL  = "DOL"
	StarterRDOL = "RDOL"
	StarterSD   = "S/D"
)

// Component is one priced part of an order line. BasePrice is the catalog (or
// template override) unit price; FinalUnitPrice is derived from the discount and
// kept alongside so the document round-trips over the wire without recomputation.
type Component struct {
	ComponentID     *int64          `json:"component_id,omitempty"`
	Name            string          `json:"name"`
	Brand           string          `json:"brand"`
	Model           string          `json:"model,omitempty"`
	Quantity        int             `json:"quantity"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	FinalUnitPrice  decimal.Decimal `json:"final_unit_price"`
}

// Line is one bundle instance added to an in-progress order. Components are a
// private mutable copy; edits here never touch the catalog template.
type Line struct {
	ID          string          `json:"id"`
	ProductID   int64           `json:"product_id"`
	StarterType string          `json:"starter_type"`
	RatingKW    decimal.Decimal `json:"rating_kw"`
	Components  []Component     `json:"components"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Order is the full in-progress document: lines, an order-level discount percent,
// and free-text notes, plus the derived totals.
type Order struct {
	Lines           []Line          `json:"lines"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Notes           string          `json:"notes,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
}

// Summary holds the three derived totals of an order.
type Summary struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// Template is a bundle snapshot resolved from the catalog, used by AddBundle.
type Template struct {
	ProductID   int64
	StarterType string
	RatingKW    decimal.Decimal
	Components  []TemplateComponent
}

// TemplateComponent is one component of a bundle template.
type TemplateComponent struct {
	ComponentID *int64
	Name        string
	Brand       string
	Model       string
	Quantity    int
	UnitPrice   decimal.Decimal
}
