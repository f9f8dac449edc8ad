package order

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrLineNotFound reports an unknown line identifier.
	ErrLineNotFound = errors.New("order: line not found")
	// ErrComponentIndex reports an out-of-range component index.
	ErrComponentIndex = errors.New("order: component index out of range")
)

var hundred = decimal.NewFromInt(100)

// New returns an empty order. Totals of an empty order are all zero.
func New() *Order {
	o := &Order{}
	o.Recalculate()
	return o
}

// AddBundle appends a new line whose components are deep copies of the template's,
// each starting at discount 0 with final unit price equal to the base price.
// Resolving the template (starter type AND rating must match a catalog bundle) is
// the caller's job; an unresolved bundle never reaches this method.
func (o *Order) AddBundle(tpl Template) *Line {
	line := Line{
		ID:          uuid.NewString(),
		ProductID:   tpl.ProductID,
		StarterType: tpl.StarterType,
		RatingKW:    tpl.RatingKW,
		Components:  make([]Component, 0, len(tpl.Components)),
	}
	for _, tc := range tpl.Components {
		var id *int64
		if tc.ComponentID != nil {
			v := *tc.ComponentID
			id = &v
		}
		line.Components = append(line.Components, Component{
			ComponentID:     id,
			Name:            tc.Name,
			Brand:           tc.Brand,
			Model:           tc.Model,
			Quantity:        CoerceQuantity(tc.Quantity),
			BasePrice:       tc.UnitPrice,
			DiscountPercent: decimal.Zero,
			FinalUnitPrice:  tc.UnitPrice,
		})
	}
	o.Lines = append(o.Lines, line)
	o.Recalculate()
	return &o.Lines[len(o.Lines)-1]
}

// RemoveLine deletes the line with the given local identifier.
func (o *Order) RemoveLine(lineID string) error {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			o.Recalculate()
			return nil
		}
	}
	return ErrLineNotFound
}

// SetComponentQuantity updates a component quantity, coercing to an integer >= 1.
func (o *Order) SetComponentQuantity(lineID string, idx, quantity int) error {
	comp, err := o.component(lineID, idx)
	if err != nil {
		return err
	}
	comp.Quantity = CoerceQuantity(quantity)
	o.Recalculate()
	return nil
}

// SetComponentDiscount updates a component discount percent, clamped to [0, 100].
// The component's final unit price becomes base price x (1 - percent/100).
func (o *Order) SetComponentDiscount(lineID string, idx int, percent decimal.Decimal) error {
	comp, err := o.component(lineID, idx)
	if err != nil {
		return err
	}
	comp.DiscountPercent = ClampPercent(percent)
	o.Recalculate()
	return nil
}

// AddComponent appends an ad-hoc component to the line, beyond the original template.
func (o *Order) AddComponent(lineID string, c Component) error {
	line, err := o.line(lineID)
	if err != nil {
		return err
	}
	c.Quantity = CoerceQuantity(c.Quantity)
	c.DiscountPercent = ClampPercent(c.DiscountPercent)
	line.Components = append(line.Components, c)
	o.Recalculate()
	return nil
}

// RemoveComponent deletes a component from the line. An empty component list is
// legal; it simply contributes zero to the subtotal.
func (o *Order) RemoveComponent(lineID string, idx int) error {
	line, err := o.line(lineID)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(line.Components) {
		return ErrComponentIndex
	}
	line.Components = append(line.Components[:idx], line.Components[idx+1:]...)
	o.Recalculate()
	return nil
}

// SetDiscountPercent sets the order-level discount, clamped to [0, 100].
func (o *Order) SetDiscountPercent(percent decimal.Decimal) {
	o.DiscountPercent = ClampPercent(percent)
	o.Recalculate()
}

// Recalculate rebuilds every derived value from the base attributes. Calling it
// any number of times on the same state yields identical results.
func (o *Order) Recalculate() {
	for i := range o.Lines {
		line := &o.Lines[i]
		subtotal := decimal.Zero
		for j := range line.Components {
			comp := &line.Components[j]
			comp.DiscountPercent = ClampPercent(comp.DiscountPercent)
			comp.FinalUnitPrice = FinalUnitPrice(comp.BasePrice, comp.DiscountPercent)
			subtotal = subtotal.Add(comp.FinalUnitPrice.Mul(decimal.NewFromInt(int64(comp.Quantity))))
		}
		line.Subtotal = subtotal
	}
	summary := Compute(*o)
	o.Subtotal = summary.Subtotal
	o.DiscountAmount = summary.DiscountAmount
	o.GrandTotal = summary.GrandTotal
}

// Line returns the line with the given identifier.
func (o *Order) Line(lineID string) (*Line, error) { return o.line(lineID) }

func (o *Order) line(lineID string) (*Line, error) {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i], nil
		}
	}
	return nil, ErrLineNotFound
}

func (o *Order) component(lineID string, idx int) (*Component, error) {
	line, err := o.line(lineID)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(line.Components) {
		return nil, ErrComponentIndex
	}
	return &line.Components[idx], nil
}

// Compute derives order totals as a pure function of the order document:
// subtotal is the sum over every line of final unit price x quantity, the
// discount amount is subtotal x percent/100, and the grand total is clamped at
// zero so a 100% discount plus rounding artifacts can never go negative.
func Compute(o Order) Summary {
	subtotal := decimal.Zero
	for _, line := range o.Lines {
		for _, comp := range line.Components {
			final := FinalUnitPrice(comp.BasePrice, ClampPercent(comp.DiscountPercent))
			subtotal = subtotal.Add(final.Mul(decimal.NewFromInt(int64(comp.Quantity))))
		}
	}
	percent := ClampPercent(o.DiscountPercent)
	discount := subtotal.Mul(percent).Div(hundred)
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Summary{Subtotal: subtotal, DiscountAmount: discount, GrandTotal: total}
}

// FinalUnitPrice applies a percentage discount to a base unit price.
func FinalUnitPrice(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(hundred.Sub(ClampPercent(percent))).Div(hundred)
}

// ClampPercent limits a discount percent to [0, 100].
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// CoerceQuantity forces a quantity to an integer >= 1, mirroring the on-blur
// behavior for empty or non-positive input.
func CoerceQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}
