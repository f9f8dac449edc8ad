package order_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ADI-2707/BillSwift/internal/order"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dolTemplate() order.Template {
	return order.Template{
		ProductID:   7,
		StarterType: order.StarterDOL,
		RatingKW:    dec("2.5"),
		Components: []order.TemplateComponent{
			{Name: "Contactor", Brand: "Siemens", Model: "3TF30", Quantity: 1, UnitPrice: dec("560")},
			{Name: "Overload Relay", Brand: "L&T", Model: "MN2", Quantity: 2, UnitPrice: dec("110")},
		},
	}
}

func TestEmptyOrderTotalsAreZero(t *testing.T) {
	o := order.New()
	require.True(t, o.Subtotal.IsZero())
	require.True(t, o.DiscountAmount.IsZero())
	require.True(t, o.GrandTotal.IsZero())
}

func TestAddBundleCopiesTemplate(t *testing.T) {
	o := order.New()
	tpl := dolTemplate()
	line := o.AddBundle(tpl)

	require.NotEmpty(t, line.ID)
	require.Len(t, line.Components, 2)
	for _, c := range line.Components {
		require.True(t, c.DiscountPercent.IsZero())
		require.True(t, c.FinalUnitPrice.Equal(c.BasePrice))
	}

	// Mutating the order must not leak back into the template.
	require.NoError(t, o.SetComponentQuantity(line.ID, 0, 5))
	require.Equal(t, 1, tpl.Components[0].Quantity)
}

func TestLineSubtotalScenario(t *testing.T) {
	// DOL 2.5kW: 560x1 at 0% plus 110x2 at 5% = 560 + 209 = 769.
	o := order.New()
	line := o.AddBundle(dolTemplate())
	require.NoError(t, o.SetComponentDiscount(line.ID, 1, dec("5")))

	got, err := o.Line(line.ID)
	require.NoError(t, err)
	require.True(t, got.Subtotal.Equal(dec("769")), "subtotal = %s", got.Subtotal)
}

func TestOrderDiscountScenario(t *testing.T) {
	o := order.New()
	line := o.AddBundle(dolTemplate())
	require.NoError(t, o.SetComponentDiscount(line.ID, 1, dec("5")))
	o.SetDiscountPercent(dec("5"))

	require.True(t, o.Subtotal.Equal(dec("769")), "subtotal = %s", o.Subtotal)
	require.True(t, o.DiscountAmount.Equal(dec("38.45")), "discount = %s", o.DiscountAmount)
	require.True(t, o.GrandTotal.Equal(dec("730.55")), "total = %s", o.GrandTotal)
}

func TestComputeIsIdempotent(t *testing.T) {
	o := order.New()
	line := o.AddBundle(dolTemplate())
	require.NoError(t, o.SetComponentDiscount(line.ID, 0, dec("12.5")))
	o.SetDiscountPercent(dec("7"))

	first := order.Compute(*o)
	second := order.Compute(*o)
	require.True(t, first.Subtotal.Equal(second.Subtotal))
	require.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
	require.True(t, first.GrandTotal.Equal(second.GrandTotal))

	o.Recalculate()
	o.Recalculate()
	require.True(t, o.GrandTotal.Equal(first.GrandTotal))
}

func TestGrandTotalNeverNegative(t *testing.T) {
	o := order.New()
	o.AddBundle(dolTemplate())
	o.SetDiscountPercent(dec("100"))
	require.True(t, o.GrandTotal.IsZero() || o.GrandTotal.IsPositive())
	require.True(t, o.GrandTotal.Equal(decimal.Zero))
}

func TestDiscountClamping(t *testing.T) {
	o := order.New()
	line := o.AddBundle(dolTemplate())

	require.NoError(t, o.SetComponentDiscount(line.ID, 0, dec("-10")))
	got, err := o.Line(line.ID)
	require.NoError(t, err)
	require.True(t, got.Components[0].DiscountPercent.IsZero())

	require.NoError(t, o.SetComponentDiscount(line.ID, 0, dec("250")))
	got, err = o.Line(line.ID)
	require.NoError(t, err)
	require.True(t, got.Components[0].DiscountPercent.Equal(dec("100")))
	require.True(t, got.Components[0].FinalUnitPrice.IsZero())

	o.SetDiscountPercent(dec("-3"))
	require.True(t, o.DiscountPercent.IsZero())
	o.SetDiscountPercent(dec("101"))
	require.True(t, o.DiscountPercent.Equal(dec("100")))
}

func TestQuantityCoercion(t *testing.T) {
	require.Equal(t, 1, order.CoerceQuantity(0))
	require.Equal(t, 1, order.CoerceQuantity(-3))
	require.Equal(t, 4, order.CoerceQuantity(4))

	o := order.New()
	line := o.AddBundle(dolTemplate())
	require.NoError(t, o.SetComponentQuantity(line.ID, 0, 0))
	got, err := o.Line(line.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Components[0].Quantity)
}

func TestRemoveLastComponentYieldsZeroSubtotal(t *testing.T) {
	o := order.New()
	line := o.AddBundle(order.Template{
		ProductID:   1,
		StarterType: order.StarterRDOL,
		RatingKW:    dec("5"),
		Components: []order.TemplateComponent{
			{Name: "MCB", Brand: "Schneider", Quantity: 1, UnitPrice: dec("300")},
		},
	})

	require.NoError(t, o.RemoveComponent(line.ID, 0))
	got, err := o.Line(line.ID)
	require.NoError(t, err)
	require.Empty(t, got.Components)
	require.True(t, got.Subtotal.IsZero())
	require.True(t, o.GrandTotal.IsZero())
}

func TestAddAndRemoveComponent(t *testing.T) {
	o := order.New()
	line := o.AddBundle(dolTemplate())

	require.NoError(t, o.AddComponent(line.ID, order.Component{
		Name:      "Indicator Lamp",
		Brand:     "Teknic",
		Quantity:  3,
		BasePrice: dec("40"),
	}))
	got, err := o.Line(line.ID)
	require.NoError(t, err)
	require.Len(t, got.Components, 3)
	require.True(t, got.Subtotal.Equal(dec("900")), "subtotal = %s", got.Subtotal) // 560 + 220 + 120

	require.NoError(t, o.RemoveComponent(line.ID, 2))
	got, err = o.Line(line.ID)
	require.NoError(t, err)
	require.True(t, got.Subtotal.Equal(dec("780")))
}

func TestRemoveLine(t *testing.T) {
	o := order.New()
	first := o.AddBundle(dolTemplate())
	o.AddBundle(dolTemplate())
	require.Len(t, o.Lines, 2)

	require.NoError(t, o.RemoveLine(first.ID))
	require.Len(t, o.Lines, 1)
	require.True(t, o.Subtotal.Equal(dec("780")))

	require.ErrorIs(t, o.RemoveLine("nope"), order.ErrLineNotFound)
}

func TestComponentIndexErrors(t *testing.T) {
	o := order.New()
	line := o.AddBundle(dolTemplate())

	require.ErrorIs(t, o.SetComponentQuantity(line.ID, 9, 2), order.ErrComponentIndex)
	require.ErrorIs(t, o.SetComponentDiscount("missing", 0, dec("5")), order.ErrLineNotFound)
	require.ErrorIs(t, o.RemoveComponent(line.ID, -1), order.ErrComponentIndex)
}

func TestTotalsStableAcrossEditSequences(t *testing.T) {
	// The same final state must price identically no matter the edit path.
	build := func(editFirst bool) order.Summary {
		o := order.New()
		line := o.AddBundle(dolTemplate())
		if editFirst {
			require.NoError(t, o.SetComponentDiscount(line.ID, 1, dec("5")))
			require.NoError(t, o.SetComponentQuantity(line.ID, 0, 2))
		} else {
			require.NoError(t, o.SetComponentQuantity(line.ID, 0, 2))
			require.NoError(t, o.SetComponentDiscount(line.ID, 1, dec("5")))
		}
		o.SetDiscountPercent(dec("10"))
		return order.Compute(*o)
	}

	a := build(true)
	b := build(false)
	require.True(t, a.Subtotal.Equal(b.Subtotal))
	require.True(t, a.GrandTotal.Equal(b.GrandTotal))
}
