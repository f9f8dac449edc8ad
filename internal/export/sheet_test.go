package export_test

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ADI-2707/BillSwift/internal/export"
	"github.com/ADI-2707/BillSwift/internal/order"
)

func sampleOrder(t *testing.T) *order.Order {
	t.Helper()
	o := order.New()
	line := o.AddBundle(order.Template{
		ProductID:   7,
		StarterType: order.StarterDOL,
		RatingKW:    decimal.RequireFromString("2.5"),
		Components: []order.TemplateComponent{
			{Name: "Contactor", Brand: "Siemens", Model: "3TF30", Quantity: 1, UnitPrice: decimal.NewFromInt(560)},
			{Name: "Overload Relay", Brand: "L&T", Model: "MN2", Quantity: 2, UnitPrice: decimal.NewFromInt(110)},
		},
	})
	require.NoError(t, o.SetComponentDiscount(line.ID, 1, decimal.NewFromInt(5)))
	o.SetDiscountPercent(decimal.NewFromInt(5))
	return o
}

func TestWorkbookLayout(t *testing.T) {
	o := sampleOrder(t)

	f, err := export.Workbook(*o)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bill")
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	require.Equal(t, "DOL — 2.5 kW", rows[0][0])
	require.Equal(t, []string{"PRODUCT", "MODEL", "BRAND", "QTY", "RATE", "TOTAL"}, rows[1][:6])

	require.Equal(t, "Contactor", rows[2][0])
	require.Equal(t, "3TF30", rows[2][1])
	require.Equal(t, "Siemens", rows[2][2])
	require.Equal(t, "1", rows[2][3])
	require.Equal(t, "560", rows[2][4])

	require.Equal(t, "Overload Relay", rows[3][0])
	require.Equal(t, "2", rows[3][3])
	require.Equal(t, "104.5", rows[3][4])
	require.Equal(t, "209", rows[3][5])

	require.Equal(t, "SUBTOTAL", rows[4][4])
	require.Equal(t, "769", rows[4][5])
}

func TestWorkbookGrandTotalMatchesCompute(t *testing.T) {
	o := sampleOrder(t)

	f, err := export.Workbook(*o)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bill")
	require.NoError(t, err)

	var grand string
	for _, row := range rows {
		if len(row) >= 6 && row[4] == "GRAND TOTAL" {
			grand = row[5]
		}
	}
	require.NotEmpty(t, grand, "grand total row missing")

	want := order.Compute(*o).GrandTotal.Round(2)
	got := decimal.RequireFromString(grand)
	require.True(t, want.Equal(got), "want %s got %s", want, got)
}

func TestWriteProducesWorkbook(t *testing.T) {
	o := sampleOrder(t)

	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, *o))
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Contains(t, f.GetSheetList(), "Bill")
}
