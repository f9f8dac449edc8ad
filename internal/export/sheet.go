// Package export renders a priced order into an xlsx workbook. It reads the
// totals already present on the order, so the spreadsheet can never disagree
// with what the pricing model reported.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ADI-2707/BillSwift/internal/order"
)

const sheetName = "Bill"

var columns = []string{"PRODUCT", "MODEL", "BRAND", "QTY", "RATE", "TOTAL"}

// Filename returns the suggested download name for an exported bill.
func Filename(now time.Time) string {
	return fmt.Sprintf("bill-%s.xlsx", now.Format("2006-01-02"))
}

// Write renders the order and writes the workbook to w.
func Write(w io.Writer, o order.Order) error {
	f, err := Workbook(o)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// Workbook builds the xlsx file for an order. The caller owns the returned
// file and must Close it.
func Workbook(o order.Order) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	widths := []float64{28, 16, 16, 8, 12, 14}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, err
		}
	}

	row := 1
	for _, line := range o.Lines {
		title := fmt.Sprintf("%s — %s kW", line.StarterType, line.RatingKW.String())
		if err := setRow(f, row, title); err != nil {
			return nil, err
		}
		if err := f.MergeCell(sheetName, cell(1, row), cell(len(columns), row)); err != nil {
			return nil, err
		}
		styleRow(f, row, bold)
		row++

		hdr := make([]any, len(columns))
		for i, c := range columns {
			hdr[i] = c
		}
		if err := setRow(f, row, hdr...); err != nil {
			return nil, err
		}
		styleRow(f, row, bold)
		row++

		for _, c := range line.Components {
			qty := order.CoerceQuantity(c.Quantity)
			rate := c.FinalUnitPrice.Round(2)
			total := c.FinalUnitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2)
			if err := setRow(f, row, c.Name, c.Model, c.Brand, qty, rate.InexactFloat64(), total.InexactFloat64()); err != nil {
				return nil, err
			}
			row++
		}

		if err := setRow(f, row, "", "", "", "", "SUBTOTAL", line.Subtotal.Round(2).InexactFloat64()); err != nil {
			return nil, err
		}
		styleRow(f, row, bold)
		row += 2
	}

	summary := order.Compute(o)
	trailing := []struct {
		label string
		value float64
	}{
		{"Subtotal", summary.Subtotal.Round(2).InexactFloat64()},
		{fmt.Sprintf("Discount (%s%%)", o.DiscountPercent.String()), summary.DiscountAmount.Round(2).InexactFloat64()},
		{"GRAND TOTAL", summary.GrandTotal.Round(2).InexactFloat64()},
	}
	for _, tr := range trailing {
		if err := setRow(f, row, "", "", "", "", tr.label, tr.value); err != nil {
			return nil, err
		}
		row++
	}
	styleRow(f, row-1, bold)

	return f, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func setRow(f *excelize.File, row int, values ...any) error {
	return f.SetSheetRow(sheetName, cell(1, row), &values)
}

func styleRow(f *excelize.File, row int, style int) {
	_ = f.SetCellStyle(sheetName, cell(1, row), cell(len(columns), row), style)
}
