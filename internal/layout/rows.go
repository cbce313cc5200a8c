package layout

import "sheet2pdf/internal/workbook"

const (
	defaultRowHeight = 20.0
	// rowUnitToPoints converts the native row height unit to points.
	rowUnitToPoints  = 1.33333
	headerMultiplier = 2.0
)

// ResolveRowHeight returns the rendered height of a row in points. The
// header row (index 0) is twice as tall.
func ResolveRowHeight(row workbook.Row, index int) float64 {
	base := row.Height
	if base <= 0 {
		base = defaultRowHeight
	}
	h := base * rowUnitToPoints
	if index == 0 {
		h *= headerMultiplier
	}
	return h
}

// RowBand is one rendered row: its position in the sheet and its height.
type RowBand struct {
	Index  int
	Height float64
}

// Plan is the computed layout of one sheet.
type Plan struct {
	Page    PageSize
	Columns []float64
	Rows    []RowBand
}

// PlanSheet computes the page, column widths and row bands of a sheet.
// Rows whose cells are all absent get no band. A sheet without columns
// gets a page but no layout.
func PlanSheet(sheet *workbook.Sheet, mode SpacingMode) (Plan, error) {
	plan := Plan{Page: SelectPageSize(sheet.NumColumns(), sheet.NumRows())}
	if sheet.NumColumns() == 0 {
		return plan, nil
	}

	cols, err := PlanColumns(sheet, plan.Page.Width, mode)
	if err != nil {
		return plan, err
	}
	plan.Columns = cols

	for i, row := range sheet.Rows {
		if row.Empty() {
			continue
		}
		plan.Rows = append(plan.Rows, RowBand{Index: i, Height: ResolveRowHeight(row, i)})
	}
	return plan, nil
}
