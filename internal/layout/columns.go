package layout

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"sheet2pdf/internal/workbook"
)

var ErrDegenerateLayout = errors.New("degenerate layout: no width to distribute")

const (
	minColumnWidth = 70.0
	charWidth      = 6.0
	columnPadding  = 10.0
	spacingRatio   = 0.1
)

// SpacingMode decides how the inter-column spacing relates to the page width.
type SpacingMode int

const (
	// SpacingFit folds the spacing into the scale step so the final widths
	// add up to exactly the page width.
	SpacingFit SpacingMode = iota
	// SpacingLegacy scales to the page width first and adds 10% spacing on
	// top, so a row is 110% of the page wide.
	SpacingLegacy
)

func (m SpacingMode) String() string {
	if m == SpacingLegacy {
		return "legacy"
	}
	return "fit"
}

// ParseSpacingMode accepts "fit" (or "") and "legacy".
func ParseSpacingMode(s string) (SpacingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fit":
		return SpacingFit, nil
	case "legacy":
		return SpacingLegacy, nil
	}
	return SpacingFit, fmt.Errorf("unknown spacing mode %q", s)
}

// RawColumnWidths returns the content-based width of each of the sheet's
// NumColumns() columns before scaling. Cells missing from short rows count
// as absent, so an empty column still gets the minimum width.
func RawColumnWidths(sheet *workbook.Sheet) []float64 {
	n := sheet.NumColumns()

	widths := make([]float64, n)
	for c := 0; c < n; c++ {
		longest := 0
		for r := range sheet.Rows {
			if l := utf8.RuneCountInString(FormatCell(sheet.Cell(r, c))); l > longest {
				longest = l
			}
		}
		widths[c] = max(minColumnWidth, float64(longest)*charWidth) + columnPadding
	}
	return widths
}

// PlanColumns scales the raw column widths across pageWidth and adds the
// inter-column spacing. The result has one entry per column.
func PlanColumns(sheet *workbook.Sheet, pageWidth float64, mode SpacingMode) ([]float64, error) {
	raw := RawColumnWidths(sheet)
	return ScaleColumns(raw, pageWidth, mode)
}

// ScaleColumns distributes raw widths proportionally across pageWidth.
func ScaleColumns(raw []float64, pageWidth float64, mode SpacingMode) ([]float64, error) {
	if len(raw) == 0 || pageWidth <= 0 {
		return nil, ErrDegenerateLayout
	}

	total := 0.0
	for _, w := range raw {
		total += w
	}
	if total <= 0 {
		return nil, ErrDegenerateLayout
	}

	scale := pageWidth / total
	if mode == SpacingFit {
		scale /= 1 + spacingRatio
	}

	widths := make([]float64, len(raw))
	for i, w := range raw {
		scaled := w * scale
		widths[i] = scaled + scaled*spacingRatio
	}
	return widths, nil
}
