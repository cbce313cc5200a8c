package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"sheet2pdf/internal/workbook"
)

// FormatCell returns the text displayed for a cell. It never fails: a value
// whose Go type does not match its declared type is shown with fmt.Sprint.
func FormatCell(c workbook.Cell) string {
	if c.Value == nil {
		return ""
	}

	switch c.Type {
	case workbook.TypeNumber:
		switch v := c.Value.(type) {
		case int64:
			return strconv.FormatInt(v, 10)
		case int:
			return strconv.Itoa(v)
		case float64:
			return formatFloat(v)
		}
	case workbook.TypeString:
		if s, ok := c.Value.(string); ok {
			return s
		}
	case workbook.TypeBool:
		if b, ok := c.Value.(bool); ok {
			if b {
				return "TRUE"
			}
			return "FALSE"
		}
	case workbook.TypeDate:
		if t, ok := c.Value.(time.Time); ok {
			return t.Format("2006-01-02")
		}
	case workbook.TypeTime:
		if t, ok := c.Value.(time.Time); ok {
			return t.Format("15:04:05")
		}
	case workbook.TypeError:
		return "ERROR: " + fmt.Sprint(c.Value)
	}
	return fmt.Sprint(c.Value)
}

// formatFloat writes the shortest decimal form and keeps a fractional part
// on integral values, so 3 prints as "3.0". Magnitudes from 1e16 up and below
// 1e-4 switch to exponent form ("1e+21", "1e-07").
func formatFloat(v float64) string {
	if abs := math.Abs(v); v != 0 && !math.IsInf(v, 0) && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
