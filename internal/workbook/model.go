package workbook

// CellType is the declared type of a stored cell value.
type CellType int

const (
	TypeNone CellType = iota
	TypeNumber
	TypeString
	TypeBool
	TypeDate
	TypeTime
	TypeError
)

func (t CellType) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeBool:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeError:
		return "error"
	default:
		return "none"
	}
}

// ErrorValue is the raw text of an error cell, e.g. "#DIV/0!".
type ErrorValue string

// FillKind tells how a cell background colour was declared.
type FillKind int

const (
	// FillNone means the cell has no fill at all.
	FillNone FillKind = iota
	// FillAuto is the "automatic" system colour.
	FillAuto
	// FillIndexed refers to the legacy palette; it carries no explicit colour.
	FillIndexed
	// FillRGB is an explicit colour held in Fill.RGB.
	FillRGB
)

// Fill is the background of a cell. RGB is hex text as found in the
// workbook ("FF0000", "#FF0000" or "FFFF0000") and may be malformed.
type Fill struct {
	Kind FillKind
	RGB  string
}

// DefaultFontSize is used when a cell declares no font size.
const DefaultFontSize = 12.0

// Cell is one stored value together with the styling the renderer needs.
//
// Value holds nil, float64, int64, string, bool, time.Time or ErrorValue.
type Cell struct {
	Type     CellType
	Value    any
	FontSize float64
	Fill     Fill
}

// Empty reports whether the cell has no value.
func (c Cell) Empty() bool {
	return c.Value == nil
}

// Size returns the cell font size, falling back to DefaultFontSize.
func (c Cell) Size() float64 {
	if c.FontSize > 0 {
		return c.FontSize
	}
	return DefaultFontSize
}

// Row is one iterated worksheet row. Height is the declared row height in
// points; zero means the row carries no height metadata.
type Row struct {
	Index  int
	Height float64
	Cells  []Cell
}

// Empty reports whether every cell in the row is absent.
func (r Row) Empty() bool {
	for _, c := range r.Cells {
		if !c.Empty() {
			return false
		}
	}
	return true
}

// Sheet is a materialised worksheet grid.
type Sheet struct {
	Name string
	Rows []Row
}

// NumColumns is the width of the first row.
func (s *Sheet) NumColumns() int {
	if len(s.Rows) == 0 {
		return 0
	}
	return len(s.Rows[0].Cells)
}

// NumRows is the number of iterated rows, empty ones included.
func (s *Sheet) NumRows() int {
	return len(s.Rows)
}

// Width is the number of physical columns, the widest row in the sheet.
func (s *Sheet) Width() int {
	w := 0
	for _, r := range s.Rows {
		if len(r.Cells) > w {
			w = len(r.Cells)
		}
	}
	return w
}

// Cell returns the cell at the zero-based position, or an absent cell when
// the position lies outside the stored grid.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) {
		return Cell{}
	}
	cells := s.Rows[row].Cells
	if col < 0 || col >= len(cells) {
		return Cell{}
	}
	return cells[col]
}

// RowHeight returns the declared height of the row, zero if none.
func (s *Sheet) RowHeight(row int) float64 {
	if row < 0 || row >= len(s.Rows) {
		return 0
	}
	return s.Rows[row].Height
}
