package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// File is a Source backed by an .xlsx document opened with excelize.
// Formulas are not evaluated: the cached result stored in the document is
// what gets rendered.
type File struct {
	f        *excelize.File
	date1904 bool
	styles   map[int]cellStyle
}

type cellStyle struct {
	fontSize float64
	fill     Fill
	date     bool
	timeOnly bool
}

// OpenFile opens the workbook at path.
func OpenFile(path string) (*File, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return newFile(f), nil
}

// OpenReader reads a workbook from r.
func OpenReader(r io.Reader) (*File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	return newFile(f), nil
}

func newFile(f *excelize.File) *File {
	wf := &File{f: f, styles: make(map[int]cellStyle)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wf.date1904 = *props.Date1904
	}
	return wf
}

func (w *File) SheetNames() []string {
	return w.f.GetSheetList()
}

// LoadSheet walks every row from the first one to the last used one. Rows
// missing from the document come back empty, and every row is padded to the
// sheet's widest row.
func (w *File) LoadSheet(name string) (*Sheet, error) {
	rows, err := w.f.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("iterate sheet %q: %w", name, err)
	}
	defer rows.Close()

	sheet := &Sheet{Name: name}
	for rowNum := 1; rows.Next(); rowNum++ {
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read row %d of %q: %w", rowNum, name, err)
		}

		row := Row{
			Index:  rowNum - 1,
			Height: rows.GetRowOpts().Height,
			Cells:  make([]Cell, len(cols)),
		}
		for i, raw := range cols {
			ref, err := excelize.CoordinatesToCellName(i+1, rowNum)
			if err != nil {
				return nil, err
			}
			cell, err := w.readCell(name, ref, raw)
			if err != nil {
				return nil, fmt.Errorf("read cell %s!%s: %w", name, ref, err)
			}
			row.Cells[i] = cell
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("iterate sheet %q: %w", name, err)
	}

	width := sheet.Width()
	for i := range sheet.Rows {
		if missing := width - len(sheet.Rows[i].Cells); missing > 0 {
			sheet.Rows[i].Cells = append(sheet.Rows[i].Cells, make([]Cell, missing)...)
		}
	}
	return sheet, nil
}

func (w *File) Close() error {
	return w.f.Close()
}

func (w *File) readCell(sheet, ref, raw string) (Cell, error) {
	st, err := w.style(sheet, ref)
	if err != nil {
		return Cell{}, err
	}
	cell := Cell{FontSize: st.fontSize, Fill: st.fill}

	typ, err := w.f.GetCellType(sheet, ref)
	if err != nil {
		return Cell{}, err
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		cell.Type, cell.Value = TypeString, raw
	case excelize.CellTypeBool:
		cell.Type, cell.Value = TypeBool, raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeError:
		cell.Type, cell.Value = TypeError, ErrorValue(raw)
	case excelize.CellTypeDate:
		t, err := parseISODate(raw)
		if err != nil {
			cell.Type, cell.Value = TypeString, raw
			break
		}
		cell.Type, cell.Value = TypeDate, t
	default:
		if raw == "" {
			return cell, nil
		}
		w.setNumber(&cell, raw, st)
	}
	return cell, nil
}

func (w *File) setNumber(cell *Cell, raw string, st cellStyle) {
	if !strings.ContainsAny(raw, ".eE") {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && !st.date {
			cell.Type, cell.Value = TypeNumber, n
			return
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		cell.Type, cell.Value = TypeString, raw
		return
	}
	if st.date {
		if t, err := excelize.ExcelDateToTime(f, w.date1904); err == nil {
			if st.timeOnly {
				cell.Type = TypeTime
			} else {
				cell.Type = TypeDate
			}
			cell.Value = t
			return
		}
	}
	cell.Type, cell.Value = TypeNumber, f
}

func (w *File) style(sheet, ref string) (cellStyle, error) {
	id, err := w.f.GetCellStyle(sheet, ref)
	if err != nil {
		return cellStyle{}, err
	}
	if st, ok := w.styles[id]; ok {
		return st, nil
	}

	s, err := w.f.GetStyle(id)
	if err != nil {
		return cellStyle{}, fmt.Errorf("style %d: %w", id, err)
	}

	var st cellStyle
	if s.Font != nil {
		st.fontSize = s.Font.Size
	}
	st.fill = w.fillOf(id, s.Fill)
	st.date, st.timeOnly = dateFormat(s.NumFmt, s.CustomNumFmt)

	w.styles[id] = st
	return st, nil
}

// fillOf classifies the fill of style id. GetStyle folds automatic and
// palette colours into hex, so the kind comes from the raw stylesheet and
// only the resolved colour is taken from resolved. Theme colours 0-9 are
// explicit and painted with the colour excelize derives from the theme.
func (w *File) fillOf(id int, resolved excelize.Fill) Fill {
	if resolved.Type == "" || (resolved.Type == "pattern" && resolved.Pattern == 0) {
		return Fill{}
	}
	rgb := ""
	if len(resolved.Color) > 0 {
		rgb = resolved.Color[0]
	}

	ss := w.f.Styles
	if ss == nil || ss.CellXfs == nil || ss.Fills == nil || id < 0 || id >= len(ss.CellXfs.Xf) {
		return Fill{}
	}
	fillID := ss.CellXfs.Xf[id].FillID
	if fillID == nil || *fillID < 0 || *fillID >= len(ss.Fills.Fill) || ss.Fills.Fill[*fillID] == nil {
		return Fill{}
	}

	raw := ss.Fills.Fill[*fillID]
	if raw.PatternFill == nil {
		// gradient: painted with its first stop
		if rgb == "" {
			return Fill{Kind: FillAuto}
		}
		return Fill{Kind: FillRGB, RGB: rgb}
	}

	fg := raw.PatternFill.FgColor
	switch {
	case fg == nil || fg.Auto:
		return Fill{Kind: FillAuto}
	case fg.RGB != "":
		if rgb == "" {
			rgb = fg.RGB
		}
		return Fill{Kind: FillRGB, RGB: rgb}
	case fg.Theme != nil:
		if *fg.Theme < 0 || *fg.Theme > 9 || rgb == "" {
			return Fill{Kind: FillAuto}
		}
		return Fill{Kind: FillRGB, RGB: rgb}
	default:
		return Fill{Kind: FillIndexed}
	}
}

func parseISODate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO 8601 date %q", raw)
}
