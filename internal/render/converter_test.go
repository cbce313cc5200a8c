package render

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"sheet2pdf/internal/layout"
	"sheet2pdf/internal/workbook"
)

type rect struct {
	X, Y, W, H float64
}

type textOp struct {
	X, Y, Size float64
	S          string
}

// recorder is a Canvas that keeps every primitive it receives.
type recorder struct {
	pages    []layout.PageSize
	fills    []rect
	colors   []Color
	strokes  []rect
	texts    []textOp
	finished int
	err      error
}

func (r *recorder) BeginPage(size layout.PageSize) { r.pages = append(r.pages, size) }

func (r *recorder) FillRect(x, y, w, h float64, c Color) {
	r.fills = append(r.fills, rect{x, y, w, h})
	r.colors = append(r.colors, c)
}

func (r *recorder) StrokeRect(x, y, w, h float64) { r.strokes = append(r.strokes, rect{x, y, w, h}) }

func (r *recorder) Text(x, y, size float64, s string) {
	r.texts = append(r.texts, textOp{x, y, size, s})
}

func (r *recorder) Finish() error {
	r.finished++
	return r.err
}

// bands returns the distinct row bands (top, height) of the stroked borders.
func (r *recorder) bands() []rect {
	var out []rect
	seen := map[float64]bool{}
	for _, s := range r.strokes {
		if !seen[s.Y] {
			seen[s.Y] = true
			out = append(out, rect{Y: s.Y, H: s.H})
		}
	}
	return out
}

func str(s string) workbook.Cell { return workbook.Cell{Type: workbook.TypeString, Value: s} }
func num(n int64) workbook.Cell  { return workbook.Cell{Type: workbook.TypeNumber, Value: n} }

func sheetOf(name string, rows ...[]workbook.Cell) *workbook.Sheet {
	s := &workbook.Sheet{Name: name}
	for i, cells := range rows {
		s.Rows = append(s.Rows, workbook.Row{Index: i, Cells: cells})
	}
	return s
}

func peopleSheet() *workbook.Sheet {
	return sheetOf("People",
		[]workbook.Cell{str("Name"), str("Age"), str("City")},
		[]workbook.Cell{str("Ann"), num(30), str("NYC")},
	)
}

func convert(t *testing.T, opts Options, sheets ...*workbook.Sheet) (*recorder, *Result) {
	t.Helper()
	rec := &recorder{}
	res, err := NewConverter(rec, opts).Convert(context.Background(), workbook.NewMemory(sheets...))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	return rec, res
}

func TestConvert_SingleSheet(t *testing.T) {
	rec, res := convert(t, Options{}, peopleSheet())

	if len(rec.pages) != 1 || rec.pages[0].Name != "A4" {
		t.Fatalf("Expected one A4 page, got %v", rec.pages)
	}
	if rec.finished != 1 {
		t.Errorf("Expected Finish once, got %d", rec.finished)
	}

	bands := rec.bands()
	if len(bands) != 2 {
		t.Fatalf("Expected 2 row bands, got %d", len(bands))
	}
	if math.Abs(bands[0].H-2*bands[1].H) > 1e-9 {
		t.Errorf("Expected header band %v to be twice data band %v", bands[0].H, bands[1].H)
	}

	if len(rec.texts) != 6 {
		t.Errorf("Expected 6 text draws, got %d", len(rec.texts))
	}
	for _, tx := range rec.texts {
		if tx.S == "" {
			t.Error("Unexpected empty text draw")
		}
		if tx.Size != workbook.DefaultFontSize {
			t.Errorf("Expected default font size, got %v", tx.Size)
		}
	}

	want := &Result{Sheets: 1, Pages: 1, Rows: 2, Cells: 6, Texts: 6}
	if diff := cmp.Diff(want, res, cmpopts.IgnoreFields(Result{}, "Duration")); diff != "" {
		t.Errorf("Result mismatch (-want +got):\n%s", diff)
	}
}

func TestConvert_Geometry(t *testing.T) {
	rec, _ := convert(t, Options{}, peopleSheet())

	page := layout.A4
	header := 20 * 1.33333 * 2
	data := 20 * 1.33333

	// first border: top-left cell, spanning from the page top downward
	first := rec.strokes[0]
	if first.X != 0 || math.Abs(first.Y-(page.Height-header)) > 1e-9 || math.Abs(first.H-header) > 1e-9 {
		t.Errorf("Unexpected first border %+v", first)
	}

	// second row starts right below the header
	fourth := rec.strokes[3]
	if fourth.X != 0 || math.Abs(fourth.Y-(page.Height-header-data)) > 1e-9 {
		t.Errorf("Unexpected second row border %+v", fourth)
	}

	// x advances by column width and the row spans the page width
	row := rec.strokes[:3]
	if math.Abs(row[2].X+row[2].W-page.Width) > 1e-9 {
		t.Errorf("Expected row to end at page width %v, got %v", page.Width, row[2].X+row[2].W)
	}
	if math.Abs(row[1].X-row[0].W) > 1e-9 {
		t.Errorf("Expected second column at %v, got %v", row[0].W, row[1].X)
	}

	// text anchor
	tx := rec.texts[0]
	if tx.X != 5 || math.Abs(tx.Y-(page.Height-header+10)) > 1e-9 || tx.S != "Name" {
		t.Errorf("Unexpected text draw %+v", tx)
	}
}

func TestConvert_LegacySpacingOvershoots(t *testing.T) {
	rec, _ := convert(t, Options{Spacing: layout.SpacingLegacy}, peopleSheet())
	last := rec.strokes[2]
	if math.Abs(last.X+last.W-layout.A4.Width*1.1) > 1e-9 {
		t.Errorf("Expected row to end at %v, got %v", layout.A4.Width*1.1, last.X+last.W)
	}
}

func TestConvert_FillCoincidesWithBorder(t *testing.T) {
	s := peopleSheet()
	s.Rows[1].Cells[2].Fill = workbook.Fill{Kind: workbook.FillRGB, RGB: "FF8000"}
	rec, res := convert(t, Options{}, s)

	if len(rec.fills) != 1 {
		t.Fatalf("Expected 1 fill, got %d", len(rec.fills))
	}
	if diff := cmp.Diff(rec.strokes[5], rec.fills[0]); diff != "" {
		t.Errorf("Fill and border differ (-border +fill):\n%s", diff)
	}
	want := Color{R: 1, G: 128.0 / 255, B: 0}
	if diff := cmp.Diff(want, rec.colors[0]); diff != "" {
		t.Errorf("Color mismatch (-want +got):\n%s", diff)
	}
	if res.Fills != 1 {
		t.Errorf("Expected Fills 1, got %d", res.Fills)
	}
}

func TestConvert_FillKinds(t *testing.T) {
	tests := []struct {
		name  string
		fill  workbook.Fill
		fills int
	}{
		{"none", workbook.Fill{}, 0},
		{"automatic", workbook.Fill{Kind: workbook.FillAuto}, 0},
		{"indexed", workbook.Fill{Kind: workbook.FillIndexed, RGB: "FF0000"}, 0},
		{"malformed", workbook.Fill{Kind: workbook.FillRGB, RGB: "F00"}, 0},
		{"not hex", workbook.Fill{Kind: workbook.FillRGB, RGB: "GGHHII"}, 0},
		{"argb", workbook.Fill{Kind: workbook.FillRGB, RGB: "FF00FF00"}, 1},
		{"hash", workbook.Fill{Kind: workbook.FillRGB, RGB: "#00FF00"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := peopleSheet()
			s.Rows[0].Cells[0].Fill = tt.fill
			rec, _ := convert(t, Options{}, s)

			if len(rec.fills) != tt.fills {
				t.Errorf("Expected %d fills, got %d", tt.fills, len(rec.fills))
			}
			// border and text are drawn regardless
			if len(rec.strokes) != 6 || len(rec.texts) != 6 {
				t.Errorf("Expected 6 borders and 6 texts, got %d and %d", len(rec.strokes), len(rec.texts))
			}
		})
	}
}

func TestConvert_EmptyRowIsInvisible(t *testing.T) {
	withGap := sheetOf("Gap",
		[]workbook.Cell{str("Name"), str("Age"), str("City")},
		[]workbook.Cell{{}, {}, {}},
		[]workbook.Cell{str("Ann"), num(30), str("NYC")},
	)

	gapRec, gapRes := convert(t, Options{}, withGap)
	plainRec, _ := convert(t, Options{}, peopleSheet())

	if gapRes.Rows != 2 {
		t.Errorf("Expected 2 rendered rows, got %d", gapRes.Rows)
	}
	if diff := cmp.Diff(plainRec.strokes, gapRec.strokes); diff != "" {
		t.Errorf("Empty row changed the drawing (-plain +gap):\n%s", diff)
	}
}

func TestConvert_FontSize(t *testing.T) {
	s := peopleSheet()
	s.Rows[0].Cells[1].FontSize = 18
	rec, _ := convert(t, Options{}, s)

	if rec.texts[1].Size != 18 {
		t.Errorf("Expected font size 18, got %v", rec.texts[1].Size)
	}
}

func TestConvert_RaggedRowIsClipped(t *testing.T) {
	s := peopleSheet()
	s.Rows[1].Cells = append(s.Rows[1].Cells, str("extra"), str("more"))
	rec, res := convert(t, Options{}, s)

	if res.Clipped != 2 {
		t.Errorf("Expected 2 clipped cells, got %d", res.Clipped)
	}
	if len(rec.strokes) != 6 {
		t.Errorf("Expected 6 borders, got %d", len(rec.strokes))
	}
}

func TestConvert_PagePerSheet(t *testing.T) {
	wide := &workbook.Sheet{Name: "Wide", Rows: []workbook.Row{{Cells: make([]workbook.Cell, 15)}}}
	wide.Rows[0].Cells[0] = str("x")

	var progress []SheetProgress
	opts := Options{OnSheet: func(p SheetProgress) { progress = append(progress, p) }}
	rec, res := convert(t, opts, peopleSheet(), wide, &workbook.Sheet{Name: "Empty"})

	var names []string
	for _, p := range rec.pages {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"A4", "A3", "A4"}, names); diff != "" {
		t.Errorf("Pages mismatch (-want +got):\n%s", diff)
	}
	if rec.finished != 1 {
		t.Errorf("Expected Finish once, got %d", rec.finished)
	}
	if res.Sheets != 3 || res.Pages != 3 {
		t.Errorf("Expected 3 sheets and pages, got %d and %d", res.Sheets, res.Pages)
	}

	wantProgress := []SheetProgress{
		{Sheet: "People", Index: 0, Total: 3, Rows: 2},
		{Sheet: "Wide", Index: 1, Total: 3, Rows: 1},
		{Sheet: "Empty", Index: 2, Total: 3, Rows: 0},
	}
	if diff := cmp.Diff(wantProgress, progress); diff != "" {
		t.Errorf("Progress mismatch (-want +got):\n%s", diff)
	}
}

type failingSource struct{ workbook.Source }

func (failingSource) SheetNames() []string { return []string{"broken"} }

func (failingSource) LoadSheet(string) (*workbook.Sheet, error) {
	return nil, errors.New("corrupt sheet")
}

func TestConvert_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewConverter(&recorder{}, Options{}).Convert(ctx, workbook.NewMemory()); !errors.Is(err, ErrSourceRead) {
		t.Errorf("Expected ErrSourceRead for empty workbook, got %v", err)
	}

	if _, err := NewConverter(&recorder{}, Options{}).Convert(ctx, failingSource{}); !errors.Is(err, ErrSourceRead) {
		t.Errorf("Expected ErrSourceRead for unreadable sheet, got %v", err)
	}

	rec := &recorder{err: errors.New("disk full")}
	if _, err := NewConverter(rec, Options{}).Convert(ctx, workbook.NewMemory(peopleSheet())); !errors.Is(err, ErrWrite) {
		t.Errorf("Expected ErrWrite, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := NewConverter(&recorder{}, Options{}).Convert(cancelled, workbook.NewMemory(peopleSheet())); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDecodeFill(t *testing.T) {
	c, ok, err := decodeFill(workbook.Fill{Kind: workbook.FillRGB, RGB: "336699"})
	if err != nil || !ok {
		t.Fatalf("Expected colour, got ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(Color{R: 0.2, G: 0.4, B: 0.6}, c, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Color mismatch (-want +got):\n%s", diff)
	}

	if _, ok, err := decodeFill(workbook.Fill{Kind: workbook.FillRGB, RGB: "12345"}); ok || !errors.Is(err, ErrColorDecode) {
		t.Errorf("Expected ErrColorDecode, got ok=%v err=%v", ok, err)
	}

	if _, ok, err := decodeFill(workbook.Fill{Kind: workbook.FillAuto}); ok || err != nil {
		t.Errorf("Expected no colour and no error, got ok=%v err=%v", ok, err)
	}
}
