package render

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"sheet2pdf/internal/workbook"
)

// writeWorkbook saves a workbook with one sheet per entry of sheets, each
// holding the given rows starting at A1.
func writeWorkbook(t *testing.T, dir string, sheets map[string][][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName: %v", err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}

	path := filepath.Join(dir, "input.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := writeWorkbook(t, dir, map[string][][]any{
		"People": {
			{"Name", "Age", "City"},
			{"Ann", 30, "NYC"},
		},
	})
	out := filepath.Join(dir, "output.pdf")

	res, err := ConvertFile(context.Background(), in, out, Options{})
	if err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}
	if res.Pages != 1 || res.Rows != 2 || res.Texts != 6 {
		t.Errorf("Unexpected result %+v", res)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("Expected PDF header, got %q", data[:min(8, len(data))])
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	hidden, _ := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	if len(leftovers)+len(hidden) != 0 {
		t.Errorf("Expected no temporary files, got %v %v", leftovers, hidden)
	}
}

func TestConvertFile_MissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "output.pdf")

	_, err := ConvertFile(context.Background(), filepath.Join(dir, "missing.xlsx"), out, Options{})
	if !errors.Is(err, ErrSourceRead) {
		t.Errorf("Expected ErrSourceRead, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("Expected no output file")
	}
}

func TestConvertFile_UnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	in := writeWorkbook(t, dir, map[string][][]any{"S": {{"a"}}})

	_, err := ConvertFile(context.Background(), in, filepath.Join(dir, "no", "such", "dir", "out.pdf"), Options{})
	if !errors.Is(err, ErrWrite) {
		t.Errorf("Expected ErrWrite, got %v", err)
	}
}

func TestConvertReader(t *testing.T) {
	dir := t.TempDir()
	in := writeWorkbook(t, dir, map[string][][]any{"S": {{"a", "b"}, {1.5, true}}})

	raw, err := os.ReadFile(in)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var buf bytes.Buffer
	res, err := ConvertReader(context.Background(), bytes.NewReader(raw), &buf, Options{})
	if err != nil {
		t.Fatalf("ConvertReader: %v", err)
	}
	if res.Sheets != 1 || buf.Len() == 0 {
		t.Errorf("Unexpected result %+v with %d bytes", res, buf.Len())
	}

	if _, err := ConvertReader(context.Background(), bytes.NewReader([]byte("junk")), &buf, Options{}); !errors.Is(err, ErrSourceRead) {
		t.Errorf("Expected ErrSourceRead, got %v", err)
	}
}

func TestConvertBatch(t *testing.T) {
	var inputs []string
	for _, name := range []string{"a", "b", "c"} {
		dir := filepath.Join(t.TempDir(), name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		inputs = append(inputs, writeWorkbook(t, dir, map[string][][]any{name: {{name}}}))
	}
	// every input is named input.xlsx, so each PDF goes next to its input
	results, err := ConvertBatch(context.Background(), inputs, "", 2, Options{})
	if err != nil {
		t.Fatalf("ConvertBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, in := range inputs {
		if results[i] == nil || results[i].Sheets != 1 {
			t.Errorf("%s: unexpected result %+v", in, results[i])
		}
		if _, err := os.Stat(OutputPath(in, "")); err != nil {
			t.Errorf("%s: expected output: %v", in, err)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, dir, want string
	}{
		{"data/report.xlsx", "", filepath.Join("data", "report.pdf")},
		{"report.xlsx", "out", filepath.Join("out", "report.pdf")},
		{"noext", "", "noext.pdf"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.in, tt.dir); got != tt.want {
			t.Errorf("OutputPath(%q, %q): expected %q, got %q", tt.in, tt.dir, tt.want, got)
		}
	}
}

// TestConvert_PaletteFillsNotPainted reads a saved workbook whose fills use
// the legacy palette or the automatic colour; only the explicit one is drawn.
func TestConvert_PaletteFillsNotPainted(t *testing.T) {
	f := excelize.NewFile()
	const sheet = "Sheet1"

	refs := []string{"A1", "B1", "C1"}
	placeholders := []string{"111111", "222222", "00FF00"}
	var fillIDs []int
	for i, ref := range refs {
		if err := f.SetCellValue(sheet, ref, ref); err != nil {
			t.Fatalf("SetCellValue: %v", err)
		}
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{placeholders[i]}},
		})
		if err != nil {
			t.Fatalf("NewStyle: %v", err)
		}
		if err := f.SetCellStyle(sheet, ref, ref, style); err != nil {
			t.Fatalf("SetCellStyle: %v", err)
		}
		fillIDs = append(fillIDs, *f.Styles.CellXfs.Xf[style].FillID)
	}

	indexed := f.Styles.Fills.Fill[fillIDs[0]].PatternFill.FgColor
	indexed.RGB, indexed.Indexed = "", 64
	auto := f.Styles.Fills.Fill[fillIDs[1]].PatternFill.FgColor
	auto.RGB, auto.Auto = "", true

	path := filepath.Join(t.TempDir(), "palette.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	src, err := workbook.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer src.Close()

	rec := &recorder{}
	res, err := NewConverter(rec, Options{}).Convert(context.Background(), src)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if res.Fills != 1 || len(rec.fills) != 1 {
		t.Fatalf("Expected 1 fill, got %d (%v)", len(rec.fills), rec.colors)
	}
	if want := (Color{G: 1}); rec.colors[0] != want {
		t.Errorf("Expected %+v, got %+v", want, rec.colors[0])
	}
	if len(rec.texts) != 3 {
		t.Errorf("Expected 3 texts, got %d", len(rec.texts))
	}
}
