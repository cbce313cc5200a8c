package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
)

// Generates sample workbooks for manual testing and the benchmark: a header
// row, mixed cell types, a few filled cells, and one sheet per -sheets.
func main() {
	out := flag.String("out", "sample.xlsx", "Output workbook")
	sheets := flag.Int("sheets", 2, "Number of sheets")
	rows := flag.Int("rows", 50, "Data rows per sheet")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	f := excelize.NewFile()
	defer f.Close()

	highlight, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFF2CC"}},
		Font: &excelize.Font{Size: 14, Bold: true},
	})
	if err != nil {
		slog.Error("Failed to create style", "error", err)
		os.Exit(1)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		slog.Error("Failed to create style", "error", err)
		os.Exit(1)
	}

	currencies := []string{"USD", "EUR", "GBP", "JPY"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for s := 1; s <= *sheets; s++ {
		name := fmt.Sprintf("Transactions %d", s)
		if s == 1 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				slog.Error("Failed to rename sheet", "error", err)
				os.Exit(1)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			slog.Error("Failed to add sheet", "error", err)
			os.Exit(1)
		}

		header := []any{"ID", "Customer", "Amount", "Currency", "Paid", "Date"}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			slog.Error("Failed to write header", "error", err)
			os.Exit(1)
		}
		_ = f.SetCellStyle(name, "A1", "F1", highlight)

		for r := 0; r < *rows; r++ {
			row := []any{
				r + 1,
				fmt.Sprintf("Customer %03d", rand.IntN(500)),
				float64(rand.IntN(1_000_000)) / 100,
				currencies[rand.IntN(len(currencies))],
				rand.IntN(2) == 0,
				start.AddDate(0, 0, rand.IntN(365)),
			}
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				slog.Error("Failed to write row", "row", r+2, "error", err)
				os.Exit(1)
			}
			dateCell, _ := excelize.CoordinatesToCellName(6, r+2)
			_ = f.SetCellStyle(name, dateCell, dateCell, dateStyle)
		}
		slog.Info("Sheet generated", "sheet", name, "rows", *rows)
	}

	if err := f.SaveAs(*out); err != nil {
		slog.Error("Failed to save workbook", "path", *out, "error", err)
		os.Exit(1)
	}
	slog.Info("Workbook written", "path", *out)
}
