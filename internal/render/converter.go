package render

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sheet2pdf/internal/layout"
	"sheet2pdf/internal/workbook"
)

const (
	textInsetX = 5.0
	textInsetY = 10.0
)

// Options tune a conversion.
type Options struct {
	Spacing layout.SpacingMode
	// Font is a PDF core font name; empty means Helvetica.
	Font   string
	Logger *slog.Logger
	// OnSheet, if set, is called after each sheet has been drawn.
	OnSheet func(SheetProgress)
}

// SheetProgress reports one finished sheet.
type SheetProgress struct {
	Sheet string
	Index int
	Total int
	Rows  int
}

// Result summarises a conversion.
type Result struct {
	Sheets   int
	Pages    int
	Rows     int
	Cells    int
	Fills    int
	Texts    int
	Clipped  int
	Duration time.Duration
}

// Converter draws every sheet of a workbook onto one canvas. A Converter
// serves a single conversion; it holds no state shared with others.
type Converter struct {
	canvas Canvas
	opts   Options
	logger *slog.Logger
}

func NewConverter(canvas Canvas, opts Options) *Converter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{canvas: canvas, opts: opts, logger: logger}
}

// Convert renders src sheet by sheet, one page each, in document order, and
// finishes the canvas. Any failure aborts the whole conversion.
func (c *Converter) Convert(ctx context.Context, src workbook.Source) (*Result, error) {
	start := time.Now()

	names := src.SheetNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrSourceRead, workbook.ErrNoSheets)
	}

	res := &Result{}
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sheet, err := src.LoadSheet(name)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %w", ErrSourceRead, name, err)
		}

		rows, err := c.renderSheet(ctx, sheet, res)
		if err != nil {
			return nil, err
		}
		res.Sheets++

		if c.opts.OnSheet != nil {
			c.opts.OnSheet(SheetProgress{Sheet: name, Index: i, Total: len(names), Rows: rows})
		}
	}

	if err := c.canvas.Finish(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	res.Duration = time.Since(start)
	return res, nil
}

func (c *Converter) renderSheet(ctx context.Context, sheet *workbook.Sheet, res *Result) (int, error) {
	plan, err := layout.PlanSheet(sheet, c.opts.Spacing)
	if err != nil {
		return 0, fmt.Errorf("%w: sheet %q: %w", ErrLayout, sheet.Name, err)
	}

	c.canvas.BeginPage(plan.Page)
	res.Pages++

	c.logger.Debug("Rendering sheet",
		"sheet", sheet.Name,
		"page", plan.Page.Name,
		"columns", sheet.NumColumns(),
		"rows", sheet.NumRows(),
	)

	y := plan.Page.Height
	for _, band := range plan.Rows {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		c.renderRow(sheet.Name, sheet.Rows[band.Index], band.Height, plan.Columns, y, res)
		y -= band.Height
		res.Rows++
	}
	return len(plan.Rows), nil
}

// renderRow draws one row band whose top edge is at y. Fill and border both
// span from y down to y-h.
func (c *Converter) renderRow(sheetName string, row workbook.Row, h float64, columns []float64, y float64, res *Result) {
	x := 0.0
	for col, cell := range row.Cells {
		if col >= len(columns) {
			res.Clipped += len(row.Cells) - col
			c.logger.Debug("Clipping cells beyond planned columns",
				"sheet", sheetName, "row", row.Index, "cells", len(row.Cells)-col)
			break
		}
		w := columns[col]

		fill, ok, err := decodeFill(cell.Fill)
		if err != nil {
			c.logger.Debug("Skipping fill", "sheet", sheetName, "row", row.Index, "column", col, "error", err)
		}
		if ok {
			c.canvas.FillRect(x, y-h, w, h, fill)
			res.Fills++
		}

		if text := layout.FormatCell(cell); text != "" {
			c.canvas.Text(x+textInsetX, y-h+textInsetY, cell.Size(), text)
			res.Texts++
		}

		c.canvas.StrokeRect(x, y-h, w, h)
		res.Cells++
		x += w
	}
}

// decodeFill returns the colour of an explicit RGB fill. Automatic and
// indexed fills report ok == false without an error.
func decodeFill(f workbook.Fill) (Color, bool, error) {
	if f.Kind != workbook.FillRGB {
		return Color{}, false, nil
	}

	s := strings.TrimPrefix(strings.TrimSpace(f.RGB), "#")
	if len(s) == 8 {
		// ARGB: drop the alpha channel
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 3 {
		return Color{}, false, fmt.Errorf("%w: %q", ErrColorDecode, f.RGB)
	}
	return Color{
		R: float64(b[0]) / 255,
		G: float64(b[1]) / 255,
		B: float64(b[2]) / 255,
	}, true, nil
}
