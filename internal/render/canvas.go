// Package render walks a worksheet grid and draws it onto a PDF canvas.
package render

import (
	"io"
	"math"

	"github.com/go-pdf/fpdf"

	"sheet2pdf/internal/layout"
)

// Color is an RGB colour with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Canvas receives the drawing primitives of a conversion. Coordinates are
// PDF user space: points, origin at the bottom-left corner of the page. A
// rectangle is given by its bottom-left corner, width and height.
type Canvas interface {
	// BeginPage starts a new page, closing the previous one if any.
	BeginPage(size layout.PageSize)
	FillRect(x, y, w, h float64, c Color)
	StrokeRect(x, y, w, h float64)
	// Text draws one black line of text with its baseline at y.
	Text(x, y, fontSize float64, s string)
	// Finish completes the document. It is called once, after the last page.
	Finish() error
}

const DefaultFont = "Helvetica"

// PDFCanvas draws with fpdf and writes the document to w on Finish.
type PDFCanvas struct {
	pdf        *fpdf.Fpdf
	w          io.Writer
	font       string
	pageHeight float64
	translate  func(string) string
}

// NewPDFCanvas creates a canvas using one of the PDF core fonts.
func NewPDFCanvas(w io.Writer, font string) *PDFCanvas {
	if font == "" {
		font = DefaultFont
	}
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)

	return &PDFCanvas{
		pdf:       pdf,
		w:         w,
		font:      font,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (c *PDFCanvas) BeginPage(size layout.PageSize) {
	c.pdf.AddPageFormat("P", fpdf.SizeType{Wd: size.Width, Ht: size.Height})
	c.pageHeight = size.Height
	c.pdf.SetLineWidth(1)
	c.pdf.SetDrawColor(0, 0, 0)
}

// fpdf measures from the top-left corner, so y is flipped against the
// current page height.
func (c *PDFCanvas) top(y, h float64) float64 {
	return c.pageHeight - y - h
}

func (c *PDFCanvas) FillRect(x, y, w, h float64, col Color) {
	c.pdf.SetFillColor(channel(col.R), channel(col.G), channel(col.B))
	c.pdf.Rect(x, c.top(y, h), w, h, "F")
}

func (c *PDFCanvas) StrokeRect(x, y, w, h float64) {
	c.pdf.SetDrawColor(0, 0, 0)
	c.pdf.Rect(x, c.top(y, h), w, h, "D")
}

func (c *PDFCanvas) Text(x, y, fontSize float64, s string) {
	c.pdf.SetFont(c.font, "", fontSize)
	c.pdf.SetTextColor(0, 0, 0)
	c.pdf.Text(x, c.top(y, 0), c.translate(s))
}

func (c *PDFCanvas) Finish() error {
	if err := c.pdf.Error(); err != nil {
		return err
	}
	return c.pdf.Output(c.w)
}

func channel(v float64) int {
	return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
