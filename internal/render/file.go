package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"sheet2pdf/internal/workbook"
)

// Render draws src as a PDF onto w.
func Render(ctx context.Context, src workbook.Source, w io.Writer, opts Options) (*Result, error) {
	canvas := NewPDFCanvas(w, opts.Font)
	return NewConverter(canvas, opts).Convert(ctx, src)
}

// ConvertReader reads an .xlsx document from r and writes the PDF to w.
func ConvertReader(ctx context.Context, r io.Reader, w io.Writer, opts Options) (*Result, error) {
	src, err := workbook.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceRead, err)
	}
	defer src.Close()

	return Render(ctx, src, w, opts)
}

// ConvertFile converts the workbook at inputPath into a PDF at outputPath.
// The PDF is written to a temporary file in the destination directory and
// renamed into place on success, so a failed conversion leaves nothing
// behind.
func ConvertFile(ctx context.Context, inputPath, outputPath string, opts Options) (*Result, error) {
	src, err := workbook.OpenFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceRead, err)
	}
	defer src.Close()

	dir, base := filepath.Split(outputPath)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpPath := tmp.Name()

	res, err := Render(ctx, src, tmp, opts)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %w", ErrWrite, closeErr)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return res, nil
}

// OutputPath returns the PDF path for an input workbook: same name with a
// .pdf extension, placed in dir when dir is not empty.
func OutputPath(inputPath, dir string) string {
	name := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + ".pdf"
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	return filepath.Join(dir, name)
}

// ConvertBatch converts several workbooks into outDir, at most limit at a
// time. Results are returned in input order; the first failure cancels the
// remaining conversions.
func ConvertBatch(ctx context.Context, inputs []string, outDir string, limit int, opts Options) ([]*Result, error) {
	results := make([]*Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, in := range inputs {
		g.Go(func() error {
			res, err := ConvertFile(ctx, in, OutputPath(in, outDir), opts)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
