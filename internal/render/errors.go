package render

import "errors"

var (
	// ErrSourceRead means the workbook could not be opened or read.
	ErrSourceRead = errors.New("source read failed")
	// ErrLayout means a sheet could not be laid out.
	ErrLayout = errors.New("layout failed")
	// ErrColorDecode marks a malformed fill colour. It never aborts a
	// conversion: the cell is drawn without a fill.
	ErrColorDecode = errors.New("malformed fill colour")
	// ErrWrite means the PDF could not be produced or stored.
	ErrWrite = errors.New("write failed")
)
