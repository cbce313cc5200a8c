package workbook

import "errors"

var (
	ErrNoSheets     = errors.New("workbook has no worksheets")
	ErrSheetMissing = errors.New("worksheet not found")
)

// Source abstracts the workbook being converted.
type Source interface {
	// SheetNames lists the worksheets in document order.
	SheetNames() []string

	// LoadSheet reads the full grid of one worksheet, values only.
	LoadSheet(name string) (*Sheet, error)

	// Close releases the underlying document.
	Close() error
}

// Memory is a Source over sheets already held in memory.
type Memory struct {
	sheets []*Sheet
}

// NewMemory returns a Source serving the given sheets in order.
func NewMemory(sheets ...*Sheet) *Memory {
	return &Memory{sheets: sheets}
}

func (m *Memory) SheetNames() []string {
	names := make([]string, len(m.sheets))
	for i, s := range m.sheets {
		names[i] = s.Name
	}
	return names
}

func (m *Memory) LoadSheet(name string) (*Sheet, error) {
	for _, s := range m.sheets {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, ErrSheetMissing
}

func (m *Memory) Close() error {
	return nil
}
