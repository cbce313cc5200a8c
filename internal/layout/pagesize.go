// Package layout computes where a worksheet lands on a PDF page: the paper
// size, the width of every column, the height of every row and the text
// shown in every cell.
package layout

const pointsPerMM = 72 / 25.4

// PageSize is a portrait paper size in points.
type PageSize struct {
	Name   string
	Width  float64
	Height float64
}

func isoSize(name string, wmm, hmm float64) PageSize {
	return PageSize{Name: name, Width: wmm * pointsPerMM, Height: hmm * pointsPerMM}
}

var (
	A4 = isoSize("A4", 210, 297)
	A3 = isoSize("A3", 297, 420)
	A2 = isoSize("A2", 420, 594)
	A1 = isoSize("A1", 594, 841)
	A0 = isoSize("A0", 841, 1189)
)

type pageBand struct {
	maxColumns int
	maxRows    int
	size       PageSize
}

// Bands are ordered from the smallest paper up.
var pageBands = []pageBand{
	{10, 50, A4},
	{20, 100, A3},
	{40, 200, A2},
	{80, 400, A1},
}

// SelectPageSize returns the smallest paper whose band holds both
// dimensions, or A0 when none does.
func SelectPageSize(columns, rows int) PageSize {
	for _, b := range pageBands {
		if columns <= b.maxColumns && rows <= b.maxRows {
			return b.size
		}
	}
	return A0
}
