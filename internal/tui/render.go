package tui

import (
	"math"
	"strings"

	"github.com/recera/mapview/pkg/viewport"
)

// gridLines is roughly how many graticule lines span the window
const gridLines = 8

// niceStep returns the smallest 1, 2 or 5 times a power of ten that splits
// span into at most lines parts
func niceStep(span float64, lines int) float64 {
	if span <= 0 || lines <= 0 {
		return 1
	}
	raw := span / float64(lines)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*mag >= raw {
			return m * mag
		}
	}
	return 10 * mag
}

// renderGrid draws the scene graticule inside win onto a cols x rows cell
// grid. A cell shows a line when a multiple of step falls inside its span.
func renderGrid(win viewport.Window, cols, rows int, step float64) []string {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	cw := win.W / float64(cols)
	ch := win.H / float64(rows)

	vertical := make([]bool, cols)
	for c := range vertical {
		vertical[c] = crosses(win.X+float64(c)*cw, cw, step)
	}

	out := make([]string, rows)
	var b strings.Builder
	for r := 0; r < rows; r++ {
		horizontal := crosses(win.Y+float64(r)*ch, ch, step)
		b.Reset()
		for c := 0; c < cols; c++ {
			switch {
			case vertical[c] && horizontal:
				b.WriteRune('┼')
			case vertical[c]:
				b.WriteRune('│')
			case horizontal:
				b.WriteRune('─')
			default:
				b.WriteByte(' ')
			}
		}
		out[r] = b.String()
	}
	return out
}

// crosses reports whether [start, start+size) contains a multiple of step
func crosses(start, size, step float64) bool {
	first := math.Ceil(start/step) * step
	return first < start+size
}
