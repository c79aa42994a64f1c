package viewport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedViewBox is returned when a viewBox attribute cannot be parsed
var ErrMalformedViewBox = errors.New("malformed viewBox")

// ViewBox formats the window as an SVG viewBox attribute value
func (w Window) ViewBox() string {
	return formatFloat(w.X) + " " + formatFloat(w.Y) + " " + formatFloat(w.W) + " " + formatFloat(w.H)
}

func (w Window) String() string {
	return fmt.Sprintf("x=%.2f y=%.2f w=%.2f h=%.2f", w.X, w.Y, w.W, w.H)
}

// ParseViewBox parses "min-x min-y width height", separated by whitespace
// and/or commas as SVG allows.
func ParseViewBox(s string) (Window, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return Window{}, fmt.Errorf("%w: want 4 numbers, got %d in %q", ErrMalformedViewBox, len(fields), s)
	}
	var vals [4]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Window{}, fmt.Errorf("%w: %q: %v", ErrMalformedViewBox, f, err)
		}
		vals[i] = v
	}
	if vals[2] < 0 || vals[3] < 0 {
		return Window{}, fmt.Errorf("%w: negative size in %q", ErrMalformedViewBox, s)
	}
	return Window{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
