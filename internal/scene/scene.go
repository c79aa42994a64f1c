// Package scene reads the extent of an SVG scene from its root element.
package scene

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/recera/mapview/pkg/viewport"
)

// ErrNoBounds is returned when the root element carries no usable extent
var ErrNoBounds = errors.New("svg root has no viewBox or width/height")

// Info describes the root <svg> element of a scene
type Info struct {
	Bounds viewport.SceneBounds
	// ViewBox is the root viewBox, zero when the file has none
	ViewBox viewport.Window
	// HasViewBox reports whether the root declared a viewBox
	HasViewBox bool
	// Origin is the top-left corner of the root viewBox. The viewer shifts
	// the scene content by -Origin so its coordinate space starts at 0,0.
	Origin viewport.Point
}

// Probe reads the scene bounds of the SVG file at path
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open scene: %w", err)
	}
	defer f.Close()

	info, err := ProbeReader(f)
	if err != nil {
		return Info{}, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	return info, nil
}

// ProbeReader reads the scene bounds from the first element of an SVG
// document. The viewBox size wins over width/height because it is the
// coordinate space the viewer pans in.
func ProbeReader(r io.Reader) (Info, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return Info{}, errors.New("no root element")
		}
		if err != nil {
			return Info{}, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return Info{}, fmt.Errorf("root element is <%s>, not <svg>", start.Name.Local)
		}
		return rootInfo(start)
	}
}

func rootInfo(el xml.StartElement) (Info, error) {
	var info Info
	var width, height string
	for _, a := range el.Attr {
		switch a.Name.Local {
		case "viewBox":
			vb, err := viewport.ParseViewBox(a.Value)
			if err != nil {
				return Info{}, err
			}
			info.ViewBox = vb
			info.HasViewBox = true
		case "width":
			width = a.Value
		case "height":
			height = a.Value
		}
	}

	if info.HasViewBox && info.ViewBox.W > 0 && info.ViewBox.H > 0 {
		info.Bounds = viewport.SceneBounds{Width: info.ViewBox.W, Height: info.ViewBox.H}
		info.Origin = viewport.Point{X: info.ViewBox.X, Y: info.ViewBox.Y}
		return info, nil
	}

	w, werr := parseLength(width)
	h, herr := parseLength(height)
	if werr != nil || herr != nil || w <= 0 || h <= 0 {
		return Info{}, ErrNoBounds
	}
	info.Bounds = viewport.SceneBounds{Width: w, Height: h}
	return info, nil
}

// parseLength accepts user units and px; relative units have no fixed size
func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	if s == "" {
		return 0, ErrNoBounds
	}
	return strconv.ParseFloat(s, 64)
}
