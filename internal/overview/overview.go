// Package overview renders a mini-map of the scene with the current view
// window outlined, as a PNG.
package overview

import (
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/recera/mapview/pkg/viewport"
)

// Options configures the mini-map appearance
type Options struct {
	Width       int     // default 320
	Background  string  // default "#0b0e14"
	SceneColor  string  // default "#1c2430"
	WindowColor string  // default "#6ea8fe"
	LineWidth   float64 // default 2
}

func (o *Options) withDefaults() Options {
	d := Options{
		Width:       320,
		Background:  "#0b0e14",
		SceneColor:  "#1c2430",
		WindowColor: "#6ea8fe",
		LineWidth:   2,
	}
	if o == nil {
		return d
	}
	if o.Width > 0 {
		d.Width = o.Width
	}
	if o.Background != "" {
		d.Background = o.Background
	}
	if o.SceneColor != "" {
		d.SceneColor = o.SceneColor
	}
	if o.WindowColor != "" {
		d.WindowColor = o.WindowColor
	}
	if o.LineWidth > 0 {
		d.LineWidth = o.LineWidth
	}
	return d
}

// Size returns the pixel size of a mini-map width pixels wide, keeping the
// scene aspect
func Size(scene viewport.SceneBounds, width int) (int, int) {
	h := int(math.Round(float64(width) * scene.Aspect()))
	if h < 1 {
		h = 1
	}
	return width, h
}

// Project maps a window from scene units into mini-map pixels
func Project(scene viewport.SceneBounds, win viewport.Window, width int) viewport.Rect {
	s := float64(width) / scene.Width
	return viewport.Rect{Left: win.X * s, Top: win.Y * s, Width: win.W * s, Height: win.H * s}
}

// Render draws the scene extent and the window outline and writes a PNG to w
func Render(w io.Writer, scene viewport.SceneBounds, win viewport.Window, opts *Options) error {
	if scene.Width <= 0 || scene.Height <= 0 {
		return fmt.Errorf("failed to render overview: empty scene %gx%g", scene.Width, scene.Height)
	}
	o := opts.withDefaults()
	pw, ph := Size(scene, o.Width)

	dc := gg.NewContext(pw, ph)
	defer dc.Close()

	dc.ClearWithColor(gg.Hex(o.Background))

	// Inset by a pixel so the scene edge stays visible against the background
	dc.SetHexColor(o.SceneColor)
	dc.DrawRectangle(1, 1, float64(pw)-2, float64(ph)-2)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("failed to fill scene: %w", err)
	}

	r := Project(scene, win, pw)
	window := gg.Hex(o.WindowColor)

	dc.SetRGBA(window.R, window.G, window.B, 0.25)
	dc.DrawRectangle(r.Left, r.Top, r.Width, r.Height)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("failed to fill window: %w", err)
	}

	dc.SetRGBA(window.R, window.G, window.B, 1)
	dc.SetLineWidth(o.LineWidth)
	dc.DrawRectangle(r.Left, r.Top, r.Width, r.Height)
	if err := dc.Stroke(); err != nil {
		return fmt.Errorf("failed to stroke window: %w", err)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode overview: %w", err)
	}
	return nil
}
