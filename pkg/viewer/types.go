package viewer

import "github.com/recera/mapview/pkg/viewport"

// Controls names the DOM ids of the on-screen buttons
type Controls struct {
	ZoomIn  string // default "zoom-in"
	ZoomOut string // default "zoom-out"
	Reset   string // default "reset"
}

// Options configures how the viewer binds to the page
type Options struct {
	Viewport viewport.Options

	Controls Controls

	// DraggingClass is toggled on the SVG element while a drag is in progress.
	// Default "dragging"
	DraggingClass string

	// OnViewChange is called after every committed window (optional)
	OnViewChange func(w viewport.Window)
}

func (o *Options) withDefaults() Options {
	d := Options{
		Controls: Controls{
			ZoomIn:  "zoom-in",
			ZoomOut: "zoom-out",
			Reset:   "reset",
		},
		DraggingClass: "dragging",
	}
	if o == nil {
		return d
	}
	d.Viewport = o.Viewport
	if o.Controls.ZoomIn != "" {
		d.Controls.ZoomIn = o.Controls.ZoomIn
	}
	if o.Controls.ZoomOut != "" {
		d.Controls.ZoomOut = o.Controls.ZoomOut
	}
	if o.Controls.Reset != "" {
		d.Controls.Reset = o.Controls.Reset
	}
	if o.DraggingClass != "" {
		d.DraggingClass = o.DraggingClass
	}
	d.OnViewChange = o.OnViewChange
	return d
}

// buttonFor maps a control id back to the button it drives
func (c Controls) buttonFor(id string) (viewport.Button, bool) {
	switch id {
	case c.ZoomIn:
		return viewport.ButtonZoomIn, true
	case c.ZoomOut:
		return viewport.ButtonZoomOut, true
	case c.Reset:
		return viewport.ButtonReset, true
	}
	return 0, false
}
