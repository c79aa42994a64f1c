//go:build js && wasm
// +build js,wasm

package viewer

import (
	"log"
	"syscall/js"

	"github.com/recera/mapview/pkg/live"
	"github.com/recera/mapview/pkg/viewport"
)

// RemoteController forwards input to a live session and draws the windows
// the server sends back. It implements API.
type RemoteController struct {
	client  *live.Client
	surface *svgSurface
	window  viewport.Window
	binding
}

// MountRemote binds svg to a live session. The view state lives on the
// server; this side only reports geometry and input and renders views.
func MountRemote(svg js.Value, client *live.Client, opts *Options) (*RemoteController, error) {
	if !svg.Truthy() {
		return nil, ErrNoElement
	}
	o := opts.withDefaults()

	c := &RemoteController{
		client:  client,
		surface: &svgSurface{el: svg, draggingClass: o.DraggingClass, onChange: o.OnViewChange},
	}

	client.OnView(func(_ uint64, w viewport.Window) {
		c.window = w
		c.surface.Present(w)
	})
	client.OnControl(c.handleControl)
	client.OnReady(c.sendGeometry)

	forward := func(t live.EventType) func(e js.Value) {
		return func(e js.Value) {
			p := pointerEvent(e)
			client.SendEvent(live.Event{Type: t, PointerID: p.ID, X: p.ClientX, Y: p.ClientY})
		}
	}
	c.on(svg, "pointerdown", func(e js.Value) {
		// Layout may have shifted since the last report
		c.sendGeometry()
		forward(live.EventPointerDown)(e)
	})
	c.on(svg, "pointermove", forward(live.EventPointerMove))
	c.on(svg, "pointerup", forward(live.EventPointerUp))
	c.on(svg, "pointercancel", forward(live.EventPointerCancel))
	c.on(svg, "lostpointercapture", forward(live.EventLostCapture))
	c.onWheel(svg, func(e js.Value) {
		c.sendGeometry()
		client.SendEvent(live.Event{
			Type:   live.EventWheel,
			DeltaY: e.Get("deltaY").Float(),
			X:      e.Get("clientX").Float(),
			Y:      e.Get("clientY").Float(),
		})
	})
	c.on(js.Global().Get("window"), "resize", func(js.Value) { c.sendGeometry() })
	c.bindControls(o.Controls, c.press)

	return c, nil
}

func (c *RemoteController) sendGeometry() {
	w, h := c.surface.PixelSize()
	c.client.SendEvent(live.Event{
		Type:   live.EventResize,
		Rect:   c.surface.ClientRect(),
		PixelW: w,
		PixelH: h,
	})
}

func (c *RemoteController) press(b viewport.Button) {
	var t live.EventType
	switch b {
	case viewport.ButtonZoomIn:
		t = live.EventZoomIn
	case viewport.ButtonZoomOut:
		t = live.EventZoomOut
	default:
		t = live.EventReset
	}
	c.client.SendEvent(live.Event{Type: t})
}

func (c *RemoteController) handleControl(verb string, args []uint64) {
	switch verb {
	case live.ControlHello:
		if len(args) > 0 {
			log.Printf("[Viewer] Attached to session at view #%d", args[0])
		}
	case live.ControlCapture, live.ControlRelease:
		if len(args) == 0 {
			return
		}
		id := uint32(args[0])
		// The pointer may already be gone by the time the server answers
		safeCall(func() {
			if verb == live.ControlCapture {
				c.surface.CapturePointer(id)
			} else {
				c.surface.ReleasePointer(id)
			}
		})
	case live.ControlDragging:
		c.surface.SetDragging(len(args) > 0 && args[0] == 1)
	case live.ControlReload:
		log.Println("[Viewer] Scene changed, reloading")
		js.Global().Get("location").Call("reload")
	}
}

func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Viewer] %v", r)
		}
	}()
	fn()
}

// ZoomIn asks the server to step one zoom level in
func (c *RemoteController) ZoomIn() { c.press(viewport.ButtonZoomIn) }

// ZoomOut asks the server to step one zoom level out
func (c *RemoteController) ZoomOut() { c.press(viewport.ButtonZoomOut) }

// Reset asks the server to restore the initial window
func (c *RemoteController) Reset() { c.press(viewport.ButtonReset) }

// Window returns the last window received from the server
func (c *RemoteController) Window() viewport.Window { return c.window }

// ViewBox returns the last window as a viewBox attribute value
func (c *RemoteController) ViewBox() string { return c.window.ViewBox() }

// Release unbinds every listener and closes the connection
func (c *RemoteController) Release() {
	c.binding.release()
	c.client.Close()
}
