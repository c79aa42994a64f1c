//go:build js && wasm
// +build js,wasm

package viewer

import (
	"errors"
	"syscall/js"

	"github.com/recera/mapview/pkg/viewport"
)

// ErrNoElement is returned when the SVG element to bind is missing
var ErrNoElement = errors.New("viewer: svg element not found")

// svgSurface renders a window by rewriting the viewBox of an <svg> element
type svgSurface struct {
	el            js.Value
	draggingClass string
	onChange      func(viewport.Window)
}

func (s *svgSurface) Present(w viewport.Window) {
	s.el.Call("setAttribute", "viewBox", w.ViewBox())
	if s.onChange != nil {
		s.onChange(w)
	}
}

func (s *svgSurface) PixelSize() (float64, float64) {
	return s.el.Get("clientWidth").Float(), s.el.Get("clientHeight").Float()
}

func (s *svgSurface) ClientRect() viewport.Rect {
	return clientRect(s.el)
}

func (s *svgSurface) CapturePointer(id uint32) {
	s.el.Call("setPointerCapture", id)
}

func (s *svgSurface) ReleasePointer(id uint32) {
	if s.el.Call("hasPointerCapture", id).Bool() {
		s.el.Call("releasePointerCapture", id)
	}
}

func (s *svgSurface) SetDragging(dragging bool) {
	if dragging {
		s.el.Get("classList").Call("add", s.draggingClass)
	} else {
		s.el.Get("classList").Call("remove", s.draggingClass)
	}
}

func clientRect(el js.Value) viewport.Rect {
	r := el.Call("getBoundingClientRect")
	return viewport.Rect{
		Left:   r.Get("left").Float(),
		Top:    r.Get("top").Float(),
		Width:  r.Get("width").Float(),
		Height: r.Get("height").Float(),
	}
}

func pointerEvent(e js.Value) viewport.PointerEvent {
	return viewport.PointerEvent{
		ID:      uint32(e.Get("pointerId").Int()),
		ClientX: e.Get("clientX").Float(),
		ClientY: e.Get("clientY").Float(),
	}
}

// Controller owns the listeners bound to one SVG element and implements API
type Controller struct {
	adapter *viewport.GestureAdapter
	binding
}

// Mount binds pan and zoom gestures on svg and the configured buttons to a
// fresh view state, then draws the initial window.
func Mount(svg js.Value, opts *Options) (*Controller, error) {
	if !svg.Truthy() {
		return nil, ErrNoElement
	}
	o := opts.withDefaults()

	surface := &svgSurface{el: svg, draggingClass: o.DraggingClass, onChange: o.OnViewChange}
	state := viewport.NewViewState(&o.Viewport)
	c := &Controller{adapter: viewport.NewGestureAdapter(state, surface)}

	c.on(svg, "pointerdown", func(e js.Value) { c.adapter.PointerDown(pointerEvent(e)) })
	c.on(svg, "pointermove", func(e js.Value) { c.adapter.PointerMove(pointerEvent(e)) })
	c.on(svg, "pointerup", func(e js.Value) { c.adapter.PointerUp(pointerEvent(e)) })
	c.on(svg, "pointercancel", func(e js.Value) { c.adapter.PointerCancel(pointerEvent(e)) })
	c.on(svg, "lostpointercapture", func(e js.Value) { c.adapter.LostCapture(pointerEvent(e)) })
	c.onWheel(svg, func(e js.Value) {
		c.adapter.Wheel(viewport.WheelEvent{
			DeltaY:  e.Get("deltaY").Float(),
			ClientX: e.Get("clientX").Float(),
			ClientY: e.Get("clientY").Float(),
		})
	})
	c.bindControls(o.Controls, c.adapter.Press)

	c.adapter.Sync()
	return c, nil
}

// ZoomIn steps one zoom level in about the window center
func (c *Controller) ZoomIn() { c.adapter.Press(viewport.ButtonZoomIn) }

// ZoomOut steps one zoom level out about the window center
func (c *Controller) ZoomOut() { c.adapter.Press(viewport.ButtonZoomOut) }

// Reset restores the initial window
func (c *Controller) Reset() { c.adapter.Press(viewport.ButtonReset) }

// Window returns the current window
func (c *Controller) Window() viewport.Window { return c.adapter.State().Get() }

// ViewBox returns the current window as a viewBox attribute value
func (c *Controller) ViewBox() string { return c.Window().ViewBox() }

// Release drops any drag in progress and unbinds every listener
func (c *Controller) Release() {
	c.adapter.Abort()
	c.binding.release()
}

// binding tracks registered listeners so they can be removed and released
type binding struct {
	listeners []listener
}

type listener struct {
	target js.Value
	event  string
	fn     js.Func
}

func (b *binding) on(target js.Value, event string, handler func(e js.Value)) {
	fn := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		handler(args[0])
		return nil
	})
	target.Call("addEventListener", event, fn)
	b.listeners = append(b.listeners, listener{target: target, event: event, fn: fn})
}

// onWheel registers a non-passive wheel listener so the page never scrolls
// under the viewer, including for ticks the adapter ignores.
func (b *binding) onWheel(target js.Value, handler func(e js.Value)) {
	fn := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		args[0].Call("preventDefault")
		handler(args[0])
		return nil
	})
	target.Call("addEventListener", "wheel", fn, map[string]interface{}{"passive": false})
	b.listeners = append(b.listeners, listener{target: target, event: "wheel", fn: fn})
}

func (b *binding) bindControls(ctl Controls, press func(viewport.Button)) {
	doc := js.Global().Get("document")
	for _, id := range []string{ctl.ZoomIn, ctl.ZoomOut, ctl.Reset} {
		el := doc.Call("getElementById", id)
		if !el.Truthy() {
			continue
		}
		btn, _ := ctl.buttonFor(id)
		b.on(el, "click", func(js.Value) { press(btn) })
	}
}

func (b *binding) release() {
	for _, l := range b.listeners {
		l.target.Call("removeEventListener", l.event, l.fn)
		l.fn.Release()
	}
	b.listeners = nil
}
