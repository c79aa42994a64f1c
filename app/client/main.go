//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/recera/mapview/pkg/debug"
	"github.com/recera/mapview/pkg/live"
	"github.com/recera/mapview/pkg/viewer"
	"github.com/recera/mapview/pkg/viewport"
)

var (
	document js.Value
	window   js.Value
	console  js.Value
)

func main() {
	document = js.Global().Get("document")
	window = js.Global().Get("window")
	console = js.Global().Get("console")

	console.Call("log", "🚀 Map viewer WASM client starting...")

	// Wait for DOM ready
	if document.Get("readyState").String() != "loading" {
		onReady()
	} else {
		document.Call("addEventListener", "DOMContentLoaded", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			onReady()
			return nil
		}))
	}

	// Keep the WASM runtime alive
	select {}
}

func pageConfig() viewer.PageConfig {
	cfg := viewer.PageConfig{Mode: viewer.ModeLocal}
	raw := window.Get("__MAPVIEW__")
	if !raw.Truthy() {
		return cfg
	}
	text := js.Global().Get("JSON").Call("stringify", raw).String()
	if err := json.Unmarshal([]byte(text), &cfg); err != nil {
		console.Call("error", "Invalid __MAPVIEW__ config:", err.Error())
	}
	return cfg
}

func onReady() {
	cfg := pageConfig()
	if cfg.Debug {
		debug.EnableLogging()
	}

	svg := document.Call("getElementById", "map")
	if !svg.Truthy() {
		console.Call("error", "Could not find #map element")
		return
	}

	opts := &viewer.Options{Viewport: cfg.ViewportOptions()}
	if cfg.Overview {
		opts.OnViewChange = overviewUpdater(cfg)
	}

	var api viewer.API
	switch cfg.Mode {
	case viewer.ModeLive:
		client := live.NewClient(cfg.LiveURL)
		c, err := viewer.MountRemote(svg, client, opts)
		if err != nil {
			console.Call("error", err.Error())
			return
		}
		// The server keeps the session window, so a reconnect resumes the view
		client.OnClose(func() {
			var retry js.Func
			retry = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
				retry.Release()
				client.Connect()
				return nil
			})
			js.Global().Call("setTimeout", retry, 1000)
		})
		if err := client.Connect(); err != nil {
			console.Call("error", err.Error())
			return
		}
		api = c
	default:
		c, err := viewer.Mount(svg, opts)
		if err != nil {
			console.Call("error", err.Error())
			return
		}
		api = c
	}

	exposeAPI(api)
	console.Call("log", "✅ Map viewer initialized in", cfg.Mode, "mode")
}

// overviewUpdater points #overview at the server-rendered mini-map for each
// committed window, waiting for the view to settle first
func overviewUpdater(cfg viewer.PageConfig) func(w viewport.Window) {
	img := document.Call("getElementById", "overview")
	if !img.Truthy() {
		return nil
	}

	var seq uint64
	var latest viewport.Window
	timer := js.Null()
	refresh := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		seq++
		img.Set("src", cfg.OverviewURL(latest, seq))
		img.Get("style").Set("display", "block")
		return nil
	})

	return func(w viewport.Window) {
		latest = w
		js.Global().Call("clearTimeout", timer)
		timer = js.Global().Call("setTimeout", refresh, 150)
	}
}

// exposeAPI publishes window.mapview so page scripts can drive the viewer
func exposeAPI(api viewer.API) {
	action := func(fn func()) js.Func {
		return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			fn()
			return nil
		})
	}
	obj := js.Global().Get("Object").New()
	obj.Set("zoomIn", action(api.ZoomIn))
	obj.Set("zoomOut", action(api.ZoomOut))
	obj.Set("reset", action(api.Reset))
	obj.Set("viewBox", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		return api.ViewBox()
	}))
	obj.Set("release", action(api.Release))
	window.Set("mapview", obj)
}
