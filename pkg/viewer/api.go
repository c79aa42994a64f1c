package viewer

import "github.com/recera/mapview/pkg/viewport"

// API is the imperative handle a page keeps to drive a mounted viewer
// from its own code.
type API interface {
	ZoomIn()
	ZoomOut()
	Reset()
	Window() viewport.Window
	ViewBox() string
	Release()
}

// Note: Controller implements API in WASM builds only
