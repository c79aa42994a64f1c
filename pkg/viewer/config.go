package viewer

import (
	"net/url"
	"strconv"

	"github.com/recera/mapview/pkg/viewport"
)

// OverviewPath is where the server renders the mini-map
const OverviewPath = "/mapview/overview/"

// Modes a served page can run in
const (
	// ModeLocal keeps the view state in the WASM module
	ModeLocal = "local"
	// ModeLive keeps the view state in a server session
	ModeLive = "live"
)

// PageConfig is the JSON the server injects into the page as window.__MAPVIEW__
type PageConfig struct {
	Mode    string `json:"mode"`
	LiveURL string `json:"liveURL,omitempty"`
	Debug   bool   `json:"debug,omitempty"`
	// Overview asks the page to show the server-rendered minimap
	Overview bool `json:"overview,omitempty"`

	SceneWidth  float64 `json:"sceneWidth"`
	SceneHeight float64 `json:"sceneHeight"`
	// SceneX and SceneY are the SVG viewBox origin the page subtracts from
	// the scene content
	SceneX      float64 `json:"sceneX,omitempty"`
	SceneY      float64 `json:"sceneY,omitempty"`
	MinWidth    float64 `json:"minWidth"`
	MaxWidth    float64 `json:"maxWidth"`
	StepRatio   float64 `json:"stepRatio"`
	InitialZoom float64 `json:"initialZoom"`
	AnchorX     float64 `json:"anchorX"`
	AnchorY     float64 `json:"anchorY"`
}

// NewPageConfig flattens viewport options for the page
func NewPageConfig(mode string, o viewport.Options) PageConfig {
	return PageConfig{
		Mode:        mode,
		SceneWidth:  o.Scene.Width,
		SceneHeight: o.Scene.Height,
		MinWidth:    o.Limits.MinWidth,
		MaxWidth:    o.Limits.MaxWidth,
		StepRatio:   o.StepRatio,
		InitialZoom: o.InitialZoom,
		AnchorX:     o.Anchor.X,
		AnchorY:     o.Anchor.Y,
	}
}

// ViewportOptions rebuilds the viewport options carried by the page config
func (p PageConfig) ViewportOptions() viewport.Options {
	return viewport.Options{
		Scene:       viewport.SceneBounds{Width: p.SceneWidth, Height: p.SceneHeight},
		Limits:      viewport.ZoomLimits{MinWidth: p.MinWidth, MaxWidth: p.MaxWidth},
		StepRatio:   p.StepRatio,
		InitialZoom: p.InitialZoom,
		Anchor:      viewport.Point{X: p.AnchorX, Y: p.AnchorY},
	}
}

// OverviewURL returns the mini-map image for window w, or "" when the page
// has the overview turned off. seq only busts the browser cache.
func (p PageConfig) OverviewURL(w viewport.Window, seq uint64) string {
	if !p.Overview {
		return ""
	}
	q := url.Values{}
	q.Set("viewBox", w.ViewBox())
	q.Set("v", strconv.FormatUint(seq, 10))
	return OverviewPath + "view.png?" + q.Encode()
}
