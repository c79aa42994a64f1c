package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"

	"github.com/recera/mapview/internal/assets"
	"github.com/recera/mapview/pkg/live"
	"github.com/recera/mapview/pkg/viewer"
	"github.com/recera/mapview/pkg/viewport"
)

const testScene = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 2000 1000"><rect width="2000" height="1000"/></svg>`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestDevServer(t *testing.T, dir string) (*devServer, *httptest.Server) {
	t.Helper()
	flags := &serveFlags{projectFlags: projectFlags{dir: dir}}
	cfg, err := flags.load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	s := &devServer{
		flags:   flags,
		config:  cfg,
		live:    live.NewServer(cfg.ViewportOptions()),
		watched: make(map[string]bool),
		static:  assets.Static(),
	}
	ts := httptest.NewServer(s.routes())
	t.Cleanup(func() {
		ts.Close()
		s.live.Close()
	})
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestServe_Index(t *testing.T) {
	_, ts := newTestDevServer(t, t.TempDir())

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, `id="map"`) {
		t.Error("Expected index page with the map element")
	}

	if resp, _ := get(t, ts.URL+"/mapview/bootstrap.js"); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected bootstrap.js, got %d", resp.StatusCode)
	}
	if resp, _ := get(t, ts.URL+"/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", resp.StatusCode)
	}
}

func TestServe_PageConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scene.svg"), testScene)
	writeFile(t, filepath.Join(dir, "mapview.yaml"), "scene:\n  path: scene.svg\ndev:\n  mode: live\n")
	_, ts := newTestDevServer(t, dir)

	_, body := get(t, ts.URL+"/mapview/config.js")
	const prefix = "window.__MAPVIEW__ = "
	if !strings.HasPrefix(body, prefix) {
		t.Fatalf("Expected config assignment, got %q", body)
	}

	var page viewer.PageConfig
	payload := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(body, prefix)), ";")
	if err := json.Unmarshal([]byte(payload), &page); err != nil {
		t.Fatalf("Failed to decode page config: %v", err)
	}
	if page.Mode != viewer.ModeLive {
		t.Errorf("Expected live mode, got %q", page.Mode)
	}
	if page.SceneWidth != 2000 || page.SceneHeight != 1000 || page.MaxWidth != 2000 {
		t.Errorf("Expected probed 2000x1000 scene, got %+v", page)
	}
	if !page.Overview {
		t.Error("Expected overview enabled by default")
	}
	if page.SceneX != 0 || page.SceneY != 0 {
		t.Errorf("Expected zero scene origin, got %g,%g", page.SceneX, page.SceneY)
	}
}

func pageConfig(t *testing.T, url string) viewer.PageConfig {
	t.Helper()
	_, body := get(t, url+"/mapview/config.js")
	var page viewer.PageConfig
	payload := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(body, "window.__MAPVIEW__ = ")), ";")
	if err := json.Unmarshal([]byte(payload), &page); err != nil {
		t.Fatalf("Failed to decode page config: %v", err)
	}
	return page
}

func TestServe_PageConfigSceneOrigin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scene.svg"), `<svg xmlns="http://www.w3.org/2000/svg" viewBox="-100 -50 2000 1000"/>`)
	writeFile(t, filepath.Join(dir, "mapview.yaml"), "scene:\n  path: scene.svg\n")
	_, ts := newTestDevServer(t, dir)

	page := pageConfig(t, ts.URL)
	if page.SceneX != -100 || page.SceneY != -50 {
		t.Errorf("Expected scene origin -100,-50, got %g,%g", page.SceneX, page.SceneY)
	}
	// Scene space is shifted to 0,0 so the whole extent stays reachable
	if page.SceneWidth != 2000 || page.SceneHeight != 1000 {
		t.Errorf("Expected 2000x1000 scene, got %gx%g", page.SceneWidth, page.SceneHeight)
	}
}

func TestServe_Scene(t *testing.T) {
	_, bare := newTestDevServer(t, t.TempDir())
	if resp, _ := get(t, bare.URL+"/scene.svg"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 without a scene file, got %d", resp.StatusCode)
	}

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scene.svg"), testScene)
	writeFile(t, filepath.Join(dir, "mapview.yaml"), "scene:\n  path: scene.svg\n")
	_, ts := newTestDevServer(t, dir)

	resp, body := get(t, ts.URL+"/scene.svg")
	if resp.StatusCode != http.StatusOK || body != testScene {
		t.Errorf("Expected scene file, got %d %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Expected image/svg+xml, got %q", ct)
	}
}

func TestServe_WASMFallback(t *testing.T) {
	dir := t.TempDir()
	_, ts := newTestDevServer(t, dir)

	if resp, _ := get(t, ts.URL+"/app.wasm"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 before a build, got %d", resp.StatusCode)
	}

	writeFile(t, filepath.Join(dir, "public", "app.wasm"), "\x00asm")
	resp, _ := get(t, ts.URL+"/app.wasm")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected built WASM, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/wasm" {
		t.Errorf("Expected application/wasm, got %q", ct)
	}
}

func TestServe_Overview(t *testing.T) {
	_, ts := newTestDevServer(t, t.TempDir())

	if resp, _ := get(t, ts.URL+"/mapview/overview/missing.png"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", resp.StatusCode)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + live.PathPrefix + "abc"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("Failed to read hello: %v", err)
	}

	resp, body := get(t, ts.URL+"/mapview/overview/abc.png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected overview, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(body, "\x89PNG") {
		t.Error("Expected PNG data")
	}
}

func TestServe_OverviewFromViewBox(t *testing.T) {
	_, ts := newTestDevServer(t, t.TempDir())

	page := viewer.PageConfig{Overview: true}
	url := page.OverviewURL(viewport.Window{X: 500, Y: 120, W: 1000, H: 505}, 3)
	resp, body := get(t, ts.URL+url)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected overview without a session, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(body, "\x89PNG") {
		t.Error("Expected PNG data")
	}

	if resp, _ := get(t, ts.URL+viewer.OverviewPath+"view.png?viewBox=wide"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed viewBox, got %d", resp.StatusCode)
	}
}

func TestServe_Classify(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scene.svg"), testScene)
	writeFile(t, filepath.Join(dir, "mapview.yaml"), "scene:\n  path: scene.svg\n")
	s, _ := newTestDevServer(t, dir)

	tests := map[string]change{
		filepath.Join(dir, "mapview.yaml"):          changeConfig,
		filepath.Join(dir, "mapview.json"):          changeConfig,
		filepath.Join(dir, "scene.svg"):             changeScene,
		filepath.Join(dir, "public", "app.wasm"):    changeWASM,
		filepath.Join(dir, "notes.txt"):             changeNone,
		filepath.Join(dir, "nested", "mapview.yml"): changeNone,
	}
	for name, want := range tests {
		if got := s.classify(name); got != want {
			t.Errorf("classify(%s): expected %d, got %d", filepath.Base(name), want, got)
		}
	}
}

func TestServe_ReloadOnConfigChange(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "mapview.yaml")
	writeFile(t, configPath, "scene:\n  width: 1000\n  height: 500\n")
	s, _ := newTestDevServer(t, dir)

	writeFile(t, configPath, "scene:\n  width: 3000\n  height: 1500\n")
	s.handleFileChanges([]fsnotify.Event{{Name: configPath, Op: fsnotify.Write}})

	if got := s.currentConfig().Scene.Width; got != 3000 {
		t.Errorf("Expected reloaded width 3000, got %g", got)
	}

	// A broken edit keeps the previous config
	writeFile(t, configPath, "scene: [")
	s.handleFileChanges([]fsnotify.Event{{Name: configPath, Op: fsnotify.Write}})
	if got := s.currentConfig().Scene.Width; got != 3000 {
		t.Errorf("Expected previous width kept, got %g", got)
	}
}
