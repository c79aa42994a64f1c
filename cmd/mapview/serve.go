package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/recera/mapview/internal/assets"
	"github.com/recera/mapview/internal/config"
	"github.com/recera/mapview/internal/overview"
	"github.com/recera/mapview/pkg/live"
	"github.com/recera/mapview/pkg/viewer"
	"github.com/recera/mapview/pkg/viewport"
)

const overviewPrefix = viewer.OverviewPath

type serveFlags struct {
	projectFlags
	port       int
	host       string
	mode       string
	verbose    bool
	noOverview bool
}

type devServer struct {
	flags   *serveFlags
	mu      sync.RWMutex
	config  *config.Config
	live    *live.Server
	watcher *fsnotify.Watcher
	watched map[string]bool
	static  fs.FS
}

func newServeCommand() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the viewer server",
		Long: `Serves the viewer page, the scene, the live WebSocket protocol and the
overview mini-map. Edits to the scene or config file reload connected pages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "Port to serve on (default from config, 8080)")
	cmd.Flags().StringVarP(&flags.host, "host", "H", "", "Host to bind to (default from config, localhost)")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "View state location: local or live")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Trace every gesture to the log")
	cmd.Flags().BoolVar(&flags.noOverview, "no-overview", false, "Hide the overview mini-map")

	return cmd
}

// load applies CLI flags over the config file; CLI takes precedence
func (f *serveFlags) load() (*config.Config, error) {
	return f.projectFlags.load(func(cfg *config.Config) {
		if f.port != 0 {
			cfg.Dev.Port = f.port
		}
		if f.host != "" {
			cfg.Dev.Host = f.host
		}
		if f.mode != "" {
			cfg.Dev.Mode = f.mode
		}
		if f.verbose {
			cfg.Dev.Verbose = true
		}
	})
}

func runServe(flags *serveFlags) error {
	cfg, err := flags.load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Dev.Verbose {
		viewport.SetDebugLog(log.Println)
		live.SetDebugLog(log.Println)
	}

	log.Println("🔌 Initializing live protocol server...")
	server := &devServer{
		flags:   flags,
		config:  cfg,
		live:    live.NewServer(cfg.ViewportOptions()),
		watched: make(map[string]bool),
		static:  assets.Static(),
	}
	defer server.live.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	server.watcher = watcher

	if err := server.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}
	go server.watchFiles()

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: server.routes(),
	}

	log.Printf("🗺️  Scene %s (%gx%g), %s mode\n", flags.title(cfg), cfg.Scene.Width, cfg.Scene.Height, cfg.Dev.Mode)
	log.Printf("✨ Viewer running at http://%s\n", cfg.Address())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\n🛑 Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *devServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.serveIndex)
	mux.HandleFunc("/mapview/bootstrap.js", s.serveBootstrap)
	mux.HandleFunc("/mapview/config.js", s.serveConfig)
	mux.HandleFunc("/scene.svg", s.serveScene)
	mux.HandleFunc(overviewPrefix, s.serveOverview)
	mux.HandleFunc(live.PathPrefix, s.live.HandleWebSocket)

	mux.HandleFunc("/app.wasm", s.serveWASM)
	mux.HandleFunc("/wasm_exec.js", s.serveWasmExec)

	// Quiet favicon 404s
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func (s *devServer) currentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *devServer) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFileFS(w, r, s.static, "index.html")
}

func (s *devServer) serveBootstrap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFileFS(w, r, s.static, "bootstrap.js")
}

// serveConfig injects the page config as window.__MAPVIEW__
func (s *devServer) serveConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.currentConfig()

	page := viewer.NewPageConfig(cfg.Dev.Mode, cfg.ViewportOptions())
	page.Debug = cfg.Dev.Verbose
	page.Overview = !s.flags.noOverview
	if o := cfg.Scene.Origin; o != nil {
		page.SceneX, page.SceneY = o.X, o.Y
	}

	data, err := json.Marshal(page)
	if err != nil {
		http.Error(w, "Failed to encode config", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprintf(w, "window.__MAPVIEW__ = %s;\n", data)
}

func (s *devServer) serveScene(w http.ResponseWriter, r *http.Request) {
	path := s.currentConfig().ScenePath(s.flags.dir)
	if path == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

// serveOverview renders the mini-map for one live session, or for the
// window in the viewBox query when the page keeps its own view state
func (s *devServer) serveOverview(w http.ResponseWriter, r *http.Request) {
	var win viewport.Window
	if vb := r.URL.Query().Get("viewBox"); vb != "" {
		parsed, err := viewport.ParseViewBox(vb)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		win = parsed
	} else {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, overviewPrefix), ".png")
		snap, ok := s.live.Snapshot(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		win = snap
	}

	opts := s.currentConfig().ViewportOptions()
	var buf bytes.Buffer
	if err := overview.Render(&buf, opts.Scene, win, nil); err != nil {
		log.Printf("❌ %v\n", err)
		http.Error(w, "Failed to render overview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (s *devServer) serveWASM(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.publicDir(), "app.wasm")
	if _, err := os.Stat(path); err != nil {
		// The page falls back to the live protocol
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/wasm")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

func (s *devServer) serveWasmExec(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.publicDir(), "wasm_exec.js")
	if _, err := os.Stat(path); err != nil {
		path, err = wasmExecPath()
		if err != nil {
			http.Error(w, "Failed to resolve wasm_exec.js", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

func (s *devServer) publicDir() string {
	dir := s.currentConfig().Dev.PublicDir
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(s.flags.dir, dir)
}

// setupWatcher watches the project directory for config edits, the scene's
// directory and the public directory for rebuilt WASM
func (s *devServer) setupWatcher() error {
	if err := s.watch(s.flags.dir); err != nil {
		return err
	}
	if path := s.currentConfig().ScenePath(s.flags.dir); path != "" {
		if err := s.watch(filepath.Dir(path)); err != nil {
			return err
		}
	}
	if info, err := os.Stat(s.publicDir()); err == nil && info.IsDir() {
		if err := s.watch(s.publicDir()); err != nil {
			return err
		}
	}
	return nil
}

func (s *devServer) watch(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if s.watched[abs] {
		return nil
	}
	if err := s.watcher.Add(abs); err != nil {
		return fmt.Errorf("failed to watch %s: %w", abs, err)
	}
	s.watched[abs] = true
	return nil
}

func (s *devServer) watchFiles() {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer

	var pending []fsnotify.Event

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if s.classify(event.Name) == changeNone {
				continue
			}
			pending = append(pending, event)

			// Editors write in bursts
			debounce.Reset(100 * time.Millisecond)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Println("Watcher error:", err)

		case <-debounce.C:
			events := pending
			pending = nil
			if len(events) > 0 {
				s.handleFileChanges(events)
			}
		}
	}
}

type change int

const (
	changeNone change = iota
	changeConfig
	changeScene
	changeWASM
)

func (s *devServer) classify(name string) change {
	abs, err := filepath.Abs(name)
	if err != nil {
		return changeNone
	}

	projectDir, _ := filepath.Abs(s.flags.dir)
	if filepath.Dir(abs) == projectDir {
		for _, candidate := range config.FileNames {
			if filepath.Base(abs) == candidate {
				return changeConfig
			}
		}
	}

	if path := s.currentConfig().ScenePath(s.flags.dir); path != "" {
		if scenePath, err := filepath.Abs(path); err == nil && scenePath == abs {
			return changeScene
		}
	}

	if wasm, err := filepath.Abs(filepath.Join(s.publicDir(), "app.wasm")); err == nil && wasm == abs {
		return changeWASM
	}
	return changeNone
}

func (s *devServer) handleFileChanges(events []fsnotify.Event) {
	var hasConfig, hasScene, hasWASM bool
	for _, event := range events {
		switch s.classify(event.Name) {
		case changeConfig:
			hasConfig = true
		case changeScene:
			hasScene = true
		case changeWASM:
			hasWASM = true
		}
	}

	if hasConfig || hasScene {
		if hasConfig {
			log.Println("🔄 Config changed, reloading...")
		} else {
			log.Println("🔄 Scene changed, reloading...")
		}

		cfg, err := s.flags.load()
		if err != nil {
			log.Printf("❌ Reload failed, keeping previous config: %v\n", err)
			return
		}

		s.mu.Lock()
		s.config = cfg
		s.mu.Unlock()

		if path := cfg.ScenePath(s.flags.dir); path != "" {
			if err := s.watch(filepath.Dir(path)); err != nil {
				log.Printf("⚠️  %v\n", err)
			}
		}

		s.live.Reconfigure(cfg.ViewportOptions())
		log.Printf("✅ Scene %gx%g, %d live sessions reset\n", cfg.Scene.Width, cfg.Scene.Height, s.live.SessionCount())
	} else if hasWASM {
		log.Println("🔄 WASM rebuilt, reloading...")
	}

	n := s.live.Broadcast(live.ControlReload)
	log.Printf("📣 Reload sent to %d pages\n", n)
}
