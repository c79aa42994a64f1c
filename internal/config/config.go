package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/recera/mapview/internal/scene"
	"github.com/recera/mapview/pkg/viewport"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid configuration")

// FileNames are the config files Load looks for, in order
var FileNames = []string{"mapview.yaml", "mapview.yml", "mapview.json"}

// Config represents the mapview.yaml configuration
type Config struct {
	// Scene configuration
	Scene SceneConfig `yaml:"scene" json:"scene"`

	// Zoom and reset configuration
	Zoom ZoomConfig `yaml:"zoom" json:"zoom"`

	// Development server configuration
	Dev *DevConfig `yaml:"dev,omitempty" json:"dev,omitempty"`
}

// SceneConfig describes the scene being viewed
type SceneConfig struct {
	// Path to the SVG file, relative to the project directory
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// Extent in scene units. Zero means probe the SVG file.
	Width  float64 `yaml:"width,omitempty" json:"width,omitempty"`
	Height float64 `yaml:"height,omitempty" json:"height,omitempty"`

	// Top-left corner of the SVG's own coordinate space, probed from the
	// root viewBox together with the extent
	Origin *Point `yaml:"origin,omitempty" json:"origin,omitempty"`
}

// ZoomConfig contains the zoom limits and reset view
type ZoomConfig struct {
	// Narrowest visible width
	MinWidth float64 `yaml:"minWidth,omitempty" json:"minWidth,omitempty"`

	// Widest visible width. Zero means the scene width.
	MaxWidth float64 `yaml:"maxWidth,omitempty" json:"maxWidth,omitempty"`

	// Multiplicative step for the zoom buttons and wheel
	Step float64 `yaml:"step,omitempty" json:"step,omitempty"`

	// Scene width divided by this gives the reset width
	Initial float64 `yaml:"initial,omitempty" json:"initial,omitempty"`

	// Top-left corner of the reset view
	Anchor *Point `yaml:"anchor,omitempty" json:"anchor,omitempty"`
}

// Point is a scene coordinate
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// DevConfig contains development server configuration
type DevConfig struct {
	// Server port
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// Server host
	Host string `yaml:"host,omitempty" json:"host,omitempty"`

	// "local" keeps view state in the browser, "live" keeps it on the server
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`

	// Directory holding app.wasm and wasm_exec.js
	PublicDir string `yaml:"public,omitempty" json:"public,omitempty"`

	// Trace every gesture to the log
	Verbose bool `yaml:"verbose,omitempty" json:"verbose,omitempty"`
}

// envOverrides holds raw env values layered over the config file
type envOverrides struct {
	Host    string `env:"MAPVIEW_HOST"`
	Port    int    `env:"MAPVIEW_PORT"`
	Mode    string `env:"MAPVIEW_MODE"`
	Scene   string `env:"MAPVIEW_SCENE"`
	Verbose bool   `env:"MAPVIEW_VERBOSE"`
}

// Load loads configuration from the first config file found in projectPath,
// applies defaults and environment overrides, then probes the scene file for
// its bounds if they were not given.
func Load(projectPath string) (*Config, error) {
	config, err := loadFile(projectPath)
	if err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(config)

	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := config.ResolveScene(projectPath); err != nil {
		return nil, err
	}

	return config, nil
}

func loadFile(projectPath string) (*Config, error) {
	for _, name := range FileNames {
		configPath := filepath.Join(projectPath, name)

		data, err := os.ReadFile(configPath)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		var config Config
		if strings.HasSuffix(name, ".json") {
			err = json.Unmarshal(data, &config)
		} else {
			err = yaml.Unmarshal(data, &config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return &config, nil
	}

	// Start from defaults if no file exists
	return DefaultConfig(), nil
}

func applyEnv(config *Config) error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if e.Host != "" {
		config.Dev.Host = e.Host
	}
	if e.Port != 0 {
		config.Dev.Port = e.Port
	}
	if e.Mode != "" {
		config.Dev.Mode = e.Mode
	}
	if e.Scene != "" {
		config.SetScenePath(e.Scene)
	}
	if e.Verbose {
		config.Dev.Verbose = true
	}
	return nil
}

// Save saves configuration to mapview.yaml
func Save(config *Config, projectPath string) error {
	configPath := filepath.Join(projectPath, FileNames[0])

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Scene: SceneConfig{
			Width:  viewport.DefaultSceneWidth,
			Height: viewport.DefaultSceneHeight,
		},
		Zoom: ZoomConfig{
			MinWidth: viewport.DefaultMinWidth,
			Step:     viewport.DefaultStepRatio,
			Initial:  viewport.DefaultInitialZoom,
			Anchor:   &Point{X: viewport.DefaultAnchorX, Y: viewport.DefaultAnchorY},
		},
		Dev: &DevConfig{
			Port:      8080,
			Host:      "localhost",
			Mode:      "local",
			PublicDir: "public",
		},
	}
}

// applyDefaults applies default values to missing configuration.
// Scene dimensions stay zero when a scene file is named so they can be probed.
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Scene.Path == "" {
		if config.Scene.Width == 0 {
			config.Scene.Width = defaults.Scene.Width
		}
		if config.Scene.Height == 0 {
			config.Scene.Height = defaults.Scene.Height
		}
	}

	if config.Zoom.MinWidth == 0 {
		config.Zoom.MinWidth = defaults.Zoom.MinWidth
	}
	if config.Zoom.Step == 0 {
		config.Zoom.Step = defaults.Zoom.Step
	}
	if config.Zoom.Initial == 0 {
		config.Zoom.Initial = defaults.Zoom.Initial
	}
	if config.Zoom.Anchor == nil {
		config.Zoom.Anchor = defaults.Zoom.Anchor
	}

	// Apply dev server defaults
	if config.Dev == nil {
		config.Dev = defaults.Dev
	} else {
		if config.Dev.Port == 0 {
			config.Dev.Port = defaults.Dev.Port
		}
		if config.Dev.Host == "" {
			config.Dev.Host = defaults.Dev.Host
		}
		if config.Dev.Mode == "" {
			config.Dev.Mode = defaults.Dev.Mode
		}
		if config.Dev.PublicDir == "" {
			config.Dev.PublicDir = defaults.Dev.PublicDir
		}
	}
}

// SetScenePath points the config at a new scene file and forgets the old
// bounds so ResolveScene probes the new one.
func (c *Config) SetScenePath(path string) {
	c.Scene.Path = path
	c.Scene.Width = 0
	c.Scene.Height = 0
	c.Scene.Origin = nil
}

// ScenePath returns the scene file path resolved against projectPath,
// or "" when no scene file is configured.
func (c *Config) ScenePath(projectPath string) string {
	if c.Scene.Path == "" {
		return ""
	}
	if filepath.IsAbs(c.Scene.Path) {
		return c.Scene.Path
	}
	return filepath.Join(projectPath, c.Scene.Path)
}

// ResolveScene fills missing scene dimensions from the scene file
func (c *Config) ResolveScene(projectPath string) error {
	if c.Scene.Width != 0 && c.Scene.Height != 0 {
		return nil
	}
	path := c.ScenePath(projectPath)
	if path == "" {
		return fmt.Errorf("%w: scene size is unset and no scene file is configured", ErrInvalidConfig)
	}

	info, err := scene.Probe(path)
	if err != nil {
		return fmt.Errorf("failed to resolve scene bounds: %w", err)
	}
	if c.Scene.Width == 0 {
		c.Scene.Width = info.Bounds.Width
	}
	if c.Scene.Height == 0 {
		c.Scene.Height = info.Bounds.Height
	}
	if c.Scene.Origin == nil && (info.Origin.X != 0 || info.Origin.Y != 0) {
		c.Scene.Origin = &Point{X: info.Origin.X, Y: info.Origin.Y}
	}
	return nil
}

// ViewportOptions converts the config into options for a view state
func (c *Config) ViewportOptions() viewport.Options {
	maxWidth := c.Zoom.MaxWidth
	if maxWidth == 0 {
		maxWidth = c.Scene.Width
	}
	var anchor viewport.Point
	if c.Zoom.Anchor != nil {
		anchor = viewport.Point{X: c.Zoom.Anchor.X, Y: c.Zoom.Anchor.Y}
	}
	return viewport.Options{
		Scene:       viewport.SceneBounds{Width: c.Scene.Width, Height: c.Scene.Height},
		Limits:      viewport.ZoomLimits{MinWidth: c.Zoom.MinWidth, MaxWidth: maxWidth},
		StepRatio:   c.Zoom.Step,
		InitialZoom: c.Zoom.Initial,
		Anchor:      anchor,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.ViewportOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Dev != nil {
		if c.Dev.Port < 0 || c.Dev.Port > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Dev.Port)
		}
		switch c.Dev.Mode {
		case "", "local", "live":
		default:
			return fmt.Errorf("%w: unknown mode %q (want local or live)", ErrInvalidConfig, c.Dev.Mode)
		}
	}
	return nil
}

// Address returns host:port for the development server
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Dev.Host, c.Dev.Port)
}
