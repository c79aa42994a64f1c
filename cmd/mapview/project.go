package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recera/mapview/internal/config"
)

// projectFlags locate the project and its scene for every subcommand
type projectFlags struct {
	dir   string
	scene string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dir, "config", "c", ".", "Project directory holding mapview.yaml")
	cmd.Flags().StringVarP(&f.scene, "scene", "s", "", "SVG scene to view (overrides the config file)")
}

// load reads the project config, lets override adjust it, and validates the result
func (f *projectFlags) load(override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(f.dir)
	if err != nil {
		return nil, err
	}

	if f.scene != "" {
		// Flag paths are relative to the working directory, not the project
		scenePath, err := filepath.Abs(f.scene)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve scene path: %w", err)
		}
		cfg.SetScenePath(scenePath)
		if err := cfg.ResolveScene(f.dir); err != nil {
			return nil, err
		}
	}

	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// title names the scene for headers and logs
func (f *projectFlags) title(cfg *config.Config) string {
	if path := cfg.ScenePath(f.dir); path != "" {
		return filepath.Base(path)
	}
	return fmt.Sprintf("%gx%g scene", cfg.Scene.Width, cfg.Scene.Height)
}
