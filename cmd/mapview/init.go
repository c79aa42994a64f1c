package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recera/mapview/internal/config"
	"github.com/recera/mapview/internal/scene"
)

type initFlags struct {
	scene string
	port  int
	mode  string
	force bool
}

func newInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default mapview.yaml",
		Long: `Writes mapview.yaml with the default zoom limits and dev server settings
into the given directory, or the current one. With --scene the config points
at an SVG file in that directory and its bounds are probed on every load.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.scene, "scene", "s", "", "SVG scene, relative to the directory")
	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "Dev server port (default 8080)")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "View state location: local or live")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}

func runInit(dir string, flags *initFlags) error {
	if !flags.force {
		for _, name := range config.FileNames {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return fmt.Errorf("%s already exists in %s (use --force to overwrite)", name, dir)
			}
		}
	}

	cfg := config.DefaultConfig()
	if flags.port != 0 {
		cfg.Dev.Port = flags.port
	}
	if flags.mode != "" {
		cfg.Dev.Mode = flags.mode
	}

	// The file keeps only the scene path; validate with the probed bounds
	resolved := *cfg
	if flags.scene != "" {
		cfg.SetScenePath(flags.scene)
		info, err := scene.Probe(cfg.ScenePath(dir))
		if err != nil {
			return err
		}
		resolved.Scene = cfg.Scene
		resolved.Scene.Width, resolved.Scene.Height = info.Bounds.Width, info.Bounds.Height
		log.Printf("🗺️  Scene %s is %gx%g\n", flags.scene, info.Bounds.Width, info.Bounds.Height)
	}
	if err := resolved.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := config.Save(cfg, dir); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	log.Printf("✨ Wrote %s\n", filepath.Join(dir, config.FileNames[0]))
	return nil
}
