package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/mapview/internal/overview"
	"github.com/recera/mapview/internal/script"
	"github.com/recera/mapview/pkg/viewport"
)

type snapshotFlags struct {
	projectFlags
	out    string
	width  int
	script string
}

func newSnapshotCommand() *cobra.Command {
	flags := &snapshotFlags{}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render the overview mini-map to a PNG",
		Long: `Renders the scene extent with the view window outlined. The window is the
reset view, or the window left by a gesture script when --script is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.out, "out", "o", "overview.png", "Output PNG file")
	cmd.Flags().IntVarP(&flags.width, "width", "w", 320, "Image width in pixels")
	cmd.Flags().StringVar(&flags.script, "script", "", "Gesture script to replay first")

	return cmd
}

func runSnapshot(flags *snapshotFlags) error {
	cfg, err := flags.load(nil)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	opts := cfg.ViewportOptions()

	win := viewport.NewViewState(&opts).Get()
	if flags.script != "" {
		s, err := script.Load(flags.script)
		if err != nil {
			return err
		}
		results, err := s.Run(opts)
		if err != nil {
			return err
		}
		if len(results) > 0 {
			win = results[len(results)-1].Window
		}
	}

	f, err := os.Create(flags.out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", flags.out, err)
	}
	defer f.Close()

	if err := overview.Render(f, opts.Scene, win, &overview.Options{Width: flags.width}); err != nil {
		return err
	}

	w, h := overview.Size(opts.Scene, flags.width)
	log.Printf("🖼️  Wrote %s (%dx%d) for viewBox %q\n", flags.out, w, h, win.ViewBox())
	return nil
}
