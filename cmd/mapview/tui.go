package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recera/mapview/internal/tui"
)

func newTUICommand() *cobra.Command {
	flags := &projectFlags{}

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Explore the scene from the terminal",
		Long: `Runs the viewport in the terminal. The scene is drawn as a coordinate grid;
drag with the mouse, scroll to zoom, or use the keys listed at the bottom.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(nil)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			final, err := tui.Run(cfg.ViewportOptions(), flags.title(cfg))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "viewBox=\"%s\"\n", final.ViewBox())
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
