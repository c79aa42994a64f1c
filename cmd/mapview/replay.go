package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/recera/mapview/internal/script"
)

func newReplayCommand() *cobra.Command {
	flags := &projectFlags{}

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a gesture script against the scene",
		Long: `Replays recorded pointer, wheel and button steps against a fresh view state
and prints the window after each step. Expect steps fail the run when the
window does not match.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(nil)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			s, err := script.Load(args[0])
			if err != nil {
				return err
			}

			results, runErr := s.Run(cfg.ViewportOptions())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if s.Name != "" {
				fmt.Fprintf(w, "# %s\n", s.Name)
			}
			fmt.Fprintln(w, "STEP\tACTION\tVIEWBOX\tDRAGGING")
			for _, r := range results {
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", r.Step, r.Action, r.Window.ViewBox(), r.Dragging)
			}
			w.Flush()

			return runErr
		},
	}

	flags.register(cmd)
	return cmd
}
