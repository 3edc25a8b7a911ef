package main

import (
	"fmt"

	"github.com/byland-ai/byland/internal/presentation/graph"
	"github.com/byland-ai/byland/pkg/onboarding"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the onboarding state machine",
	Long: `Outputs a Mermaid diagram (graph TD) of the onboarding states.
With --user, the states already passed by that conversation are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		var overlay *graph.Overlay
		if userID != "" {
			deps, err := setup(cmd)
			if err != nil {
				return err
			}
			defer deps.close()

			s, err := deps.app.Sessions().Load(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("loading session '%s': %w", userID, err)
			}
			overlay = graph.OverlayFor(s)
		}

		fmt.Print(graph.GenerateMermaid(onboarding.Transitions(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("user", "u", "", "Highlight the progress of this user's session")
}
