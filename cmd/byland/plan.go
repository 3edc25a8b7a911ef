package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/byland-ai/byland/internal/presentation/tui"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan <origin> <destination>",
	Short: "Assemble a trip plan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		jsonMode, _ := cmd.Flags().GetBool("json")

		deps, err := setup(cmd)
		if err != nil {
			return err
		}
		defer deps.close()

		req := domain.TripRequest{Origin: args[0], Destination: args[1], Days: days}
		plan, err := deps.app.Plan(cmd.Context(), req)
		if err != nil {
			return err
		}

		if jsonMode {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}

		render := tui.NewRenderer()
		out, err := render(tui.PlanMarkdown(req, plan))
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().IntP("days", "d", 1, "Trip length in days")
	planCmd.Flags().Bool("json", false, "Print the plan as JSON")
}
