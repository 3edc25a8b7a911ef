package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/byland-ai/byland/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile <user-id>",
	Short: "Show a stored hiker profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")

		deps, err := setup(cmd)
		if err != nil {
			return err
		}
		defer deps.close()

		p, err := deps.app.Sessions().Profile(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading profile '%s': %w", args[0], err)
		}

		if jsonMode {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		out, err := tui.NewRenderer()(tui.ProfileMarkdown(p))
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().Bool("json", false, "Print the profile as JSON")
}
