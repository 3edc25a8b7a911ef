package main

import (
	"os"

	"github.com/byland-ai/byland/internal/cli"
	"github.com/byland-ai/byland/internal/presentation/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run the onboarding conversation in the terminal",
	Long: `Walks through the hiker onboarding conversation one answer per line.
Pass --user to resume an existing conversation; otherwise a new user id is generated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		jsonMode, _ := cmd.Flags().GetBool("json")
		if userID == "" {
			userID = uuid.NewString()
		}

		deps, err := setup(cmd)
		if err != nil {
			return err
		}
		defer deps.close()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		opts := cli.ChatOptions{
			UserID:       userID,
			In:           cli.NewInterruptibleReader(os.Stdin, sigCtx.Done()),
			Out:          os.Stdout,
			Interactive:  interactive,
			JSON:         jsonMode,
			MaxInputSize: deps.cfg.Input.MaxSize,
			Logger:       deps.app.Logger(),
		}
		if interactive {
			opts.Render = tui.NewRenderer()
		}
		return cli.RunChat(sigCtx, deps.app.Sessions(), opts)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("user", "u", "", "User id of the conversation to resume")
	chatCmd.Flags().Bool("json", false, "Run in JSON mode (one turn diff per output line)")
}
