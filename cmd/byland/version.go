package main

import (
	"fmt"
	"strings"

	"github.com/byland-ai/byland"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of byland",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("byland version %s\n", strings.TrimSpace(byland.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
