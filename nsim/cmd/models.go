package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/nsim/model"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the available node models.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, m := range model.Models() {
			fmt.Fprintln(cmd.OutOrStdout(), m)
		}
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
