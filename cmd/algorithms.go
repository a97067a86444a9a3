package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/slotplan/core/solver"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List the available solver strategies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range solver.Names() {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(algorithmsCmd)
}
