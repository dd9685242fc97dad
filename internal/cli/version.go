package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TwoApart/hammock"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), hammock.GetVersion())
		},
	}
}
