package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TwoApart/hammock"
)

func newURLCmd() *cobra.Command {
	var slash bool
	cmd := &cobra.Command{
		Use:   "url BASE [SEGMENT...]",
		Short: "Print the URL a chain resolves to",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			chain := hammock.New(args[0], hammock.WithAppendSlash(slash))
			segments := make([]any, 0, len(args)-1)
			for _, segment := range args[1:] {
				segments = append(segments, segment)
			}
			fmt.Fprintln(cmd.OutOrStdout(), chain.URL(segments...))
		},
	}
	cmd.Flags().BoolVar(&slash, "slash", false, "append a trailing slash")
	return cmd
}
