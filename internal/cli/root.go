// Package cli implements the hammock command line tool.
package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

var methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
}

// NewRootCmd builds the hammock command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hammock",
		Short: "Build REST URLs segment by segment and send requests to them.",
		Long: `hammock joins a base URL and any number of path segments into a URL and
sends an HTTP request to it. On GET, every --arg becomes a query parameter
unless an explicit --param is given as well.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRequestCmd())
	for _, method := range methods {
		root.AddCommand(newVerbCmd(method))
	}
	root.AddCommand(newURLCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}
