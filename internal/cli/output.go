package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/TwoApart/hammock"
)

type outputOptions struct {
	query   string
	include bool
	noColor bool
}

func printResponse(w io.Writer, resp *hammock.Response, opts outputOptions) error {
	if opts.noColor {
		color.NoColor = true
	}

	if opts.include {
		statusColor(resp.StatusCode).Fprintf(w, "%s %s\n", resp.Proto, resp.Status)

		cyan := color.New(color.FgCyan).SprintFunc()
		keys := make([]string, 0, len(resp.Header))
		for key := range resp.Header {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			fmt.Fprintf(w, "%s: %s\n", cyan(key), strings.Join(resp.Header[key], ", "))
		}
		fmt.Fprintln(w)
	}

	if opts.query != "" {
		result := resp.Get(opts.query)
		if !result.Exists() {
			return fmt.Errorf("no value at %q", opts.query)
		}
		fmt.Fprintln(w, result.String())
		return nil
	}

	body, err := resp.Bytes()
	if err != nil {
		return err
	}
	if len(body) > 0 {
		fmt.Fprintln(w, strings.TrimRight(string(body), "\n"))
	}
	return nil
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgYellow)
	case code >= 300:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen)
	}
}
