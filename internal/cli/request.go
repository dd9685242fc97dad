package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TwoApart/hammock"
)

type requestFlags struct {
	args       []string
	params     []string
	headers    []string
	data       string
	jsonBody   string
	timeout    time.Duration
	slash      bool
	configPath string
	query      string
	include    bool
	noColor    bool
	verbose    bool
}

func newRequestCmd() *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "request METHOD BASE [SEGMENT...]",
		Short: "Send a request with any method",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, strings.ToUpper(args[0]), args[1:], f)
		},
	}
	f.bind(cmd)
	return cmd
}

func newVerbCmd(method string) *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " BASE [SEGMENT...]",
		Short: fmt.Sprintf("Send a %s request", method),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, method, args, f)
		},
	}
	f.bind(cmd)
	return cmd
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.args, "arg", "a", nil, "request argument key=value (query parameter on GET)")
	flags.StringArrayVarP(&f.params, "param", "p", nil, "explicit query parameter key=value")
	flags.StringArrayVarP(&f.headers, "header", "H", nil, "default header \"Key: Value\"")
	flags.StringVarP(&f.data, "data", "d", "", "request body")
	flags.StringVar(&f.jsonBody, "json", "", "JSON request body")
	flags.DurationVarP(&f.timeout, "timeout", "t", 0, "request timeout")
	flags.BoolVar(&f.slash, "slash", false, "append a trailing slash to the URL")
	flags.StringVar(&f.configPath, "config", "", "YAML session configuration file")
	flags.StringVarP(&f.query, "query", "q", "", "print only this gjson path of a JSON response")
	flags.BoolVarP(&f.include, "include", "i", false, "print status line and headers")
	flags.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "log request details to stderr")
}

func runRequest(cmd *cobra.Command, method string, positional []string, f *requestFlags) error {
	chain, err := f.chain(positional[0])
	if err != nil {
		return err
	}
	defer chain.CloseSession(true)

	args, err := f.requestArgs()
	if err != nil {
		return err
	}

	segments := make([]any, 0, len(positional)-1)
	for _, segment := range positional[1:] {
		segments = append(segments, segment)
	}

	resp, err := chain.Request(cmd.Context(), method, args, segments...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printResponse(cmd.OutOrStdout(), resp, outputOptions{
		query:   f.query,
		include: f.include,
		noColor: f.noColor,
	})
}

func (f *requestFlags) chain(base string) (*hammock.Chain, error) {
	opts := []hammock.Option{hammock.WithAppendSlash(f.slash)}

	if f.configPath != "" {
		cfg, err := hammock.LoadSessionConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, hammock.WithSession(cfg))
	}
	if f.verbose {
		opts = append(opts, hammock.WithSimpleLogger())
	}

	chain := hammock.New(base, opts...)
	for _, h := range f.headers {
		key, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header %q: want \"Key: Value\"", h)
		}
		chain = chain.WithHeader(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return chain, chain.Err()
}

func (f *requestFlags) requestArgs() (hammock.Args, error) {
	args := hammock.Args{}

	for _, kv := range f.args {
		key, value, err := splitPair(kv)
		if err != nil {
			return nil, err
		}
		args[key] = value
	}

	if len(f.params) > 0 {
		params := url.Values{}
		for _, kv := range f.params {
			key, value, err := splitPair(kv)
			if err != nil {
				return nil, err
			}
			params.Add(key, value)
		}
		args[hammock.ArgParams] = params
	}

	if f.data != "" {
		args[hammock.ArgData] = f.data
	}
	if f.jsonBody != "" {
		if !json.Valid([]byte(f.jsonBody)) {
			return nil, errors.New("--json is not valid JSON")
		}
		args[hammock.ArgJSON] = json.RawMessage(f.jsonBody)
	}
	if f.timeout > 0 {
		args[hammock.ArgTimeout] = f.timeout
	}

	if len(args) == 0 {
		return nil, nil
	}
	return args, nil
}

func splitPair(kv string) (string, string, error) {
	key, value, ok := strings.Cut(kv, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid argument %q: want key=value", kv)
	}
	return key, value, nil
}
