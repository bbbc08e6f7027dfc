package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/syncrunner/internal/invocation"
)

type submitOptions struct {
	runOptions
	server  string
	timeout time.Duration
}

type submitRequest struct {
	Metadata invocation.Metadata `json:"metadata"`
	Script   string              `json:"script"`
	Name     string              `json:"name"`
}

type submitReply struct {
	Result struct {
		Success bool `json:"success"`
	} `json:"result"`
}

func newSubmitCommand() *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit <script>",
		Short: "Execute a script on a running syncrunner server",
		Long: `Send a script and its invocation metadata to the POST /v1/run endpoint of a
syncrunner server and print the report it returns.`,
		Example: `  syncrunner submit ./issues.ts --server http://runner:8000 --metadata ./connection.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitScript(cmd, opts, args[0])
		},
	}

	opts.addFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.server, "server", "http://localhost:8000", "syncrunner server address")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "request timeout")

	return cmd
}

func submitScript(cmd *cobra.Command, opts *submitOptions, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	meta, err := opts.metadata(cmd)
	if err != nil {
		return err
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.server, "/")).
		SetTimeout(opts.timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.ConfigStd.Marshal).
		SetJSONUnmarshaler(sonic.ConfigStd.Unmarshal)

	reply := &submitReply{}
	resp, err := client.R().
		SetContext(cmd.Context()).
		SetBody(submitRequest{
			Metadata: meta,
			Script:   string(source),
			Name:     scriptName(meta, path),
		}).
		SetResult(reply).
		Post("/v1/run")
	if err != nil {
		return fmt.Errorf("submit script: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("server returned %s: %s", resp.Status(), strings.TrimSpace(resp.String()))
	}

	var report any
	if err := sonic.ConfigStd.Unmarshal(resp.Body(), &report); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}
	if err := printReport(cmd, report); err != nil {
		return err
	}

	if !reply.Result.Success {
		return ErrInvocationFailed
	}
	return nil
}
