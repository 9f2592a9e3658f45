// Package cli implements the radarctl command set, a thin terminal client
// for the radar API built on the Go SDK.
package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/TechRadar-Intelligence/pkg/client"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const (
	defaultBaseURL = "http://localhost:8000"
	defaultTimeout = 60 * time.Second
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	baseURL string
	timeout time.Duration
}

// newClient builds the SDK client the subcommands talk through. The
// timeout is enforced on the HTTP client so it also bounds retries.
func (o *rootOptions) newClient() (*client.Client, error) {
	return client.NewClient(o.baseURL,
		client.WithHTTPClient(&http.Client{Timeout: o.timeout}),
		client.WithUserAgent("radarctl/"+Version))
}

// NewRootCommand assembles the radarctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "radarctl",
		Short:         "Terminal client for the technology radar API",
		Long:          "radarctl queries a running radar server: full radar analyses,\ntitle suggestions, and service health.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.baseURL, "base-url", defaultBaseURL, "base URL of the radar server")
	pf.DurationVar(&opts.timeout, "timeout", defaultTimeout, "request timeout")

	cmd.AddCommand(
		newHealthCmd(opts),
		newSuggestCmd(opts),
		newRadarCmd(opts),
	)

	return cmd
}

// Execute runs the CLI and reports a failed command on stderr.
func Execute() error {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// printJSON renders data as indented JSON on the command's stdout.
func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
