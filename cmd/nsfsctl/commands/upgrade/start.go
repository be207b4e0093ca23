package upgrade

import (
	"context"
	"strings"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/internal/cli/prompt"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var (
	startExpectedVersion  string
	startExpectedHosts    string
	startSkipVerification bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run every pending config-dir upgrade script",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVar(&startExpectedVersion, "expected_version", "", "Package version this host believes is already deployed cluster-wide (required)")
	startCmd.Flags().StringVar(&startExpectedHosts, "expected_hosts", "", "Comma-separated hostnames that must already be recorded in system.json (required)")
	startCmd.Flags().BoolVar(&startSkipVerification, "skip_verification", false, "Skip the host-set and version-convergence gates")
}

func runStart(cmd *cobra.Command, args []string) error {
	version := startExpectedVersion
	if version == "" {
		var err error
		version, err = prompt.InputRequired("Expected package version")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	var hosts []string
	if startExpectedHosts != "" {
		for _, h := range strings.Split(startExpectedHosts, ",") {
			h = strings.TrimSpace(h)
			if h != "" {
				hosts = append(hosts, h)
			}
		}
	}

	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	opts := manageapi.UpgradeStartOptions{
		ExpectedVersion:  version,
		ExpectedHosts:    hosts,
		SkipVerification: startSkipVerification,
	}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionStart, opts))
	return cmdutil.PrintResult(res)
}
