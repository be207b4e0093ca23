package upgrade

import (
	"context"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current upgrade phase and recorded versions",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionStatus, nil))
	return cmdutil.PrintResult(res)
}
