package upgrade

import (
	"context"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List every recorded upgrade step",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionHistory, nil))
	return cmdutil.PrintResult(res)
}
