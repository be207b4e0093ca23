package glacier

import (
	"context"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var migrateRunCmd = &cobra.Command{
	Use:   "migrate_run",
	Short: "Process every sealed migrate WAL segment",
	RunE:  runMigrateRun,
}

func runMigrateRun(cmd *cobra.Command, args []string) error {
	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionMigrateRun, nil))
	return cmdutil.PrintResult(res)
}
