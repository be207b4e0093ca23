package account

import (
	"context"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/internal/cli/prompt"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var statusName string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a single account",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusName, "name", "", "Account name (required)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	name := statusName
	if name == "" {
		var err error
		name, err = prompt.InputRequired("Account name")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	opts := manageapi.AccountStatusDeleteOptions{Name: name}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionStatus, opts))
	return cmdutil.PrintResult(res)
}
