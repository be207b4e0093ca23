package account

import (
	"context"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/internal/cli/prompt"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var (
	updateName           string
	updateNewBucketsPath string
	updateRegenerate     bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an existing account",
	RunE:  runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateName, "name", "", "Account name (required)")
	updateCmd.Flags().StringVar(&updateNewBucketsPath, "new_buckets_path", "", "New default buckets path")
	updateCmd.Flags().BoolVar(&updateRegenerate, "regenerate", false, "Regenerate the account's access and secret key")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	name := updateName
	if name == "" {
		var err error
		name, err = prompt.InputRequired("Account name")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	opts := manageapi.AccountUpdateOptions{Name: name, Regenerate: updateRegenerate}
	if cmd.Flags().Changed("new_buckets_path") {
		opts.NewBucketsPath = &updateNewBucketsPath
	}

	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionUpdate, opts))
	return cmdutil.PrintResult(res)
}
