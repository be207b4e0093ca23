package bucket

import (
	"context"
	"fmt"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/internal/cli/prompt"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var (
	deleteName  string
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a bucket",
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&deleteName, "name", "", "Bucket name (required)")
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip the confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	name := deleteName
	if name == "" {
		var err error
		name, err = prompt.InputRequired("Bucket name")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete bucket %q?", name), deleteForce)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	opts := manageapi.BucketStatusDeleteOptions{Name: name}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionDelete, opts))
	return cmdutil.PrintResult(res)
}
