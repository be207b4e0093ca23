package bucket

import (
	"context"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/internal/cli/prompt"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var (
	addName  string
	addOwner string
	addPath  string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new bucket",
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "Bucket name (required)")
	addCmd.Flags().StringVar(&addOwner, "owner", "", "Owning account name (required)")
	addCmd.Flags().StringVar(&addPath, "path", "", "Absolute filesystem path for the bucket (required)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	name := addName
	if name == "" {
		var err error
		name, err = prompt.InputRequired("Bucket name")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}
	owner := addOwner
	if owner == "" {
		var err error
		owner, err = prompt.InputRequired("Owner account name")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}
	path := addPath
	if path == "" {
		var err error
		path, err = prompt.InputRequired("Bucket filesystem path")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	opts := manageapi.BucketAddOptions{Name: name, Owner: owner, Path: path}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionAdd, opts))
	return cmdutil.PrintResult(res)
}
