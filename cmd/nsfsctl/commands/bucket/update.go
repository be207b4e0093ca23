package bucket

import (
	"context"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/internal/cli/prompt"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var (
	updateName       string
	updatePath       string
	updateVersioning string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an existing bucket",
	RunE:  runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateName, "name", "", "Bucket name (required)")
	updateCmd.Flags().StringVar(&updatePath, "path", "", "New filesystem path")
	updateCmd.Flags().StringVar(&updateVersioning, "versioning", "", "Versioning state: DISABLED|ENABLED|SUSPENDED")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	name := updateName
	if name == "" {
		var err error
		name, err = prompt.InputRequired("Bucket name")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	opts := manageapi.BucketUpdateOptions{Name: name}
	if cmd.Flags().Changed("path") {
		opts.Path = &updatePath
	}
	if cmd.Flags().Changed("versioning") {
		opts.Versioning = &updateVersioning
	}

	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionUpdate, opts))
	return cmdutil.PrintResult(res)
}
