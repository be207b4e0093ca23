package bucket

import (
	"context"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var (
	listOwner string
	listName  string
	listWide  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List buckets",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listOwner, "owner", "", "Filter by owning account name")
	listCmd.Flags().StringVar(&listName, "name", "", "Filter by bucket name")
	listCmd.Flags().BoolVar(&listWide, "wide", false, "Return full bucket documents instead of names only")
}

func runList(cmd *cobra.Command, args []string) error {
	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	opts := manageapi.BucketListOptions{Owner: listOwner, Name: listName, Wide: listWide}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionList, opts))
	return cmdutil.PrintResult(res)
}
