package account

import (
	"context"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var (
	listUID       uint32
	listGID       uint32
	listUser      string
	listAccessKey string
	listName      string
	listWide      bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Long: `List accounts, AND-conjoining every filter flag supplied.

By default only account names are returned; pass --wide for full
account documents.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().Uint32Var(&listUID, "uid", 0, "Filter by effective UID")
	listCmd.Flags().Uint32Var(&listGID, "gid", 0, "Filter by effective GID")
	listCmd.Flags().StringVar(&listUser, "user", "", "Filter by distinguished name")
	listCmd.Flags().StringVar(&listAccessKey, "access_key", "", "Filter by S3 access key")
	listCmd.Flags().StringVar(&listName, "name", "", "Filter by account name")
	listCmd.Flags().BoolVar(&listWide, "wide", false, "Return full account documents instead of names only")
}

func runList(cmd *cobra.Command, args []string) error {
	opts := manageapi.AccountListOptions{
		User:      listUser,
		AccessKey: listAccessKey,
		Name:      listName,
		Wide:      listWide,
	}
	if cmd.Flags().Changed("uid") {
		opts.UID = &listUID
	}
	if cmd.Flags().Changed("gid") {
		opts.GID = &listGID
	}

	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionList, opts))
	return cmdutil.PrintResult(res)
}
