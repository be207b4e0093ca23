package account

import (
	"context"

	"github.com/nsfscore/nsfsctl/cmd/nsfsctl/cmdutil"
	"github.com/nsfscore/nsfsctl/internal/cli/prompt"
	"github.com/nsfscore/nsfsctl/pkg/manageapi"
	"github.com/spf13/cobra"
)

var (
	addName           string
	addNewBucketsPath string
	addUID            uint32
	addGID            uint32
	addUser           string
	addAccessKey      string
	addSecretKey      string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new account",
	Long: `Create a new nsfs_account.

Identity is resolved either from --uid/--gid or from --user (a
distinguished name looked up via the system's user database); exactly
one of the two must be supplied.`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "Account name (required)")
	addCmd.Flags().StringVar(&addNewBucketsPath, "new_buckets_path", "", "Default filesystem path for this account's buckets (required)")
	addCmd.Flags().Uint32Var(&addUID, "uid", 0, "Effective UID for filesystem operations")
	addCmd.Flags().Uint32Var(&addGID, "gid", 0, "Effective GID for filesystem operations")
	addCmd.Flags().StringVar(&addUser, "user", "", "Distinguished name to resolve uid/gid from, instead of --uid/--gid")
	addCmd.Flags().StringVar(&addAccessKey, "access_key", "", "S3 access key (generated if omitted)")
	addCmd.Flags().StringVar(&addSecretKey, "secret_key", "", "S3 secret key (generated if omitted)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	name := addName
	if name == "" {
		var err error
		name, err = prompt.InputRequired("Account name")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	bucketsPath := addNewBucketsPath
	if bucketsPath == "" {
		var err error
		bucketsPath, err = prompt.InputRequired("New buckets path")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	opts := manageapi.AccountAddOptions{
		Name:              name,
		NewBucketsPath:    bucketsPath,
		DistinguishedName: addUser,
		AccessKey:         addAccessKey,
		SecretKey:         addSecretKey,
	}
	if cmd.Flags().Changed("uid") {
		opts.UID = &addUID
	}
	if cmd.Flags().Changed("gid") {
		opts.GID = &addGID
	}

	server, err := cmdutil.NewServer()
	if err != nil {
		return err
	}
	res := server.Dispatch(context.Background(), requestFor(manageapi.ActionAdd, opts))
	return cmdutil.PrintResult(res)
}
